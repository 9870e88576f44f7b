package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	_ "github.com/noah-isme/dmr-api/api/swagger"
	"github.com/noah-isme/dmr-api/internal/handler"
	"github.com/noah-isme/dmr-api/internal/middleware"
	"github.com/noah-isme/dmr-api/internal/repository"
	"github.com/noah-isme/dmr-api/internal/router"
	"github.com/noah-isme/dmr-api/internal/service"
	"github.com/noah-isme/dmr-api/pkg/cache"
	"github.com/noah-isme/dmr-api/pkg/config"
	"github.com/noah-isme/dmr-api/pkg/database"
	"github.com/noah-isme/dmr-api/pkg/export"
	"github.com/noah-isme/dmr-api/pkg/logger"
	"github.com/noah-isme/dmr-api/pkg/pdfpages"
	"github.com/noah-isme/dmr-api/pkg/storage"
)

// @title DMR API
// @version 1.0.0
// @description Digital medical record teaching backend
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
	}

	blobs, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logr.Fatal("failed to init blob storage", zap.Error(err), zap.String("driver", cfg.Storage.Driver))
	}

	engine := buildRouter(cfg, logr, db, redisClient, blobs)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "prefix", cfg.APIPrefix)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

func buildRouter(cfg *config.Config, logr *zap.Logger, db *sqlx.DB, redisClient *redis.Client, blobs storage.BlobStore) *gin.Engine {
	validate := service.NewValidator()
	metrics := service.NewMetricsService()

	accounts := repository.NewAccountRepository(db)
	patients := repository.NewPatientRepository(db)
	observations := repository.NewObservationRepository(db)
	requests := repository.NewDiagnosticRequestRepository(db)
	files := repository.NewFileRepository(db)
	approved := repository.NewApprovedFileRepository(db)

	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheSvc = service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled)
	}

	authSvc := service.NewAuthService(accounts, service.NewTokenRevocations(cacheSvc), validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	patientSvc := service.NewPatientService(patients, blobs, cacheSvc, accounts, validate, logr)
	obsValidator := service.NewObservationValidator(validate, cfg.Observations, patients)
	observationSvc := service.NewObservationService(observations, patients, obsValidator, export.NewRenderer(), metrics, accounts, logr)
	requestSvc := service.NewDiagnosticRequestService(requests, approved, files, patients, cacheSvc, metrics, accounts, validate, logr)
	fileSvc := service.NewFileService(files, patients, blobs, cacheSvc, accounts, validate, logr, service.FileServiceConfig{
		MaxFileSize:  cfg.Files.MaxFileSizeBytes,
		AllowedMIMEs: cfg.Files.AllowedMIMEs,
	})
	accessSvc := service.NewFileAccessService(files, approved, patients, blobs, pdfpages.NewExtractor(), cacheSvc, metrics, cfg.Cache.TTL, logr)
	releaseSvc := service.NewFileReleaseService(approved, files, accounts, cacheSvc, accounts, validate, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Patients: patients,
		Requests: requests,
		Metrics:  metrics,
		Cache:    cacheSvc,
		Logger:   logr,
	})

	checks := map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	return router.New(router.Options{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Logger:         logr,
		Authenticator:  authSvc,
		Observer:       metrics,
		AuditWriter:    accounts,
		LoginLimiter: middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  rate.Limit(cfg.RateLimit.LoginPerSecond),
			Burst: cfg.RateLimit.LoginBurst,
		}),
	}, router.Handlers{
		Auth:            handler.NewAuthHandler(authSvc),
		Patients:        handler.NewPatientHandler(patientSvc),
		Observations:    handler.NewObservationHandler(observationSvc),
		StudentRequests: handler.NewDiagnosticRequestHandler(requestSvc, service.SurfaceStudent),
		ManagedRequests: handler.NewDiagnosticRequestHandler(requestSvc, service.SurfaceManagement),
		Files:           handler.NewFileHandler(fileSvc),
		FileAccess:      handler.NewFileAccessHandler(accessSvc),
		FileReleases:    handler.NewFileReleaseHandler(releaseSvc),
		Dashboard:       handler.NewDashboardHandler(dashboardSvc),
		Metrics:         handler.NewMetricsHandler(metrics, checks),
	})
}
