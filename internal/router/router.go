package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/dmr-api/internal/authz"
	"github.com/noah-isme/dmr-api/internal/handler"
	"github.com/noah-isme/dmr-api/internal/middleware"
	"github.com/noah-isme/dmr-api/internal/models"
	"github.com/noah-isme/dmr-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/dmr-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/dmr-api/pkg/middleware/requestid"
)

// Handlers groups every HTTP handler mounted by the router.
type Handlers struct {
	Auth            *handler.AuthHandler
	Patients        *handler.PatientHandler
	Observations    *handler.ObservationHandler
	StudentRequests *handler.DiagnosticRequestHandler
	ManagedRequests *handler.DiagnosticRequestHandler
	Files           *handler.FileHandler
	FileAccess      *handler.FileAccessHandler
	FileReleases    *handler.FileReleaseHandler
	Dashboard       *handler.DashboardHandler
	Metrics         *handler.MetricsHandler
}

// Options carries the cross cutting collaborators of the router.
type Options struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	Logger         *zap.Logger
	Authenticator  middleware.CallerAuthenticator
	Observer       middleware.RequestObserver
	AuditWriter    middleware.AuditWriter
	LoginLimiter   *middleware.RateLimiter
}

// New builds the gin engine with every route registered.
func New(opts Options, h Handlers) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.APIPrefix == "" {
		opts.APIPrefix = "/api/v1"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(middleware.Metrics(opts.Observer))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(opts.APIPrefix)

	login := []gin.HandlerFunc{}
	if opts.LoginLimiter != nil {
		login = append(login, opts.LoginLimiter.RateLimit())
	}
	api.POST("/auth/login", append(login, h.Auth.Login)...)

	secured := api.Group("")
	secured.Use(middleware.JWT(opts.Authenticator))
	secured.GET("/auth/me", h.Auth.Me)
	secured.POST("/auth/logout", h.Auth.Logout)

	patients := secured.Group("/patients")
	patients.GET("", middleware.Authorize(authz.Patients, authz.OpList), h.Patients.List)
	patients.POST("", middleware.Authorize(authz.Patients, authz.OpCreate), h.Patients.Create)
	patients.GET("/:patientId", middleware.Authorize(authz.Patients, authz.OpRead), h.Patients.Get)
	patients.PUT("/:patientId", middleware.Authorize(authz.Patients, authz.OpUpdate), h.Patients.Update)
	patients.DELETE("/:patientId", middleware.Authorize(authz.Patients, authz.OpDelete), h.Patients.Delete)

	patients.GET("/:patientId/files", middleware.Authorize(authz.FileContent, authz.OpList), h.FileAccess.List)
	patients.POST("/:patientId/files", middleware.Authorize(authz.Files, authz.OpCreate), h.Files.Upload)
	patients.GET("/:patientId/files/:fileId", middleware.Authorize(authz.FileContent, authz.OpRead), h.FileAccess.Metadata)
	patients.GET("/:patientId/files/:fileId/view",
		middleware.Authorize(authz.FileContent, authz.OpRead),
		middleware.Audit(opts.AuditWriter, opts.Logger, models.AuditActionFileView, "file", "fileId"),
		h.FileAccess.View,
	)

	observations := secured.Group("/observations")
	observations.POST("", middleware.Authorize(authz.Observations, authz.OpCreate), h.Observations.CreateBundle)
	observations.GET("", middleware.Authorize(authz.Observations, authz.OpList), h.Observations.Grouped)
	observations.GET("/export", middleware.Authorize(authz.Observations, authz.OpList), h.Observations.Export)
	observations.GET("/:kind", middleware.Authorize(authz.Observations, authz.OpList), h.Observations.List)
	observations.GET("/:kind/:id", middleware.Authorize(authz.Observations, authz.OpRead), h.Observations.Get)
	observations.PUT("/:kind/:id", middleware.Authorize(authz.Observations, authz.OpUpdate), h.Observations.Update)
	observations.DELETE("/:kind/:id", middleware.Authorize(authz.Observations, authz.OpDelete), h.Observations.Delete)

	requests := secured.Group("/diagnostic-requests")
	requests.GET("", middleware.Authorize(authz.DiagnosticRequests, authz.OpList), h.StudentRequests.List)
	requests.POST("", middleware.Authorize(authz.DiagnosticRequests, authz.OpCreate), h.StudentRequests.Create)
	requests.GET("/:id", middleware.Authorize(authz.DiagnosticRequests, authz.OpRead), h.StudentRequests.Get)
	requests.PATCH("/:id", middleware.Authorize(authz.DiagnosticRequests, authz.OpUpdate), h.StudentRequests.Update)
	requests.DELETE("/:id", middleware.Authorize(authz.DiagnosticRequests, authz.OpDelete), h.StudentRequests.Delete)

	instructor := secured.Group("/instructor")
	instructor.GET("/dashboard", middleware.Authorize(authz.Dashboard, authz.OpRead), h.Dashboard.Summary)

	managed := instructor.Group("/diagnostic-requests")
	managed.GET("", middleware.Authorize(authz.DiagnosticRequestsManagement, authz.OpList), h.ManagedRequests.List)
	managed.POST("", middleware.Authorize(authz.DiagnosticRequestsManagement, authz.OpCreate), h.ManagedRequests.Create)
	managed.GET("/pending", middleware.Authorize(authz.DiagnosticRequestsManagement, authz.OpList), h.ManagedRequests.Pending)
	managed.GET("/stats", middleware.Authorize(authz.DiagnosticRequestsManagement, authz.OpList), h.ManagedRequests.Stats)
	managed.GET("/:id", middleware.Authorize(authz.DiagnosticRequestsManagement, authz.OpRead), h.ManagedRequests.Get)
	managed.PATCH("/:id", middleware.Authorize(authz.DiagnosticRequestsManagement, authz.OpUpdate), h.ManagedRequests.Update)
	managed.DELETE("/:id", middleware.Authorize(authz.DiagnosticRequestsManagement, authz.OpDelete), h.ManagedRequests.Delete)
	managed.PATCH("/:id/status", middleware.Authorize(authz.DiagnosticRequestsManagement, authz.OpTransition), h.ManagedRequests.UpdateStatus)

	files := secured.Group("/files")
	files.GET("/:fileId", middleware.Authorize(authz.Files, authz.OpRead), h.Files.Get)
	files.PATCH("/:fileId", middleware.Authorize(authz.Files, authz.OpUpdate), h.Files.Update)
	files.DELETE("/:fileId", middleware.Authorize(authz.Files, authz.OpDelete), h.Files.Delete)
	files.POST("/:fileId/release", middleware.Authorize(authz.FileReleases, authz.OpCreate), h.FileReleases.Release)
	files.GET("/:fileId/approved-files", middleware.Authorize(authz.FileReleases, authz.OpList), h.FileReleases.List)

	approved := secured.Group("/approved-files")
	approved.PATCH("/:id", middleware.Authorize(authz.FileReleases, authz.OpUpdate), h.FileReleases.Update)
	approved.DELETE("/:id", middleware.Authorize(authz.FileReleases, authz.OpDelete), h.FileReleases.Revoke)

	secured.GET("/student-groups", middleware.Authorize(authz.FileReleases, authz.OpList), h.FileReleases.StudentGroups)

	return r
}
