package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/dmr-api/internal/authz"
	"github.com/noah-isme/dmr-api/internal/dto"
	"github.com/noah-isme/dmr-api/internal/models"
	appErrors "github.com/noah-isme/dmr-api/pkg/errors"
)

type patientCounter interface {
	Count(ctx context.Context) (int, error)
}

type requestCounter interface {
	CountByStatus(ctx context.Context) ([]models.StatusCount, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardService composes the instructor dashboard.
type DashboardService struct {
	patients patientCounter
	requests requestCounter
	metrics  *MetricsService
	cache    *CacheService
	logger   *zap.Logger
	now      func() time.Time
	cfg      DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Patients patientCounter
	Requests requestCounter
	Metrics  *MetricsService
	Cache    *CacheService
	Logger   *zap.Logger
	Config   DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		patients: params.Patients,
		requests: params.Requests,
		metrics:  params.Metrics,
		cache:    params.Cache,
		logger:   logger,
		now:      time.Now,
		cfg:      cfg,
	}
}

// Summary returns patient and request counts, and indicates cache utilisation.
// Administrators additionally receive a snapshot of process metrics.
func (s *DashboardService) Summary(ctx context.Context, caller *models.Caller) (*dto.DashboardResponse, bool, error) {
	if err := authz.Authorize(authz.Dashboard, caller, authz.OpRead, nil); err != nil {
		return nil, false, err
	}

	summary, hit, err := readThrough(ctx, s.cache, dashboardCacheKey, s.cfg.CacheTTL, s.compose)
	if err != nil {
		return nil, false, err
	}
	if !hit {
		s.logger.Debug("dashboard summary composed", zap.Int("patients", summary.Patients), zap.Int("pending", summary.PendingRequests))
	}

	if caller.Role == models.RoleAdmin {
		snap := s.metrics.Snapshot()
		summary.System = &dto.DashboardSystem{
			CacheHitRatio:      snap.CacheHitRatio,
			RequestsTotal:      snap.RequestsTotal,
			AverageRequestMs:   snap.AverageRequestDurationMs,
			AverageDBQueryMs:   snap.AverageDBQueryDurationMs,
			FileViewsByOutcome: snap.FileViews,
			Goroutines:         snap.Goroutines,
		}
	}
	return &summary, hit, nil
}

func (s *DashboardService) compose(ctx context.Context) (dto.DashboardResponse, error) {
	start := time.Now()
	patients, err := s.patients.Count(ctx)
	if err != nil {
		return dto.DashboardResponse{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count patients")
	}
	rows, err := s.requests.CountByStatus(ctx)
	if err != nil {
		return dto.DashboardResponse{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count diagnostic requests")
	}
	s.metrics.ObserveDBQuery("dashboard_counts", time.Since(start))
	stats := models.NewDiagnosticRequestStats(rows)
	return dto.DashboardResponse{
		Patients:           patients,
		DiagnosticRequests: stats,
		PendingRequests:    stats.ByStatus[models.StatusPending],
		GeneratedAt:        s.now().UTC().Format(time.RFC3339),
	}, nil
}
