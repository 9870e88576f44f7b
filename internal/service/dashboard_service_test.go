package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dmr-api/internal/models"
	appErrors "github.com/noah-isme/dmr-api/pkg/errors"
)

type fakePatientCounter struct {
	total int
	calls int
	err   error
}

func (f *fakePatientCounter) Count(context.Context) (int, error) {
	f.calls++
	return f.total, f.err
}

type fakeRequestCounter struct {
	rows []models.StatusCount
}

func (f fakeRequestCounter) CountByStatus(context.Context) ([]models.StatusCount, error) {
	return f.rows, nil
}

func TestDashboardSummaryComposesAndCaches(t *testing.T) {
	cache, _ := newCacheFixture(t)
	patients := &fakePatientCounter{total: 12}
	svc := NewDashboardService(DashboardServiceParams{
		Patients: patients,
		Requests: fakeRequestCounter{rows: []models.StatusCount{
			{Kind: models.RequestKindImaging, Status: models.StatusPending, Count: 3},
			{Kind: models.RequestKindBloodTest, Status: models.StatusPending, Count: 2},
			{Kind: models.RequestKindBloodTest, Status: models.StatusCompleted, Count: 4},
		}},
		Metrics: NewMetricsService(),
		Cache:   cache,
	})
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC) }

	summary, hit, err := svc.Summary(context.Background(), instructorCaller)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 12, summary.Patients)
	assert.Equal(t, 5, summary.PendingRequests)
	assert.Equal(t, 9, summary.DiagnosticRequests.Total)
	assert.Equal(t, 4, summary.DiagnosticRequests.ByKind[models.RequestKindBloodTest][models.StatusCompleted])
	assert.Equal(t, "2024-03-01T08:00:00Z", summary.GeneratedAt)
	assert.Nil(t, summary.System)

	cached, hit, err := svc.Summary(context.Background(), instructorCaller)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 12, cached.Patients)
	assert.Equal(t, 1, patients.calls)
}

func TestDashboardSystemSectionIsAdminOnly(t *testing.T) {
	metrics := NewMetricsService()
	metrics.RecordFileView("served")
	svc := NewDashboardService(DashboardServiceParams{
		Patients: &fakePatientCounter{},
		Requests: fakeRequestCounter{},
		Metrics:  metrics,
	})

	summary, _, err := svc.Summary(context.Background(), adminCaller)
	require.NoError(t, err)
	require.NotNil(t, summary.System)
	assert.Equal(t, uint64(1), summary.System.FileViewsByOutcome["served"])

	_, _, err = svc.Summary(context.Background(), studentCaller)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestDashboardSummaryPropagatesErrors(t *testing.T) {
	svc := NewDashboardService(DashboardServiceParams{
		Patients: &fakePatientCounter{err: errors.New("db down")},
		Requests: fakeRequestCounter{},
	})
	_, _, err := svc.Summary(context.Background(), instructorCaller)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}
