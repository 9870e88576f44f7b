package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/dmr-api/internal/handler"
	"github.com/noah-isme/dmr-api/internal/middleware"
	"github.com/noah-isme/dmr-api/internal/models"
	"github.com/noah-isme/dmr-api/internal/service"
	appErrors "github.com/noah-isme/dmr-api/pkg/errors"
)

type tokenTable map[string]*models.Caller

func (t tokenTable) Authenticate(ctx context.Context, token string) (*models.Caller, error) {
	if caller, ok := t[token]; ok {
		return caller, nil
	}
	return nil, appErrors.ErrUnauthorized
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	tokens := tokenTable{
		"student":    {AccountID: "s-1", Role: models.RoleStudent},
		"instructor": {AccountID: "i-1", Role: models.RoleInstructor},
	}
	return New(Options{
		Authenticator: tokens,
		LoginLimiter:  middleware.NewRateLimiter(middleware.RateLimiterConfig{Rate: 0.001, Burst: 1}),
	}, Handlers{
		Auth:            handler.NewAuthHandler(nil),
		Patients:        handler.NewPatientHandler(nil),
		Observations:    handler.NewObservationHandler(nil),
		StudentRequests: handler.NewDiagnosticRequestHandler(nil, service.SurfaceStudent),
		ManagedRequests: handler.NewDiagnosticRequestHandler(nil, service.SurfaceManagement),
		Files:           handler.NewFileHandler(nil),
		FileAccess:      handler.NewFileAccessHandler(nil),
		FileReleases:    handler.NewFileReleaseHandler(nil),
		Dashboard:       handler.NewDashboardHandler(nil),
		Metrics:         handler.NewMetricsHandler(service.NewMetricsService(), nil),
	})
}

func serve(r http.Handler, method, path, token string) int {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader("not json"))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(rec, req)
	return rec.Code
}

func TestRoutesRequireAuthentication(t *testing.T) {
	r := newTestRouter()
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/health", ""))
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/metrics", ""))
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/v1/patients", ""))
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/v1/auth/me", "forged"))
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodPost, "/api/v1/auth/logout", ""))
}

func TestRoleTableAppliedPerRoute(t *testing.T) {
	r := newTestRouter()
	denied := []struct{ method, path, token string }{
		{http.MethodGet, "/api/v1/instructor/dashboard", "student"},
		{http.MethodGet, "/api/v1/instructor/diagnostic-requests/pending", "student"},
		{http.MethodPatch, "/api/v1/instructor/diagnostic-requests/r-1/status", "student"},
		{http.MethodPost, "/api/v1/files/f-1/release", "student"},
		{http.MethodDelete, "/api/v1/approved-files/a-1", "student"},
		{http.MethodPost, "/api/v1/patients/p-1/files", "student"},
		{http.MethodPost, "/api/v1/patients", "student"},
		{http.MethodPost, "/api/v1/observations", "instructor"},
		{http.MethodPost, "/api/v1/diagnostic-requests", "instructor"},
	}
	for _, tc := range denied {
		assert.Equal(t, http.StatusForbidden, serve(r, tc.method, tc.path, tc.token), "%s %s as %s", tc.method, tc.path, tc.token)
	}
}

func TestLoginIsRateLimited(t *testing.T) {
	r := newTestRouter()
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPost, "/api/v1/auth/login", ""))
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodPost, "/api/v1/auth/login", ""))
}
