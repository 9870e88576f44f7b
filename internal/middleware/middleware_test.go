package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dmr-api/internal/authz"
	"github.com/noah-isme/dmr-api/internal/models"
	appErrors "github.com/noah-isme/dmr-api/pkg/errors"
)

type fakeAuthenticator struct {
	callers map[string]*models.Caller
}

func (f fakeAuthenticator) Authenticate(ctx context.Context, token string) (*models.Caller, error) {
	caller, ok := f.callers[token]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return caller, nil
}

type auditRecorder struct {
	logs []*models.AuditLog
}

func (a *auditRecorder) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func newTestEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	chain := append(handlers, func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/files/:fileId", chain...)
	return r
}

func perform(r http.Handler, header string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/files/f-1?page=2", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWTResolvesCaller(t *testing.T) {
	auth := fakeAuthenticator{callers: map[string]*models.Caller{
		"student-token": {AccountID: "s-1", Role: models.RoleStudent},
	}}
	var seen *models.Caller
	r := newTestEngine(JWT(auth), func(c *gin.Context) {
		seen = CallerFromContext(c)
		c.Next()
	})

	assert.Equal(t, http.StatusUnauthorized, perform(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, "Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, "Bearer nope").Code)

	rec := perform(r, "Bearer student-token")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "s-1", seen.AccountID)
}

func TestAuthorizeChecksRoleTable(t *testing.T) {
	auth := fakeAuthenticator{callers: map[string]*models.Caller{
		"student":    {AccountID: "s-1", Role: models.RoleStudent},
		"instructor": {AccountID: "i-1", Role: models.RoleInstructor},
	}}
	r := newTestEngine(JWT(auth), Authorize(authz.FileReleases, authz.OpCreate))

	assert.Equal(t, http.StatusForbidden, perform(r, "Bearer student").Code)
	assert.Equal(t, http.StatusOK, perform(r, "Bearer instructor").Code)
}

func TestRateLimitPerClient(t *testing.T) {
	limiter := NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 2})
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return fixed }
	r := newTestEngine(limiter.RateLimit())

	assert.Equal(t, http.StatusOK, perform(r, "").Code)
	assert.Equal(t, http.StatusOK, perform(r, "").Code)
	rec := perform(r, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	fixed = fixed.Add(time.Second)
	assert.Equal(t, http.StatusOK, perform(r, "").Code)
}

func TestAuditRecordsSuccessfulAccess(t *testing.T) {
	auth := fakeAuthenticator{callers: map[string]*models.Caller{"t": {AccountID: "s-1", Role: models.RoleStudent}}}
	recorder := &auditRecorder{}
	r := newTestEngine(JWT(auth), Audit(recorder, nil, models.AuditActionFileView, "file", "fileId"))

	require.Equal(t, http.StatusOK, perform(r, "Bearer t").Code)
	require.Len(t, recorder.logs, 1)
	log := recorder.logs[0]
	assert.Equal(t, models.AuditActionFileView, log.Action)
	assert.Equal(t, "f-1", *log.ResourceID)
	assert.Equal(t, "s-1", *log.UserID)
	assert.Contains(t, string(log.NewValues), "page=2")

	perform(r, "Bearer wrong")
	assert.Len(t, recorder.logs, 1)
}
