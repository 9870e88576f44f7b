package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dmr-api/internal/dto"
	"github.com/noah-isme/dmr-api/internal/middleware"
	"github.com/noah-isme/dmr-api/internal/models"
	"github.com/noah-isme/dmr-api/internal/service"
	appErrors "github.com/noah-isme/dmr-api/pkg/errors"
	"github.com/noah-isme/dmr-api/pkg/export"
)

type responseEnvelope struct {
	Data  interface{}            `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

var (
	student    = &models.Caller{AccountID: "s-1", Username: "group-1", Role: models.RoleStudent}
	instructor = &models.Caller{AccountID: "i-1", Username: "tutor", Role: models.RoleInstructor}
)

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func asCaller(c *gin.Context, caller *models.Caller) {
	c.Set(middleware.ContextCallerKey, caller)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

type fakeAuthService struct {
	lastLogin  dto.LoginRequest
	loggedOut  *models.Caller
	logoutFrom string
}

func (f *fakeAuthService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	f.lastLogin = req
	if req.Password != "secret" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid credentials")
	}
	return &dto.LoginResponse{AccessToken: "token", TokenType: "Bearer"}, nil
}

func (f *fakeAuthService) Me(ctx context.Context, caller *models.Caller) (*dto.AccountInfo, error) {
	return &dto.AccountInfo{ID: caller.AccountID, Role: caller.Role}, nil
}

func (f *fakeAuthService) Logout(ctx context.Context, caller *models.Caller, ip, userAgent string) error {
	f.loggedOut = caller
	f.logoutFrom = userAgent
	return nil
}

func TestAuthHandlerLogin(t *testing.T) {
	svc := &fakeAuthService{}
	h := NewAuthHandler(svc)

	c, w := newGinContext(http.MethodPost, "/auth/login", []byte(`{"username":"tutor","password":"secret"}`))
	c.Request.Header.Set("User-Agent", "ward-tablet")
	h.Login(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ward-tablet", svc.lastLogin.UserAgent)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	c, w = newGinContext(http.MethodPost, "/auth/login", []byte(`{"username":"tutor","password":"nope"}`))
	h.Login(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newGinContext(http.MethodPost, "/auth/login", []byte(`{`))
	h.Login(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandlerMeRequiresCaller(t *testing.T) {
	h := NewAuthHandler(&fakeAuthService{})

	c, w := newGinContext(http.MethodGet, "/auth/me", nil)
	h.Me(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newGinContext(http.MethodGet, "/auth/me", nil)
	asCaller(c, instructor)
	h.Me(c)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w).Data.(map[string]interface{})
	assert.Equal(t, "instructor", data["role"])
}

func TestAuthHandlerLogout(t *testing.T) {
	svc := &fakeAuthService{}
	h := NewAuthHandler(svc)

	c, w := newGinContext(http.MethodPost, "/auth/logout", nil)
	h.Logout(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, svc.loggedOut)

	c, _ = newGinContext(http.MethodPost, "/auth/logout", nil)
	c.Request.Header.Set("User-Agent", "ward-tablet")
	asCaller(c, instructor)
	h.Logout(c)
	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, instructor, svc.loggedOut)
	assert.Equal(t, "ward-tablet", svc.logoutFrom)
}

type fakeObservationService struct {
	observationService
	exportFormat string
}

func (f *fakeObservationService) Export(ctx context.Context, caller *models.Caller, patientID, rawFormat string) (*export.Document, error) {
	f.exportFormat = rawFormat
	return &export.Document{Filename: "observations.csv", ContentType: "text/csv", Body: []byte("a,b\n")}, nil
}

func TestObservationHandlerRejectsUnknownKind(t *testing.T) {
	h := NewObservationHandler(&fakeObservationService{})
	c, w := newGinContext(http.MethodGet, "/observations/mood", nil)
	c.Params = gin.Params{{Key: "kind", Value: "mood"}}
	asCaller(c, student)

	h.List(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestObservationHandlerExportStreamsAttachment(t *testing.T) {
	svc := &fakeObservationService{}
	h := NewObservationHandler(svc)
	c, w := newGinContext(http.MethodGet, "/observations/export?patient_id=p-1&format=csv", nil)
	asCaller(c, instructor)

	h.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", svc.exportFormat)
	assert.Equal(t, `attachment; filename="observations.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "a,b\n", w.Body.String())
}

type fakeRequestService struct {
	diagnosticRequestService
	lastQuery   dto.DiagnosticRequestQuery
	lastSurface service.RequestSurface
	statusErr   error
}

func (f *fakeRequestService) List(ctx context.Context, caller *models.Caller, surface service.RequestSurface, query dto.DiagnosticRequestQuery) ([]*models.DiagnosticRequest, *models.Pagination, error) {
	f.lastQuery = query
	f.lastSurface = surface
	return []*models.DiagnosticRequest{}, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (f *fakeRequestService) UpdateStatus(ctx context.Context, caller *models.Caller, id string, in dto.StatusUpdateRequest) (*models.DiagnosticRequest, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return &models.DiagnosticRequest{ID: id, Status: in.Status}, nil
}

func TestDiagnosticRequestHandlerPendingForcesStatus(t *testing.T) {
	svc := &fakeRequestService{}
	h := NewDiagnosticRequestHandler(svc, service.SurfaceManagement)
	c, w := newGinContext(http.MethodGet, "/instructor/diagnostic-requests/pending?status=completed&kind=imaging", nil)
	asCaller(c, instructor)

	h.Pending(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pending", svc.lastQuery.Status)
	assert.Equal(t, "imaging", svc.lastQuery.Kind)
	assert.Equal(t, service.SurfaceManagement, svc.lastSurface)
}

func TestDiagnosticRequestHandlerStatusErrors(t *testing.T) {
	svc := &fakeRequestService{statusErr: appErrors.Clone(appErrors.ErrInvalidTransition, "cannot move from rejected to completed")}
	h := NewDiagnosticRequestHandler(svc, service.SurfaceManagement)
	c, w := newGinContext(http.MethodPatch, "/instructor/diagnostic-requests/r-1/status", []byte(`{"status":"completed"}`))
	c.Params = gin.Params{{Key: "id", Value: "r-1"}}
	asCaller(c, instructor)

	h.UpdateStatus(c)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, decode(t, w).Error.Code)
}

type fakeFileService struct {
	fileService
	uploaded service.FileUpload
	meta     dto.UploadFileRequest
	body     []byte
}

func (f *fakeFileService) Upload(ctx context.Context, caller *models.Caller, patientID string, meta dto.UploadFileRequest, upload service.FileUpload) (*models.File, error) {
	f.uploaded = upload
	f.meta = meta
	f.body, _ = io.ReadAll(upload.Content)
	return &models.File{ID: "f-1", PatientID: patientID, DisplayName: upload.Filename}, nil
}

func multipartBody(t *testing.T, fields map[string]string, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return buf, writer.FormDataContentType()
}

func TestFileHandlerUpload(t *testing.T) {
	svc := &fakeFileService{}
	h := NewFileHandler(svc)

	body, contentType := multipartBody(t, map[string]string{"category": "imaging", "requires_pagination": "true"}, "ct.pdf", []byte("%PDF-1.4"))
	c, w := newGinContext(http.MethodPost, "/patients/p-1/files", nil)
	c.Request = httptest.NewRequest(http.MethodPost, "/patients/p-1/files", body)
	c.Request.Header.Set("Content-Type", contentType)
	c.Params = gin.Params{{Key: "patientId", Value: "p-1"}}
	asCaller(c, instructor)

	h.Upload(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "ct.pdf", svc.uploaded.Filename)
	assert.Equal(t, int64(8), svc.uploaded.Size)
	assert.True(t, svc.meta.RequiresPagination)
	assert.Equal(t, "imaging", svc.meta.Category)
	assert.Equal(t, "%PDF-1.4", string(svc.body))

	body, contentType = multipartBody(t, map[string]string{"category": "imaging"}, "", nil)
	c, w = newGinContext(http.MethodPost, "/patients/p-1/files", nil)
	c.Request = httptest.NewRequest(http.MethodPost, "/patients/p-1/files", body)
	c.Request.Header.Set("Content-Type", contentType)
	asCaller(c, instructor)

	h.Upload(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w).Error.Details, "file")
}

type fakeAccessService struct {
	fileAccessService
	content *service.FileContent
	err     error
	access  *models.FileAccess
}

func (f *fakeAccessService) View(ctx context.Context, caller *models.Caller, patientID, fileID string, query dto.FileViewQuery) (*service.FileContent, error) {
	return f.content, f.err
}

func (f *fakeAccessService) Metadata(ctx context.Context, caller *models.Caller, patientID, fileID string) (*models.FileAccess, error) {
	return f.access, f.err
}

func TestFileAccessHandlerViewServesPages(t *testing.T) {
	body := "%PDF-1.7 excerpt"
	svc := &fakeAccessService{content: &service.FileContent{
		File:        &models.File{ID: "f-1", DisplayName: "ct.pdf"},
		ContentType: models.MIMETypePDF,
		Size:        int64(len(body)),
		Body:        io.NopCloser(strings.NewReader(body)),
		Pages:       []int{3, 1, 2},
	}}
	h := NewFileAccessHandler(svc)
	c, w := newGinContext(http.MethodGet, "/patients/p-1/files/f-1/view?pages=1-3", nil)
	asCaller(c, student)

	h.View(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1-3", w.Header().Get(PagesHeader))
	assert.Equal(t, models.MIMETypePDF, w.Header().Get("Content-Type"))
	assert.Equal(t, `inline; filename="ct.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, body, w.Body.String())
}

func TestFileAccessHandlerViewDenied(t *testing.T) {
	denied := appErrors.WithDetails(appErrors.ErrForbidden, "pages outside grant", map[string][]string{"pages": {"4"}})
	h := NewFileAccessHandler(&fakeAccessService{err: denied})
	c, w := newGinContext(http.MethodGet, "/patients/p-1/files/f-1/view?pages=2-4", nil)
	asCaller(c, student)

	h.View(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, []string{"4"}, decode(t, w).Error.Details["pages"])
}

type fakeDashboardService struct {
	resp *dto.DashboardResponse
	hit  bool
}

func (f fakeDashboardService) Summary(ctx context.Context, caller *models.Caller) (*dto.DashboardResponse, bool, error) {
	return f.resp, f.hit, nil
}

func TestDashboardHandlerReportsCacheHit(t *testing.T) {
	h := NewDashboardHandler(fakeDashboardService{resp: &dto.DashboardResponse{Patients: 4}, hit: true})
	c, w := newGinContext(http.MethodGet, "/instructor/dashboard", nil)
	asCaller(c, instructor)

	h.Summary(c)
	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	assert.Equal(t, true, env.Meta["cache_hit"])
	assert.Equal(t, float64(4), env.Data.(map[string]interface{})["patients"])
}

func TestMetricsHandlerReady(t *testing.T) {
	h := NewMetricsHandler(nil, map[string]ReadinessCheck{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return io.ErrUnexpectedEOF },
	})
	c, w := newGinContext(http.MethodGet, "/ready", nil)
	h.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "unexpected EOF")

	c, w = newGinContext(http.MethodGet, "/metrics", nil)
	h.Prometheus(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
