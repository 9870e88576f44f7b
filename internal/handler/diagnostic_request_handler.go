package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dmr-api/internal/dto"
	"github.com/noah-isme/dmr-api/internal/models"
	"github.com/noah-isme/dmr-api/internal/service"
	"github.com/noah-isme/dmr-api/pkg/response"
)

type diagnosticRequestService interface {
	Create(ctx context.Context, caller *models.Caller, surface service.RequestSurface, in dto.DiagnosticRequestInput) (*models.DiagnosticRequest, error)
	List(ctx context.Context, caller *models.Caller, surface service.RequestSurface, query dto.DiagnosticRequestQuery) ([]*models.DiagnosticRequest, *models.Pagination, error)
	Get(ctx context.Context, caller *models.Caller, surface service.RequestSurface, id string) (*models.DiagnosticRequest, error)
	Update(ctx context.Context, caller *models.Caller, surface service.RequestSurface, id string, upd dto.DiagnosticRequestUpdate) (*models.DiagnosticRequest, error)
	Delete(ctx context.Context, caller *models.Caller, surface service.RequestSurface, id string) error
	UpdateStatus(ctx context.Context, caller *models.Caller, id string, in dto.StatusUpdateRequest) (*models.DiagnosticRequest, error)
	Stats(ctx context.Context, caller *models.Caller) (*models.DiagnosticRequestStats, error)
}

// DiagnosticRequestHandler serves one surface of the diagnostic request
// workflow. The student and management routes each get their own instance.
type DiagnosticRequestHandler struct {
	service diagnosticRequestService
	surface service.RequestSurface
}

// NewDiagnosticRequestHandler constructs a handler bound to a surface.
func NewDiagnosticRequestHandler(svc diagnosticRequestService, surface service.RequestSurface) *DiagnosticRequestHandler {
	return &DiagnosticRequestHandler{service: svc, surface: surface}
}

// List godoc
// @Summary List diagnostic requests
// @Description Students see their own requests; staff may filter every request
// @Tags DiagnosticRequests
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status filter"
// @Param kind query string false "imaging or blood_test"
// @Param patient_id query string false "Patient ID"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /diagnostic-requests [get]
// @Router /instructor/diagnostic-requests [get]
func (h *DiagnosticRequestHandler) List(c *gin.Context) {
	var query dto.DiagnosticRequestQuery
	if !bindQuery(c, &query) {
		return
	}
	h.list(c, query)
}

// Pending godoc
// @Summary List pending diagnostic requests
// @Tags DiagnosticRequests
// @Produce json
// @Security BearerAuth
// @Param kind query string false "imaging or blood_test"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /instructor/diagnostic-requests/pending [get]
func (h *DiagnosticRequestHandler) Pending(c *gin.Context) {
	var query dto.DiagnosticRequestQuery
	if !bindQuery(c, &query) {
		return
	}
	query.Status = string(models.StatusPending)
	h.list(c, query)
}

func (h *DiagnosticRequestHandler) list(c *gin.Context, query dto.DiagnosticRequestQuery) {
	caller := callerOrAbort(c)
	if caller == nil {
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), caller, h.surface, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, items, pagination)
}

// Stats godoc
// @Summary Diagnostic request counts by kind and status
// @Tags DiagnosticRequests
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /instructor/diagnostic-requests/stats [get]
func (h *DiagnosticRequestHandler) Stats(c *gin.Context) {
	caller := callerOrAbort(c)
	if caller == nil {
		return
	}
	stats, err := h.service.Stats(c.Request.Context(), caller)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, stats, nil)
}

// Get godoc
// @Summary Get diagnostic request
// @Tags DiagnosticRequests
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /diagnostic-requests/{id} [get]
// @Router /instructor/diagnostic-requests/{id} [get]
func (h *DiagnosticRequestHandler) Get(c *gin.Context) {
	caller := callerOrAbort(c)
	if caller == nil {
		return
	}
	item, err := h.service.Get(c.Request.Context(), caller, h.surface, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, item, nil)
}

// Create godoc
// @Summary Create diagnostic request
// @Tags DiagnosticRequests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.DiagnosticRequestInput true "Request payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /diagnostic-requests [post]
// @Router /instructor/diagnostic-requests [post]
func (h *DiagnosticRequestHandler) Create(c *gin.Context) {
	caller := callerOrAbort(c)
	if caller == nil {
		return
	}
	var in dto.DiagnosticRequestInput
	if !bindJSON(c, &in, "diagnostic request") {
		return
	}
	item, err := h.service.Create(c.Request.Context(), caller, h.surface, in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update diagnostic request
// @Description Students may only edit their own pending requests
// @Tags DiagnosticRequests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Param payload body dto.DiagnosticRequestUpdate true "Changed fields"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /diagnostic-requests/{id} [patch]
// @Router /instructor/diagnostic-requests/{id} [patch]
func (h *DiagnosticRequestHandler) Update(c *gin.Context) {
	caller := callerOrAbort(c)
	if caller == nil {
		return
	}
	var upd dto.DiagnosticRequestUpdate
	if !bindJSON(c, &upd, "diagnostic request") {
		return
	}
	item, err := h.service.Update(c.Request.Context(), caller, h.surface, c.Param("id"), upd)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, item, nil)
}

// Delete godoc
// @Summary Delete diagnostic request
// @Tags DiagnosticRequests
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Success 204
// @Router /diagnostic-requests/{id} [delete]
// @Router /instructor/diagnostic-requests/{id} [delete]
func (h *DiagnosticRequestHandler) Delete(c *gin.Context) {
	caller := callerOrAbort(c)
	if caller == nil {
		return
	}
	if err := h.service.Delete(c.Request.Context(), caller, h.surface, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UpdateStatus godoc
// @Summary Transition diagnostic request
// @Description Moves a request through its lifecycle and optionally replaces its approved files
// @Tags DiagnosticRequests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Param payload body dto.StatusUpdateRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /instructor/diagnostic-requests/{id}/status [patch]
func (h *DiagnosticRequestHandler) UpdateStatus(c *gin.Context) {
	caller := callerOrAbort(c)
	if caller == nil {
		return
	}
	var in dto.StatusUpdateRequest
	if !bindJSON(c, &in, "status") {
		return
	}
	item, err := h.service.UpdateStatus(c.Request.Context(), caller, c.Param("id"), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, item, nil)
}
