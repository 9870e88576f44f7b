package handler

import (
	"bytes"
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dmr-api/internal/dto"
	"github.com/noah-isme/dmr-api/internal/models"
	appErrors "github.com/noah-isme/dmr-api/pkg/errors"
	"github.com/noah-isme/dmr-api/pkg/export"
	"github.com/noah-isme/dmr-api/pkg/response"
)

type observationService interface {
	CreateBundle(ctx context.Context, caller *models.Caller, req *dto.ObservationBundleRequest) (map[models.ObservationKind]*models.Observation, error)
	List(ctx context.Context, caller *models.Caller, kind models.ObservationKind, patientID string, page, pageSize int) ([]*models.Observation, *models.Pagination, error)
	Get(ctx context.Context, caller *models.Caller, kind models.ObservationKind, id string) (*models.Observation, error)
	Update(ctx context.Context, caller *models.Caller, kind models.ObservationKind, id string, in dto.ObservationInput) (*models.Observation, error)
	Delete(ctx context.Context, caller *models.Caller, kind models.ObservationKind, id string) error
	Grouped(ctx context.Context, caller *models.Caller, query dto.ObservationListQuery) (*models.ObservationGroup, error)
	Export(ctx context.Context, caller *models.Caller, patientID, rawFormat string) (*export.Document, error)
}

// ObservationHandler exposes bedside observation endpoints.
type ObservationHandler struct {
	service observationService
}

// NewObservationHandler constructs the handler.
func NewObservationHandler(svc observationService) *ObservationHandler {
	return &ObservationHandler{service: svc}
}

// CreateBundle godoc
// @Summary Record observations
// @Description Stores any combination of observation types for one patient in a single transaction
// @Tags Observations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.ObservationBundleRequest true "Observation bundle"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /observations [post]
func (h *ObservationHandler) CreateBundle(c *gin.Context) {
	caller := callerOrAbort(c)
	if caller == nil {
		return
	}
	var req dto.ObservationBundleRequest
	if !bindJSON(c, &req, "observation") {
		return
	}
	created, err := h.service.CreateBundle(c.Request.Context(), caller, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Grouped godoc
// @Summary List observations grouped by type
// @Tags Observations
// @Produce json
// @Security BearerAuth
// @Param patient_id query string true "Patient ID"
// @Param types query string false "Comma separated observation types"
// @Param page_size query int false "Rows per type (1-100)"
// @Param ordering query string false "created_at or -created_at"
// @Success 200 {object} response.Envelope
// @Router /observations [get]
func (h *ObservationHandler) Grouped(c *gin.Context) {
	caller := callerOrAbort(c)
	if caller == nil {
		return
	}
	var query dto.ObservationListQuery
	if !bindQuery(c, &query) {
		return
	}
	group, err := h.service.Grouped(c.Request.Context(), caller, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, group, nil)
}

// Export godoc
// @Summary Export observations
// @Tags Observations
// @Produce application/pdf
// @Produce text/csv
// @Security BearerAuth
// @Param patient_id query string true "Patient ID"
// @Param format query string false "pdf or csv"
// @Success 200 {file} file
// @Router /observations/export [get]
func (h *ObservationHandler) Export(c *gin.Context) {
	caller := callerOrAbort(c)
	if caller == nil {
		return
	}
	doc, err := h.service.Export(c.Request.Context(), caller, c.Query("patient_id"), c.DefaultQuery("format", "pdf"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, doc.Filename, doc.ContentType, int64(len(doc.Body)), bytes.NewReader(doc.Body))
}

// List godoc
// @Summary List observations of one type
// @Tags Observations
// @Produce json
// @Security BearerAuth
// @Param kind path string true "Observation type"
// @Param patient_id query string false "Patient ID"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /observations/{kind} [get]
func (h *ObservationHandler) List(c *gin.Context) {
	caller := callerOrAbort(c)
	if caller == nil {
		return
	}
	kind, found := kindParam(c)
	if !found {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size"))
	rows, pagination, err := h.service.List(c.Request.Context(), caller, kind, c.Query("patient_id"), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, rows, pagination)
}

// Get godoc
// @Summary Get observation
// @Tags Observations
// @Produce json
// @Security BearerAuth
// @Param kind path string true "Observation type"
// @Param id path string true "Observation ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /observations/{kind}/{id} [get]
func (h *ObservationHandler) Get(c *gin.Context) {
	caller := callerOrAbort(c)
	if caller == nil {
		return
	}
	kind, found := kindParam(c)
	if !found {
		return
	}
	obs, err := h.service.Get(c.Request.Context(), caller, kind, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, obs, nil)
}

// Update godoc
// @Summary Update observation
// @Tags Observations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param kind path string true "Observation type"
// @Param id path string true "Observation ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /observations/{kind}/{id} [put]
func (h *ObservationHandler) Update(c *gin.Context) {
	caller := callerOrAbort(c)
	if caller == nil {
		return
	}
	kind, found := kindParam(c)
	if !found {
		return
	}
	input, _ := dto.NewObservationInput(kind)
	if !bindJSON(c, input, "observation") {
		return
	}
	obs, err := h.service.Update(c.Request.Context(), caller, kind, c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, obs, nil)
}

// Delete godoc
// @Summary Delete observation
// @Tags Observations
// @Security BearerAuth
// @Param kind path string true "Observation type"
// @Param id path string true "Observation ID"
// @Success 204
// @Router /observations/{kind}/{id} [delete]
func (h *ObservationHandler) Delete(c *gin.Context) {
	caller := callerOrAbort(c)
	if caller == nil {
		return
	}
	kind, found := kindParam(c)
	if !found {
		return
	}
	if err := h.service.Delete(c.Request.Context(), caller, kind, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func kindParam(c *gin.Context) (models.ObservationKind, bool) {
	kind, found := models.ParseObservationKind(c.Param("kind"))
	if !found {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "unknown observation type"))
		return "", false
	}
	return kind, true
}
