package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dmr-api/internal/dto"
	"github.com/noah-isme/dmr-api/internal/models"
	"github.com/noah-isme/dmr-api/pkg/response"
)

type patientService interface {
	List(ctx context.Context, caller *models.Caller, query dto.PatientQuery) ([]models.Patient, *models.Pagination, error)
	Get(ctx context.Context, caller *models.Caller, id string) (*models.Patient, error)
	Create(ctx context.Context, caller *models.Caller, req dto.PatientRequest) (*models.Patient, error)
	Update(ctx context.Context, caller *models.Caller, id string, req dto.PatientRequest) (*models.Patient, error)
	Delete(ctx context.Context, caller *models.Caller, id string) error
}

// PatientHandler exposes patient endpoints.
type PatientHandler struct {
	service patientService
}

// NewPatientHandler constructs the handler.
func NewPatientHandler(svc patientService) *PatientHandler {
	return &PatientHandler{service: svc}
}

// List godoc
// @Summary List patients
// @Tags Patients
// @Produce json
// @Security BearerAuth
// @Param search query string false "Name or MRN search"
// @Param ward query string false "Ward filter"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /patients [get]
func (h *PatientHandler) List(c *gin.Context) {
	caller := callerOrAbort(c)
	if caller == nil {
		return
	}
	var query dto.PatientQuery
	if !bindQuery(c, &query) {
		return
	}
	patients, pagination, err := h.service.List(c.Request.Context(), caller, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, patients, pagination)
}

// Get godoc
// @Summary Get patient
// @Tags Patients
// @Produce json
// @Security BearerAuth
// @Param patientId path string true "Patient ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /patients/{patientId} [get]
func (h *PatientHandler) Get(c *gin.Context) {
	caller := callerOrAbort(c)
	if caller == nil {
		return
	}
	patient, err := h.service.Get(c.Request.Context(), caller, c.Param("patientId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, patient, nil)
}

// Create godoc
// @Summary Register patient
// @Tags Patients
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.PatientRequest true "Patient payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /patients [post]
func (h *PatientHandler) Create(c *gin.Context) {
	caller := callerOrAbort(c)
	if caller == nil {
		return
	}
	var req dto.PatientRequest
	if !bindJSON(c, &req, "patient") {
		return
	}
	patient, err := h.service.Create(c.Request.Context(), caller, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, patient)
}

// Update godoc
// @Summary Update patient
// @Tags Patients
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param patientId path string true "Patient ID"
// @Param payload body dto.PatientRequest true "Patient payload"
// @Success 200 {object} response.Envelope
// @Router /patients/{patientId} [put]
func (h *PatientHandler) Update(c *gin.Context) {
	caller := callerOrAbort(c)
	if caller == nil {
		return
	}
	var req dto.PatientRequest
	if !bindJSON(c, &req, "patient") {
		return
	}
	patient, err := h.service.Update(c.Request.Context(), caller, c.Param("patientId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, patient, nil)
}

// Delete godoc
// @Summary Delete patient
// @Tags Patients
// @Security BearerAuth
// @Param patientId path string true "Patient ID"
// @Success 204
// @Router /patients/{patientId} [delete]
func (h *PatientHandler) Delete(c *gin.Context) {
	caller := callerOrAbort(c)
	if caller == nil {
		return
	}
	if err := h.service.Delete(c.Request.Context(), caller, c.Param("patientId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
