package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dmr-api/internal/dto"
	"github.com/noah-isme/dmr-api/internal/middleware"
	"github.com/noah-isme/dmr-api/internal/models"
	"github.com/noah-isme/dmr-api/internal/service"
	"github.com/noah-isme/dmr-api/pkg/pagerange"
	"github.com/noah-isme/dmr-api/pkg/response"
)

// PagesHeader lists the pages contained in a served document.
const PagesHeader = "X-Document-Pages"

type fileAccessService interface {
	List(ctx context.Context, caller *models.Caller, patientID string) ([]*models.File, error)
	Metadata(ctx context.Context, caller *models.Caller, patientID, fileID string) (*models.FileAccess, error)
	View(ctx context.Context, caller *models.Caller, patientID, fileID string, query dto.FileViewQuery) (*service.FileContent, error)
}

// FileAccessHandler serves patient files through the access gate.
type FileAccessHandler struct {
	service fileAccessService
}

// NewFileAccessHandler constructs the handler.
func NewFileAccessHandler(svc fileAccessService) *FileAccessHandler {
	return &FileAccessHandler{service: svc}
}

// List godoc
// @Summary List patient files
// @Description Staff see every file; students see files released to them
// @Tags FileAccess
// @Produce json
// @Security BearerAuth
// @Param patientId path string true "Patient ID"
// @Success 200 {object} response.Envelope
// @Router /patients/{patientId}/files [get]
func (h *FileAccessHandler) List(c *gin.Context) {
	caller := callerOrAbort(c)
	if caller == nil {
		return
	}
	files, err := h.service.List(c.Request.Context(), caller, c.Param("patientId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, files, nil)
}

// Metadata godoc
// @Summary Patient file metadata
// @Tags FileAccess
// @Produce json
// @Security BearerAuth
// @Param patientId path string true "Patient ID"
// @Param fileId path string true "File ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /patients/{patientId}/files/{fileId} [get]
func (h *FileAccessHandler) Metadata(c *gin.Context) {
	caller := callerOrAbort(c)
	if caller == nil {
		return
	}
	access, err := h.service.Metadata(c.Request.Context(), caller, c.Param("patientId"), c.Param("fileId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if access.Grant != nil && !access.Grant.Unrestricted {
		middleware.SetMeta(c, "granted_pages", access.Grant.Pages.String())
	}
	respondOK(c, access.File, nil)
}

// View godoc
// @Summary View patient file
// @Description Paginated PDFs are cut down to the requested pages, which must lie inside the caller's grant
// @Tags FileAccess
// @Produce application/pdf
// @Security BearerAuth
// @Param patientId path string true "Patient ID"
// @Param fileId path string true "File ID"
// @Param page query int false "Single page"
// @Param pages query string false "Page range such as 1-3,5"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /patients/{patientId}/files/{fileId}/view [get]
func (h *FileAccessHandler) View(c *gin.Context) {
	caller := callerOrAbort(c)
	if caller == nil {
		return
	}
	var query dto.FileViewQuery
	if !bindQuery(c, &query) {
		return
	}
	content, err := h.service.View(c.Request.Context(), caller, c.Param("patientId"), c.Param("fileId"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer content.Body.Close()

	if len(content.Pages) > 0 {
		c.Header(PagesHeader, pagerange.Format(content.Pages))
	}
	response.Inline(c, content.File.DisplayName, content.ContentType, content.Size, content.Body)
}
