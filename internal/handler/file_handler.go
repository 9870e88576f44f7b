package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dmr-api/internal/dto"
	"github.com/noah-isme/dmr-api/internal/models"
	"github.com/noah-isme/dmr-api/internal/service"
	appErrors "github.com/noah-isme/dmr-api/pkg/errors"
	"github.com/noah-isme/dmr-api/pkg/response"
)

type fileService interface {
	Upload(ctx context.Context, caller *models.Caller, patientID string, meta dto.UploadFileRequest, upload service.FileUpload) (*models.File, error)
	Get(ctx context.Context, caller *models.Caller, id string) (*models.File, error)
	Update(ctx context.Context, caller *models.Caller, id string, req dto.UpdateFileRequest) (*models.File, error)
	Delete(ctx context.Context, caller *models.Caller, id string) error
}

// FileHandler manages uploaded patient documents.
type FileHandler struct {
	service fileService
}

// NewFileHandler constructs the handler.
func NewFileHandler(svc fileService) *FileHandler {
	return &FileHandler{service: svc}
}

// Upload godoc
// @Summary Upload patient file
// @Tags Files
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param patientId path string true "Patient ID"
// @Param file formData file true "Document"
// @Param display_name formData string false "Display name"
// @Param category formData string false "Category"
// @Param requires_pagination formData bool false "Gate access per page (PDF only)"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /patients/{patientId}/files [post]
func (h *FileHandler) Upload(c *gin.Context) {
	caller := callerOrAbort(c)
	if caller == nil {
		return
	}
	var meta dto.UploadFileRequest
	if err := c.ShouldBind(&meta); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid upload payload"))
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.WithDetails(appErrors.ErrValidation, "file is required", map[string][]string{"file": {"is required"}}))
		return
	}
	content, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable upload"))
		return
	}
	defer content.Close()

	file, err := h.service.Upload(c.Request.Context(), caller, c.Param("patientId"), meta, service.FileUpload{
		Filename: header.Filename,
		Size:     header.Size,
		Content:  content,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, file)
}

// Get godoc
// @Summary File metadata
// @Tags Files
// @Produce json
// @Security BearerAuth
// @Param fileId path string true "File ID"
// @Success 200 {object} response.Envelope
// @Router /files/{fileId} [get]
func (h *FileHandler) Get(c *gin.Context) {
	caller := callerOrAbort(c)
	if caller == nil {
		return
	}
	file, err := h.service.Get(c.Request.Context(), caller, c.Param("fileId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, file, nil)
}

// Update godoc
// @Summary Update file metadata
// @Tags Files
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param fileId path string true "File ID"
// @Param payload body dto.UpdateFileRequest true "Changed fields"
// @Success 200 {object} response.Envelope
// @Router /files/{fileId} [patch]
func (h *FileHandler) Update(c *gin.Context) {
	caller := callerOrAbort(c)
	if caller == nil {
		return
	}
	var req dto.UpdateFileRequest
	if !bindJSON(c, &req, "file") {
		return
	}
	file, err := h.service.Update(c.Request.Context(), caller, c.Param("fileId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, file, nil)
}

// Delete godoc
// @Summary Delete file
// @Description Removes the metadata and releases the stored binary
// @Tags Files
// @Security BearerAuth
// @Param fileId path string true "File ID"
// @Success 204
// @Router /files/{fileId} [delete]
func (h *FileHandler) Delete(c *gin.Context) {
	caller := callerOrAbort(c)
	if caller == nil {
		return
	}
	if err := h.service.Delete(c.Request.Context(), caller, c.Param("fileId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
