package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dmr-api/internal/dto"
	"github.com/noah-isme/dmr-api/internal/models"
	"github.com/noah-isme/dmr-api/pkg/response"
)

type fileReleaseService interface {
	Release(ctx context.Context, caller *models.Caller, fileID string, req dto.ManualReleaseRequest) ([]*models.ApprovedFile, error)
	ListReleases(ctx context.Context, caller *models.Caller, fileID string) ([]*models.ApprovedFile, error)
	UpdateRelease(ctx context.Context, caller *models.Caller, id string, req dto.UpdateReleaseRequest) (*models.ApprovedFile, error)
	Revoke(ctx context.Context, caller *models.Caller, id string) error
	StudentGroups(ctx context.Context, caller *models.Caller, search string) ([]*models.Account, error)
}

// FileReleaseHandler manages manual file releases to student groups.
type FileReleaseHandler struct {
	service fileReleaseService
}

// NewFileReleaseHandler constructs the handler.
func NewFileReleaseHandler(svc fileReleaseService) *FileReleaseHandler {
	return &FileReleaseHandler{service: svc}
}

// Release godoc
// @Summary Release file to student groups
// @Tags FileReleases
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param fileId path string true "File ID"
// @Param payload body dto.ManualReleaseRequest true "Release payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /files/{fileId}/release [post]
func (h *FileReleaseHandler) Release(c *gin.Context) {
	caller := callerOrAbort(c)
	if caller == nil {
		return
	}
	var req dto.ManualReleaseRequest
	if !bindJSON(c, &req, "release") {
		return
	}
	releases, err := h.service.Release(c.Request.Context(), caller, c.Param("fileId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, releases, nil)
}

// List godoc
// @Summary List grants on a file
// @Tags FileReleases
// @Produce json
// @Security BearerAuth
// @Param fileId path string true "File ID"
// @Success 200 {object} response.Envelope
// @Router /files/{fileId}/approved-files [get]
func (h *FileReleaseHandler) List(c *gin.Context) {
	caller := callerOrAbort(c)
	if caller == nil {
		return
	}
	releases, err := h.service.ListReleases(c.Request.Context(), caller, c.Param("fileId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, releases, nil)
}

// Update godoc
// @Summary Change the page range of a grant
// @Tags FileReleases
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Approved file ID"
// @Param payload body dto.UpdateReleaseRequest true "Range payload"
// @Success 200 {object} response.Envelope
// @Router /approved-files/{id} [patch]
func (h *FileReleaseHandler) Update(c *gin.Context) {
	caller := callerOrAbort(c)
	if caller == nil {
		return
	}
	var req dto.UpdateReleaseRequest
	if !bindJSON(c, &req, "release") {
		return
	}
	release, err := h.service.UpdateRelease(c.Request.Context(), caller, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, release, nil)
}

// Revoke godoc
// @Summary Revoke a grant
// @Tags FileReleases
// @Security BearerAuth
// @Param id path string true "Approved file ID"
// @Success 204
// @Router /approved-files/{id} [delete]
func (h *FileReleaseHandler) Revoke(c *gin.Context) {
	caller := callerOrAbort(c)
	if caller == nil {
		return
	}
	if err := h.service.Revoke(c.Request.Context(), caller, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// StudentGroups godoc
// @Summary List student group accounts
// @Tags FileReleases
// @Produce json
// @Security BearerAuth
// @Param search query string false "Username or name search"
// @Success 200 {object} response.Envelope
// @Router /student-groups [get]
func (h *FileReleaseHandler) StudentGroups(c *gin.Context) {
	caller := callerOrAbort(c)
	if caller == nil {
		return
	}
	groups, err := h.service.StudentGroups(c.Request.Context(), caller, c.Query("search"))
	if err != nil {
		response.Error(c, err)
		return
	}
	out := make([]dto.AccountInfo, 0, len(groups))
	for _, account := range groups {
		out = append(out, dto.NewAccountInfo(account, models.RoleStudent))
	}
	respondOK(c, out, nil)
}
