package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dmr-api/internal/dto"
	"github.com/noah-isme/dmr-api/internal/middleware"
	"github.com/noah-isme/dmr-api/internal/models"
	"github.com/noah-isme/dmr-api/pkg/response"
)

type dashboardService interface {
	Summary(ctx context.Context, caller *models.Caller) (*dto.DashboardResponse, bool, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Summary godoc
// @Summary Instructor dashboard
// @Description Patient count and diagnostic request counts by kind and status; admins also receive runtime figures
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /instructor/dashboard [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	caller := callerOrAbort(c)
	if caller == nil {
		return
	}
	summary, hit, err := h.service.Summary(c.Request.Context(), caller)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	respondOK(c, summary, nil)
}
