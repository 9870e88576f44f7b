package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dmr-api/internal/middleware"
	"github.com/noah-isme/dmr-api/internal/models"
	appErrors "github.com/noah-isme/dmr-api/pkg/errors"
	"github.com/noah-isme/dmr-api/pkg/response"
)

// callerOrAbort returns the authenticated caller, writing a 401 when the
// route was mounted without the JWT middleware.
func callerOrAbort(c *gin.Context) *models.Caller {
	caller := middleware.CallerFromContext(c)
	if caller == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil
	}
	return caller
}

func bindJSON(c *gin.Context, dst interface{}, what string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid "+what+" payload"))
		return false
	}
	return true
}

func bindQuery(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return false
	}
	return true
}

func respondOK(c *gin.Context, data interface{}, pagination *models.Pagination) {
	response.JSON(c, http.StatusOK, data, pagination, middleware.ExtractMeta(c))
}
