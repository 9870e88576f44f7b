package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dmr-api/internal/models"
	appErrors "github.com/noah-isme/dmr-api/pkg/errors"
	"github.com/noah-isme/dmr-api/pkg/response"
)

// ContextCallerKey is the gin context key storing the resolved caller.
const ContextCallerKey = "currentCaller"

// CallerAuthenticator turns a bearer token into the caller it belongs to.
type CallerAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*models.Caller, error)
}

// JWT protects routes by requiring a valid access token. The caller's role is
// resolved from the account on every request.
func JWT(auth CallerAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		caller, err := auth.Authenticate(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextCallerKey, caller)
		c.Next()
	}
}

// CallerFromContext returns the authenticated caller or nil.
func CallerFromContext(c *gin.Context) *models.Caller {
	value, exists := c.Get(ContextCallerKey)
	if !exists {
		return nil
	}
	caller, _ := value.(*models.Caller)
	return caller
}
