package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dmr-api/internal/authz"
	"github.com/noah-isme/dmr-api/pkg/response"
)

// Authorize rejects callers whose role may not perform op on the policy's
// resource. Ownership rules need the loaded record and run in the services.
func Authorize(policy *authz.Policy, op authz.Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := authz.Authorize(policy, CallerFromContext(c), op, nil); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}
