package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/coachhub/backend/internal/models"
	"github.com/coachhub/backend/pkg/response"
)

// RequireRole returns a middleware that allows only the given roles. Use after JWT.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		roleVal, ok := c.Get(ContextUserRole)
		if !ok {
			response.Unauthorized(c, "Not authenticated")
			c.Abort()
			return
		}
		role, _ := roleVal.(models.Role)
		if _, ok := allowed[role]; !ok {
			response.Forbidden(c, "Unauthorized")
			c.Abort()
			return
		}
		c.Next()
	}
}
