package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/coachhub/backend/internal/auth"
	"github.com/coachhub/backend/internal/models"
	"github.com/coachhub/backend/pkg/response"
)

// Gin context keys set by JWT.
const (
	ContextUserID    = "user_id"    // uuid.UUID
	ContextUserRole  = "user_role"  // models.Role
	ContextUserEmail = "user_email" // string
)

// JWT rejects requests without a valid bearer token and stores the caller's claims in the context.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, msg := bearerToken(c.GetHeader("Authorization"))
		if msg != "" {
			response.Unauthorized(c, msg)
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserRole, models.Role(claims.Role))
		c.Set(ContextUserEmail, claims.Email)
		c.Next()
	}
}

// bearerToken extracts the token, or returns the client-facing reason it could not.
func bearerToken(header string) (string, string) {
	if header == "" {
		return "", "Not authenticated"
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", "invalid authorization header"
	}
	return token, ""
}
