package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/orgsphere/backend/internal/auth"
	"github.com/orgsphere/backend/pkg/response"
)

// JWT returns a middleware that validates the bearer token and attaches the
// decoded identity to the gin context. Requests without a valid token are
// rejected before reaching any handler.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "Missing or invalid token")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "Missing or invalid token")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "Invalid token")
			c.Abort()
			return
		}
		c.Set(auth.ContextUserID, claims.UserID)
		c.Set(auth.ContextClaims, claims)
		c.Next()
	}
}
