package auth

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// ContextUserID is the gin context key for the authenticated user's ID.
	ContextUserID = "auth_user_id"
	// ContextClaims is the gin context key for the full decoded claims.
	ContextClaims = "auth_claims"
)

// CurrentUserID returns the authenticated user's ID from the gin context.
// It panics if called on a route without the JWT middleware.
func CurrentUserID(c *gin.Context) uuid.UUID {
	return c.MustGet(ContextUserID).(uuid.UUID)
}
