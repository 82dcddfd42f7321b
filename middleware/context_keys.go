package middleware

import (
	"github.com/NomadCrew/nomad-budget-backend/types"
	"github.com/gin-gonic/gin"
)

// contextKey defines a type for context keys to avoid collisions.
type contextKey string

const (
	// UserIDKey holds the authenticated user's ID (string).
	UserIDKey contextKey = "userID"
	// UserKey holds the authenticated types.User.
	UserKey contextKey = "authenticatedUser"
)

// GetUserID returns the ID set by AuthMiddleware, or "".
func GetUserID(c *gin.Context) string {
	return c.GetString(string(UserIDKey))
}

// GetUser returns the user set by AuthMiddleware.
func GetUser(c *gin.Context) (types.User, bool) {
	v, ok := c.Get(string(UserKey))
	if !ok {
		return types.User{}, false
	}
	user, ok := v.(types.User)
	return user, ok
}
