package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "github.com/NomadCrew/nomad-budget-backend/errors"
	"github.com/NomadCrew/nomad-budget-backend/logger"
	"github.com/NomadCrew/nomad-budget-backend/types"
	"github.com/gin-gonic/gin"
)

// UserRecorder remembers identities seen on valid tokens so background jobs
// can address the user later.
type UserRecorder interface {
	Remember(ctx context.Context, user types.User) error
}

// AuthMiddleware requires a valid access token. The token comes from the
// Authorization header, or the token query parameter on websocket upgrades.
// users may be nil.
func AuthMiddleware(validator Validator, users UserRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.GetLogger()

		token := bearerToken(c)
		if token == "" {
			log.Debugw("No token provided in request", "path", c.Request.URL.Path)
			_ = c.Error(apperrors.Unauthorized("missing_token", "Authorization required"))
			c.Abort()
			return
		}

		user, err := validator.Validate(token)
		if err != nil {
			switch {
			case errors.Is(err, ErrTokenExpired):
				appErr := apperrors.Unauthorized("token_expired", "Your session has expired")
				c.Set("auth_error_response", gin.H{
					"type":             string(appErr.Type),
					"code":             appErr.Code,
					"message":          appErr.Message,
					"refresh_required": true,
				})
				_ = c.Error(appErr)
			default:
				log.Warnw("Token validation failed", "token", logger.MaskJWT(token), "error", err)
				_ = c.Error(apperrors.Unauthorized("invalid_token", "Invalid or malformed token"))
			}
			c.Abort()
			return
		}

		c.Set(string(UserIDKey), user.UID)
		c.Set(string(UserKey), *user)

		if users != nil && user.Email != "" {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			if err := users.Remember(ctx, *user); err != nil {
				log.Warnw("Failed to record user identity", "userID", user.UID, "error", err)
			}
			cancel()
		}

		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		return c.Query("token")
	}
	return ""
}
