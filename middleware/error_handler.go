package middleware

import (
	"strconv"

	apperrors "github.com/NomadCrew/nomad-budget-backend/errors"
	"github.com/NomadCrew/nomad-budget-backend/logger"
	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Code    string `json:"code,omitempty"`
}

// ErrorHandler renders the last error attached to the context. AppErrors keep
// their type and status; anything else becomes a 500 without internals.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		last := c.Errors.Last()
		err := last.Err
		log := logger.GetLogger().With(
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
			"request_id", c.GetString(RequestIDKey),
		)

		if appErr, ok := apperrors.As(err); ok {
			status := appErr.GetHTTPStatus()
			if status >= 500 {
				log.Errorw("Request failed", "type", appErr.Type, "error", err)
			} else {
				log.Infow("Request rejected", "type", appErr.Type, "status", status, "error", err)
			}

			if appErr.Type == apperrors.AuthError {
				if v, exists := c.Get("auth_error_response"); exists {
					if body, ok := v.(gin.H); ok {
						c.JSON(status, body)
						return
					}
				}
			}

			code := appErr.Code
			if code == "" {
				code = strconv.Itoa(status)
			}
			resp := ErrorResponse{
				Type:    string(appErr.Type),
				Message: appErr.Message,
				Code:    code,
			}
			if appErr.Detail != "" && (gin.IsDebugging() ||
				appErr.Type == apperrors.ValidationError ||
				appErr.Type == apperrors.NotFoundError ||
				appErr.Type == apperrors.TripNotFoundError ||
				appErr.Type == apperrors.ExpenseNotFoundError ||
				appErr.Type == apperrors.RateLimitError) {
				resp.Details = appErr.Detail
			}
			c.JSON(status, resp)
			return
		}

		if last.Type == gin.ErrorTypeBind {
			log.Infow("Request binding error", "error", err)
			resp := ErrorResponse{
				Type:    string(apperrors.ValidationError),
				Message: "Failed to bind request",
				Code:    "400",
			}
			if gin.IsDebugging() {
				resp.Details = err.Error()
			}
			c.JSON(400, resp)
			return
		}

		log.Errorw("Unexpected server error", "error", err)
		resp := ErrorResponse{
			Type:    string(apperrors.ServerError),
			Message: "Internal Server Error",
			Code:    "500",
		}
		if gin.IsDebugging() {
			resp.Details = err.Error()
		}
		c.JSON(500, resp)
	}
}
