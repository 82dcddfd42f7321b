package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	apperrors "github.com/NomadCrew/nomad-budget-backend/errors"
	"github.com/NomadCrew/nomad-budget-backend/logger"
	"github.com/gin-gonic/gin"
)

// RateLimiter counts a request against key and reports whether it is allowed.
type RateLimiter interface {
	CheckLimit(ctx context.Context, key string, limit int, duration time.Duration) (bool, time.Duration, error)
}

// KeyFunc picks the bucket a request is counted in.
type KeyFunc func(c *gin.Context) string

// ByUser buckets authenticated requests per user and falls back to the client IP.
func ByUser(scope string) KeyFunc {
	return func(c *gin.Context) string {
		if id := GetUserID(c); id != "" {
			return scope + ":user:" + id
		}
		return scope + ":ip:" + c.ClientIP()
	}
}

// ByIP buckets requests per client IP.
func ByIP(scope string) KeyFunc {
	return func(c *gin.Context) string {
		return scope + ":ip:" + c.ClientIP()
	}
}

// RateLimit rejects requests over limit per window with 429 and Retry-After.
// Limiter failures let the request through.
func RateLimit(limiter RateLimiter, keyFn KeyFunc, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || limit <= 0 {
			c.Next()
			return
		}

		allowed, retryAfter, err := limiter.CheckLimit(c.Request.Context(), keyFn(c), limit, window)
		if err != nil {
			logger.GetLogger().Warnw("Rate limit check failed, allowing request", "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		if !allowed {
			seconds := int(retryAfter.Round(time.Second).Seconds())
			if seconds < 1 {
				seconds = 1
			}
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(seconds))
			_ = c.Error(apperrors.RateLimited(fmt.Sprintf("%ds", seconds)))
			c.Abort()
			return
		}

		c.Next()
	}
}
