package middleware

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"scholarduel/src/app/http/response"
	"scholarduel/src/core/ports"
)

// RateLimit caps requests per session within window. It must run after Auth.
// A limiter error lets the request through.
func RateLimit(limiter ports.RateLimiter, scope string, limit int, window time.Duration, metrics ports.Metrics, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}

		key := scope + ":" + GetSession(c).UserID.String()
		allowed, err := limiter.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			log.Warn("rate limiter unavailable, allowing request",
				"request_id", GetRequestID(c),
				"scope", scope,
				"error", err,
			)
			c.Next()
			return
		}

		if !allowed {
			metrics.RateLimited(scope)
			c.Header("Retry-After", retryAfter(window))
			response.TooManyRequests(c, "too many requests, slow down", GetRequestID(c))
			c.Abort()
			return
		}
		c.Next()
	}
}

func retryAfter(window time.Duration) string {
	secs := int(window / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
