package ratelimit

import (
	"context"
	"log"
	"math"
	"net/http"
	"strconv"

	"github.com/rohithreddydev/taskforge-cloud-platform/internal/dto"

	"github.com/gin-gonic/gin"
)

// Admitter is what the middleware needs from a limiter.
type Admitter interface {
	Allow(ctx context.Context, key string, limit int) (Result, error)
}

// ByClient returns a middleware enforcing limit requests per window,
// keyed by client IP and route. If the limiter's backend is unreachable
// the request is admitted: an unavailable limiter must not become a
// denial of service against our own clients.
func ByClient(l Admitter, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP() + ":" + c.FullPath()
		res, err := l.Allow(c.Request.Context(), key, limit)
		if err != nil {
			log.Printf("rate limiter unavailable, admitting %s: %v", key, err)
			c.Next()
			return
		}
		if !res.Allowed {
			seconds := int(math.Ceil(res.RetryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				dto.Error(dto.KindRateLimited, "rate limit exceeded, try again later"))
			return
		}
		c.Next()
	}
}
