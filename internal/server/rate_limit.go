package server

import (
	"context"
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	obslogger "github.com/lightningshop/jobtrack/internal/observability/logger"
	"github.com/lightningshop/jobtrack/internal/ratelimit"
	"go.uber.org/zap"
)

type apiLimiter interface {
	Enabled() bool
	Allow(ctx context.Context, client string) (ratelimit.Result, error)
}

// APIRateLimit throttles /api per client IP.
func (s *Server) APIRateLimit() gin.HandlerFunc {
	return rateLimitMiddleware(s.limiter)
}

func rateLimitMiddleware(limiter apiLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || !limiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		res, err := limiter.Allow(ctx, c.ClientIP())
		if err != nil {
			obslogger.FromContext(ctx).Warn("api rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			obslogger.FromContext(ctx).Warn("api rate limit exceeded",
				zap.String("client_ip", c.ClientIP()),
				zap.String("route", c.FullPath()),
			)
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(res)))
			AbortWithError(c, ErrRateLimited)
			return
		}

		c.Next()
	}
}

func retryAfterSeconds(res ratelimit.Result) int {
	seconds := int(math.Ceil(res.RetryAfter.Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}
