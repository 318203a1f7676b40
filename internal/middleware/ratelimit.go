package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/assessment-backend/internal/config"
	"github.com/stemsi/assessment-backend/internal/response"
)

// RateLimiter is a fixed-window counter per authenticated user kept in Redis,
// so every instance behind the load balancer shares the same budget.
type RateLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRateLimiter allows limit requests per window. A non-positive limit disables it.
func NewRateLimiter(rdb *redis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		rdb:    rdb,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Middleware returns a Gin middleware that rate-limits requests by user id,
// falling back to the client IP before authentication. It must run after RequireJWT.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.limit <= 0 || rl.rdb == nil {
			c.Next()
			return
		}

		subject := c.ClientIP()
		if claims := GetClaims(c); claims != nil {
			subject = claims.UserID.String()
		}

		windowStart := rl.now().Truncate(rl.window)
		key := config.CacheKey.AttemptRateKey(subject, windowStart)

		ctx := c.Request.Context()
		pipe := rl.rdb.TxPipeline()
		incr := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, rl.window)
		if _, err := pipe.Exec(ctx); err != nil {
			// Fail open: Redis trouble must not block students mid-test.
			zerolog.Ctx(ctx).Warn().Err(err).Msg("Rate limiter unavailable")
			c.Next()
			return
		}

		remaining := rl.limit - int(incr.Val())
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))

		if remaining < 0 {
			retry := windowStart.Add(rl.window).Sub(rl.now())
			c.Header("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}
