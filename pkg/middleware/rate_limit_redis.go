package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/convenios/prioridades/pkg/logger"
	"github.com/convenios/prioridades/pkg/metrics"
)

// RedisRateLimitMiddleware is a fixed-window limiter shared by every replica:
// each client gets floor(rps*window)+burst requests per window. Redis errors
// let the request through. A nil client falls back to RateLimitMiddleware.
func RedisRateLimitMiddleware(client *redis.Client, rps float64, burst int, window time.Duration) gin.HandlerFunc {
	if client == nil {
		return RateLimitMiddleware(rps, burst)
	}
	if window < time.Second {
		window = time.Second
	}
	windowSecs := int64(window / time.Second)
	limit := int64(rps*float64(windowSecs)) + int64(burst)
	limitHeader := strconv.FormatInt(limit, 10)

	return func(c *gin.Context) {
		now := time.Now().Unix()
		slot := now / windowSecs
		key := fmt.Sprintf("prioridades:rl:%s:%d", limiterKey(c), slot)

		ctx := c.Request.Context()
		pipe := client.TxPipeline()
		incr := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, window+time.Second)
		if _, err := pipe.Exec(ctx); err != nil {
			logger.Warnf("redis rate limit unavailable, allowing request: %v", err)
			c.Next()
			return
		}

		count := incr.Val()
		if count > limit {
			resetIn := time.Duration((slot+1)*windowSecs-now) * time.Second
			reject(c, "redis", resetIn)
			return
		}
		c.Header("X-RateLimit-Limit", limitHeader)
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(limit-count, 10))
		metrics.RateLimitAllowed.WithLabelValues("redis").Inc()
		c.Next()
	}
}
