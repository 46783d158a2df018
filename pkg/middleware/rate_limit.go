package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/convenios/prioridades/pkg/metrics"
)

// limiters holds one token bucket per client and limiter setting.
var limiters sync.Map // map[string]*rate.Limiter

func bucketFor(key string, rps float64, burst int) *rate.Limiter {
	key = fmt.Sprintf("%s|%g|%d", key, rps, burst)
	if v, ok := limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}
	v, _ := limiters.LoadOrStore(key, rate.NewLimiter(rate.Limit(rps), burst))
	return v.(*rate.Limiter)
}

// RateLimitMiddleware limits each client (subject, else IP) of this process
// to rps requests per second with bursts of burst.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	return func(c *gin.Context) {
		lim := bucketFor(limiterKey(c), rps, burst)
		now := time.Now()
		res := lim.ReserveN(now, 1)
		if !res.OK() || res.DelayFrom(now) > 0 {
			wait := time.Second
			if res.OK() {
				wait = res.DelayFrom(now)
				res.CancelAt(now)
			}
			reject(c, "memory", wait)
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(burst))
		metrics.RateLimitAllowed.WithLabelValues("memory").Inc()
		c.Next()
	}
}

// reject answers 429 with a Retry-After rounded up to whole seconds.
func reject(c *gin.Context, limiter string, wait time.Duration) {
	secs := int(math.Ceil(wait.Seconds()))
	if secs < 1 {
		secs = 1
	}
	c.Header("Retry-After", strconv.Itoa(secs))
	metrics.RateLimitRejected.WithLabelValues(limiter).Inc()
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
}
