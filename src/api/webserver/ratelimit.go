package webserver

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter is a sliding-window limiter keyed by principal, falling back
// to client IP for anonymous callers.
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	rate     int
	window   time.Duration
	now      func() time.Time
	swept    time.Time
}

func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	if rate <= 0 {
		rate = 30
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		rate:     rate,
		window:   window,
		now:      time.Now,
	}
}

// allow records a hit for key and reports whether it fits the window. When it
// does not, wait is how long until the oldest hit ages out.
func (rl *RateLimiter) allow(key string) (ok bool, wait time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	valid := rl.requests[key][:0]
	for _, t := range rl.requests[key] {
		if now.Sub(t) < rl.window {
			valid = append(valid, t)
		}
	}
	if now.Sub(rl.swept) >= rl.window {
		rl.sweep(now)
	}

	if len(valid) >= rl.rate {
		rl.requests[key] = valid
		return false, rl.window - now.Sub(valid[0])
	}
	rl.requests[key] = append(valid, now)
	return true, 0
}

// sweep drops keys idle for a full window.
func (rl *RateLimiter) sweep(now time.Time) {
	rl.swept = now
	for key, times := range rl.requests {
		if len(times) == 0 || now.Sub(times[len(times)-1]) >= rl.window {
			delete(rl.requests, key)
		}
	}
}

func RateLimitMiddleware(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString("username")
		if key == "" {
			key = c.ClientIP()
		}

		ok, wait := limiter.allow(key)
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"err":  fmt.Sprintf("rate limit exceeded: %d requests per %v", limiter.rate, limiter.window),
				"code": "rate_limited",
			})
			return
		}
		c.Next()
	}
}
