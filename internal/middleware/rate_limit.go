package middleware

import (
	"math"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	appErrors "github.com/noah-isme/wfh-scheduler/pkg/errors"
	"github.com/noah-isme/wfh-scheduler/pkg/response"
)

// RateLimiter hands out one token bucket per acting staff member.
type RateLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

// NewRateLimiter builds a limiter allowing rps sustained requests with the given burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &RateLimiter{limit: limit, burst: burst, limiters: make(map[string]*rate.Limiter)}
}

func (l *RateLimiter) limiterFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = limiter
	}
	return limiter
}

// Forget drops the bucket for key, e.g. when a workspace is evicted.
func (l *RateLimiter) Forget(key string) {
	l.mu.Lock()
	delete(l.limiters, key)
	l.mu.Unlock()
}

func (l *RateLimiter) retryAfterSeconds() int {
	if l.limit == rate.Inf || l.limit <= 0 {
		return 1
	}
	return int(math.Ceil(1 / float64(l.limit)))
}

// Handler rejects requests over budget with 429. Unauthenticated requests are keyed by client IP.
func (l *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if actor, ok := ActorFromContext(c); ok {
			key = strconv.Itoa(actor.StaffID)
		}
		limiter := l.limiterFor(key)
		if !limiter.Allow() {
			c.Header("Retry-After", strconv.Itoa(l.retryAfterSeconds()))
			response.Error(c, appErrors.Clone(appErrors.ErrTooMany, "too many requests, slow down"))
			c.Abort()
			return
		}
		c.Next()
	}
}
