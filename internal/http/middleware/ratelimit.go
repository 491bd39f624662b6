// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// The rate limiter below keeps one token bucket per caller identity in
// process memory. Buckets idle for longer than the TTL are swept at most
// once per TTL, so memory stays bounded by the number of identities seen in
// one window. Limits are per process; replicas do not share buckets.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	bucketTTL = 10 * time.Minute
	// maxRetryAfter is reported when the bucket can never refill (rps 0).
	maxRetryAfter = 60
)

// keyFunc maps a request to the identity of its bucket.
type keyFunc func(*gin.Context) string

// KeyByCallerOrIP keys buckets by the caller set by BearerAuth and falls
// back to the client IP. Keys carry a namespace prefix, e.g. "caller:admin"
// or "ip:203.0.113.7".
func KeyByCallerOrIP() keyFunc {
	return func(c *gin.Context) string {
		if s := c.GetString(callerKey); s != "" {
			return "caller:" + s
		}
		return "ip:" + c.ClientIP()
	}
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a keyed token-bucket limiter. It is safe for concurrent use.
type RateLimiter struct {
	limit rate.Limit
	burst int
	keyFn keyFunc
	ttl   time.Duration
	now   func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

// NewRateLimiter builds a limiter refilling rps tokens per second up to
// burst (coerced to at least 1), keyed by keyFn.
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:     rate.Limit(rps),
		burst:     burst,
		keyFn:     keyFn,
		ttl:       bucketTTL,
		now:       time.Now,
		buckets:   make(map[string]*bucket),
		lastSweep: time.Now(),
	}
}

// bucketFor returns the limiter of key, creating it on first use. Idle
// buckets are swept before the lookup so a stale bucket is never revived.
func (rl *RateLimiter) bucketFor(key string) *rate.Limiter {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) >= rl.ttl {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.ttl {
				delete(rl.buckets, k)
			}
		}
		rl.lastSweep = now
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter
}

// size reports the number of live buckets.
func (rl *RateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// Handler rejects requests over the limit with 429, a Retry-After header
// holding the seconds until the next token, and a JSON error body.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		lim := rl.bucketFor(rl.keyFn(c))

		now := rl.now()
		res := lim.ReserveN(now, 1)
		if res.OK() && res.DelayFrom(now) == 0 {
			c.Next()
			return
		}

		retry := maxRetryAfter
		if res.OK() {
			retry = int(math.Ceil(res.DelayFrom(now).Seconds()))
			res.CancelAt(now)
		}
		rateLimited.WithLabelValues(routeLabel(c)).Inc()

		c.Header("Retry-After", strconv.Itoa(max(1, min(retry, maxRetryAfter))))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody(
			c.Writer.Header().Get(requestIDHeader), "rate_limited", "rate limit exceeded"))
	}
}
