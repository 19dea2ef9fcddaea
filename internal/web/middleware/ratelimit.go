package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JonMunkholm/lexia/internal/core"
)

var errRateLimited = errors.New("rate limit exceeded")

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows requestsPerMinute per IP with the given burst.
// Buckets idle longer than ttl are dropped.
func NewRateLimiter(requestsPerMinute, burst int, ttl time.Duration) *RateLimiter {
	if burst <= 0 {
		burst = requestsPerMinute
	}
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(time.Minute / time.Duration(max(requestsPerMinute, 1))),
		burst:    burst,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Allow consumes a token for key.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// sweep drops idle buckets at most once per ttl. Caller holds mu.
func (rl *RateLimiter) sweep(now time.Time) {
	if rl.ttl <= 0 || now.Sub(rl.lastSweep) < rl.ttl {
		return
	}
	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.ttl {
			delete(rl.visitors, key)
		}
	}
	rl.lastSweep = now
}

// Len reports how many buckets are tracked.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

// Middleware rejects requests over the limit with 429 and a Retry-After hint.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	retryAfter := strconv.Itoa(max(1, int(time.Duration(float64(time.Second)/float64(rl.limit)).Seconds())))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := core.IPAddressFromContext(r.Context())
		if ip == "" {
			ip = clientIP(r)
		}

		if !rl.Allow(ip) {
			msg := core.MapError(errRateLimited)
			w.Header().Set("Retry-After", retryAfter)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":   msg.Message,
				"message": msg.Message,
				"action":  msg.Action,
				"code":    msg.Code,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
