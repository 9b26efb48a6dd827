package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter applies a per-client token bucket. The key is the user id
// when authenticated, the remote address otherwise. Idle buckets are
// evicted after an hour.
func RateLimiter(r rate.Limit, burst int) func(http.Handler) http.Handler {
	type bucket struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	var mu sync.Mutex
	buckets := make(map[string]*bucket)

	get := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		b, ok := buckets[key]
		if !ok {
			b = &bucket{limiter: rate.NewLimiter(r, burst)}
			buckets[key] = b
		}
		b.lastSeen = time.Now()

		if len(buckets) > 1024 {
			cutoff := time.Now().Add(-time.Hour)
			for k, v := range buckets {
				if v.lastSeen.Before(cutoff) {
					delete(buckets, k)
				}
			}
		}

		return b.limiter
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			key := GetUserID(req.Context())
			if key == "" {
				key = req.RemoteAddr
			}

			if !get(key).Allow() {
				respondError(w, "Too many requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, req)
		})
	}
}
