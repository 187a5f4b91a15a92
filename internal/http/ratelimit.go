package http

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/holeportal/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"
)

// idleTTL is how long a client's bucket is kept after its last request.
const idleTTL = 10 * time.Minute

// RateLimiter throttles requests per client IP with a token bucket per
// client.
type RateLimiter struct {
	interval time.Duration // between restored tokens
	burst    int
	now      func() time.Time

	mu        sync.Mutex
	clients   map[string]*clientBucket
	lastSweep time.Time
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows each client requests per period, all of which may
// arrive at once.
func NewRateLimiter(requests int, period time.Duration) *RateLimiter {
	requests = max(requests, 1)
	return &RateLimiter{
		interval: period / time.Duration(requests),
		burst:    requests,
		now:      time.Now,
		clients:  make(map[string]*clientBucket),
	}
}

// Allow consumes a token from the bucket of key.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	bucket, ok := l.clients[key]
	if !ok {
		bucket = &clientBucket{limiter: rate.NewLimiter(rate.Every(l.interval), l.burst)}
		l.clients[key] = bucket
	}
	bucket.lastSeen = now

	return bucket.limiter.AllowN(now, 1)
}

// sweep drops idle buckets at most once per idleTTL. Must be called with mu held.
func (l *RateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < idleTTL {
		return
	}
	l.lastSweep = now

	for key, bucket := range l.clients {
		if now.Sub(bucket.lastSeen) >= idleTTL {
			delete(l.clients, key)
		}
	}
}

// retryAfter is the whole number of seconds until one token is restored.
func (l *RateLimiter) retryAfter() string {
	seconds := (l.interval + time.Second - 1) / time.Second
	return strconv.Itoa(int(max(seconds, 1)))
}

// Middleware rejects requests over the limit with 429. Clients are keyed by
// the IP set by ClientIPMiddleware, falling back to ExtractClientIP. CORS
// preflights are never counted.
func (l *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			ip := ClientIPFromContext(r.Context())
			if ip == "" {
				ip = ExtractClientIP(r)
			}

			if !l.Allow(ip) {
				log.Warn().Str("client_ip", ip).Str("path", r.URL.Path).Msg("Rate limit exceeded")
				telemetry.GetMetrics().RateLimitedTotal.Add(r.Context(), 1,
					metric.WithAttributes(attribute.String("path", r.URL.Path)))
				w.Header().Set("Retry-After", l.retryAfter())
				WriteJSON(w, http.StatusTooManyRequests, map[string]string{"detail": "rate limit exceeded"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
