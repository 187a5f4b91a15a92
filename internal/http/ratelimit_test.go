package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Allow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := NewRateLimiter(5, time.Minute)
	limiter.now = func() time.Time { return now }

	for i := range 5 {
		require.True(t, limiter.Allow("203.0.113.1"), "request %d", i+1)
	}
	require.False(t, limiter.Allow("203.0.113.1"))

	// buckets are per client
	require.True(t, limiter.Allow("203.0.113.2"))

	// one token every 12s
	now = now.Add(13 * time.Second)
	require.True(t, limiter.Allow("203.0.113.1"))
	require.False(t, limiter.Allow("203.0.113.1"))
}

func TestRateLimiter_SweepsIdleClients(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := NewRateLimiter(1, time.Minute)
	limiter.now = func() time.Time { return now }

	require.True(t, limiter.Allow("203.0.113.1"))
	require.False(t, limiter.Allow("203.0.113.1"))

	now = now.Add(idleTTL)
	require.True(t, limiter.Allow("203.0.113.2"))

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.NotContains(t, limiter.clients, "203.0.113.1")
	assert.Contains(t, limiter.clients, "203.0.113.2")
}

func TestRateLimiter_Middleware(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute)
	handler := ClientIPMiddleware()(limiter.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	do := func(method, ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/api/v1/auth/login", nil)
		req.Header.Set("X-Real-IP", ip)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, do(http.MethodPost, "198.51.100.7").Code)
	assert.Equal(t, http.StatusNoContent, do(http.MethodPost, "198.51.100.7").Code)

	rec := do(http.MethodPost, "198.51.100.7")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "rate limit exceeded", body["detail"])

	// preflights are not counted and other clients are unaffected
	assert.Equal(t, http.StatusNoContent, do(http.MethodOptions, "198.51.100.7").Code)
	assert.Equal(t, http.StatusNoContent, do(http.MethodPost, "198.51.100.8").Code)
}
