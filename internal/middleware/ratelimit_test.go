package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIPRateLimiter(t *testing.T) {
	now := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	limiter := NewIPRateLimiter(60, 2)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.2"), "buckets are per IP")

	now = now.Add(time.Second)
	assert.True(t, limiter.Allow("10.0.0.1"), "one token refills per second")

	now = now.Add(time.Hour)
	limiter.Allow("10.0.0.3")
	assert.Len(t, limiter.limiters, 1, "idle visitors are evicted")
}

func TestIPRateLimiter_Middleware(t *testing.T) {
	limiter := NewIPRateLimiter(1, 1)
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		r := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		r.RemoteAddr = "192.0.2.1:5555"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestIPRateLimiter_SweepsOncePerIdleInterval(t *testing.T) {
	start := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	now := start
	limiter := NewIPRateLimiter(60, 2)
	limiter.now = func() time.Time { return now }

	limiter.Allow("10.0.0.1")
	now = start.Add(9 * time.Minute)
	limiter.Allow("10.0.0.2")

	now = start.Add(15 * time.Minute)
	limiter.Allow("10.0.0.3")
	assert.Len(t, limiter.limiters, 2, "first visitor idled out")

	now = start.Add(24 * time.Minute)
	limiter.Allow("10.0.0.4")
	assert.Len(t, limiter.limiters, 3, "no sweep within the idle interval")

	now = start.Add(25 * time.Minute)
	limiter.Allow("10.0.0.4")
	assert.Len(t, limiter.limiters, 2)
	assert.NotContains(t, limiter.limiters, "10.0.0.2")
}
