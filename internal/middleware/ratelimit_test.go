package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/auth-service/internal/config"
)

func limiterFixture(t *testing.T, cfg config.RateLimitConfig) (echo.MiddlewareFunc, *miniredis.Miniredis) {
	t.Helper()
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRateLimiter(cfg, client), m
}

func limitedRequest(t *testing.T, mw echo.MiddlewareFunc, ip string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = ip + ":12345"
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, mw(okHandler)(c))
	return rec
}

func TestRateLimiterBlocksAfterLimit(t *testing.T) {
	mw, _ := limiterFixture(t, config.RateLimitConfig{
		Enabled:  true,
		MaxCalls: 2,
		Period:   time.Minute,
		Prefix:   "rl",
	})

	first := limitedRequest(t, mw, "198.51.100.1")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	second := limitedRequest(t, mw, "198.51.100.1")
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "0", second.Header().Get("X-RateLimit-Remaining"))

	third := limitedRequest(t, mw, "198.51.100.1")
	assert.Equal(t, http.StatusTooManyRequests, third.Code)
	assert.Equal(t, "60", third.Header().Get("Retry-After"))
}

func TestRateLimiterIsPerIP(t *testing.T) {
	mw, _ := limiterFixture(t, config.RateLimitConfig{
		Enabled:  true,
		MaxCalls: 1,
		Period:   time.Minute,
		Prefix:   "rl",
	})

	assert.Equal(t, http.StatusOK, limitedRequest(t, mw, "198.51.100.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, limitedRequest(t, mw, "198.51.100.1").Code)

	// A different client still has its own budget.
	assert.Equal(t, http.StatusOK, limitedRequest(t, mw, "198.51.100.2").Code)
}

func TestRateLimiterDisabledPassesThrough(t *testing.T) {
	mw := NewRateLimiter(config.RateLimitConfig{Enabled: false}, nil)
	for i := 0; i < 10; i++ {
		assert.Equal(t, http.StatusOK, limitedRequest(t, mw, "198.51.100.1").Code)
	}
}

func TestRateLimiterDegradesOpenOnRedisError(t *testing.T) {
	mw, m := limiterFixture(t, config.RateLimitConfig{
		Enabled:  true,
		MaxCalls: 1,
		Period:   time.Minute,
		Prefix:   "rl",
	})
	m.Close()

	// Limiting is best-effort: an unreachable counter never blocks traffic.
	assert.Equal(t, http.StatusOK, limitedRequest(t, mw, "198.51.100.1").Code)
	assert.Equal(t, http.StatusOK, limitedRequest(t, mw, "198.51.100.1").Code)
}
