package config

import "time"

// RateLimitConfig controls the Redis-backed fixed-window rate limiter.
// MaxCalls requests are allowed per Period window, counted per client IP.
// When Enabled is false or no Redis client is available the middleware is a
// pass-through.
type RateLimitConfig struct {
	Enabled  bool
	MaxCalls int
	Period   time.Duration
	Prefix   string
	Debug    bool
}

// LoadRateLimitConfig reads environment variables to build a RateLimitConfig.
// Defaults allow 20 requests per 59-second window, mirroring the window the
// deployment uses in front of the auth endpoints.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:  envBool("RATE_LIMIT_ENABLED", true),
		MaxCalls: envInt("RATE_LIMIT_MAX_CALLS", 20),
		Period:   envDur("RATE_LIMIT_PERIOD", 59*time.Second),
		Prefix:   envStr("RATE_LIMIT_PREFIX", "rl"),
		Debug:    envBool("RATE_LIMIT_DEBUG", false),
	}
	if cfg.MaxCalls < 1 {
		cfg.MaxCalls = 1
	}
	if cfg.Period <= 0 {
		cfg.Period = time.Second
	}
	return cfg
}
