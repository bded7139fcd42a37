package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/auth-service/internal/config"
)

// NewRateLimiter returns a Redis-backed fixed-window limiter keyed by client
// IP. Every request increments a per-window counter in one transactional
// pipeline (INCR + EXPIRE); once the counter passes MaxCalls the request is
// rejected with 429 until the window rolls over.
//
// Limiting is best-effort glue, not an authorization control: when Redis
// errors the middleware lets the request through (and optionally logs),
// unlike the token gate which fails closed.
func NewRateLimiter(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			window := time.Now().Truncate(cfg.Period).Unix()
			key := fmt.Sprintf("%s:%s:%d", cfg.Prefix, ip, window)

			ctx := c.Request().Context()
			pipe := rdb.TxPipeline()
			count := pipe.Incr(ctx, key)
			pipe.Expire(ctx, key, cfg.Period)
			if _, err := pipe.Exec(ctx); err != nil {
				if cfg.Debug {
					c.Logger().Warnf("[ratelimit] redis error for key=%s: %v", key, err)
				}
				return next(c)
			}

			n := count.Val()
			remaining := int64(cfg.MaxCalls) - n
			if remaining < 0 {
				remaining = 0
			}
			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.MaxCalls))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if n > int64(cfg.MaxCalls) {
				retry := int(cfg.Period / time.Second)
				c.Response().Header().Set("Retry-After", strconv.Itoa(retry))
				if cfg.Debug {
					c.Logger().Infof("[ratelimit] block key=%s count=%d", key, n)
				}
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "too_many_requests",
					"retry_after": retry,
				})
			}
			return next(c)
		}
	}
}
