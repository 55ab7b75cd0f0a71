package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/todoapi/internal/apperror"
)

// rateLimitKeyPrefix namespaces limiter counters in Redis.
const rateLimitKeyPrefix = "ratelimit:"

// RateLimiter counts requests per client IP in fixed windows stored in
// Redis, so every replica behind the load balancer shares one budget.
type RateLimiter struct {
	redis       *redis.Client
	scope       string
	maxRequests int
	window      time.Duration
}

// NewRateLimiter creates a limiter allowing maxRequests per window for the
// given scope (e.g. "signin"). Different scopes keep separate counters.
func NewRateLimiter(rdb *redis.Client, scope string, maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		redis:       rdb,
		scope:       scope,
		maxRequests: maxRequests,
		window:      window,
	}
}

// Allow records one request for key and reports whether it is within the
// budget, plus the time until the current window resets.
func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	redisKey := rateLimitKeyPrefix + l.scope + ":" + key

	count, err := l.redis.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, 0, fmt.Errorf("incrementing rate limit counter: %w", err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return false, 0, fmt.Errorf("setting rate limit window: %w", err)
		}
	}

	ttl, err := l.redis.TTL(ctx, redisKey).Result()
	if err != nil {
		return false, 0, fmt.Errorf("reading rate limit window: %w", err)
	}
	if ttl < 0 {
		// Key lost its expiry (e.g. crash between INCR and EXPIRE); re-arm it.
		_ = l.redis.Expire(ctx, redisKey, l.window).Err()
		ttl = l.window
	}

	return count <= int64(l.maxRequests), ttl, nil
}

// Middleware returns an Echo middleware enforcing the limiter per RealIP.
// Redis failures fail open: the request proceeds and a warning is logged.
func (l *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			allowed, retryAfter, err := l.Allow(c.Request().Context(), c.RealIP())
			if err != nil {
				slog.Warn("rate limiter unavailable",
					slog.String("scope", l.scope),
					slog.Any("error", err),
				)
				return next(c)
			}
			if !allowed {
				seconds := int(retryAfter.Round(time.Second) / time.Second)
				if seconds < 1 {
					seconds = 1
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(seconds))
				return apperror.NewTooManyRequests("rate limit exceeded, please try again later")
			}
			return next(c)
		}
	}
}
