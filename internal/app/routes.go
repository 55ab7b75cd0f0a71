package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/todoapi/internal/middleware"
	"github.com/keyxmakerx/todoapi/internal/pagination"
	"github.com/keyxmakerx/todoapi/internal/plugins/auth"
	"github.com/keyxmakerx/todoapi/internal/plugins/todo"
)

// healthTimeout bounds each dependency ping on /healthz.
const healthTimeout = 2 * time.Second

// RegisterRoutes builds every plugin from the shared infrastructure and
// registers its routes. This is the single place where all routes are
// aggregated.
func (a *App) RegisterRoutes() error {
	e := a.Echo

	// --- Public Routes ---

	e.GET("/healthz", healthHandler(map[string]func(context.Context) error{
		"database": a.DB.PingContext,
		"redis": func(ctx context.Context) error {
			return a.Redis.Ping(ctx).Err()
		},
	}))

	// --- auth plugin ---
	userRepo := auth.NewUserRepository(a.DB)
	tokens := auth.NewTokenIssuer(a.Config.Auth.SecretKey, a.Config.Auth.TokenTTL)
	authService, err := auth.NewAuthService(userRepo, tokens, a.Config.Auth.BcryptCost, a.Config.Location)
	if err != nil {
		return fmt.Errorf("creating auth service: %w", err)
	}
	signinLimiter := middleware.NewRateLimiter(a.Redis, "signin",
		a.Config.RateLimit.SigninAttempts, a.Config.RateLimit.SigninWindow)
	auth.RegisterRoutes(e, auth.NewHandler(authService), authService, signinLimiter.Middleware())

	// --- todo plugin ---
	todoService := todo.NewTodoService(todo.NewTodoRepository(a.DB))
	todo.RegisterRoutes(e, todo.NewHandler(todoService, pagination.Bounds{
		DefaultLimit: a.Config.Pagination.DefaultLimit,
		MaxLimit:     a.Config.Pagination.MaxLimit,
	}))

	return nil
}

// healthHandler pings every named dependency and answers 200 when all are
// reachable, 503 otherwise, with a per-dependency status map.
func healthHandler(checks map[string]func(context.Context) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		status := http.StatusOK
		results := make(map[string]string, len(checks))

		for name, check := range checks {
			ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
			err := check(ctx)
			cancel()

			if err != nil {
				slog.Warn("health check failed", slog.String("dependency", name), slog.Any("error", err))
				results[name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "up"
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		return c.JSON(status, map[string]any{
			"status": overall,
			"checks": results,
		})
	}
}
