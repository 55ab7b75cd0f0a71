package auth

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/todoapi/internal/apperror"
)

// contextKeyIdentity stores the resolved Identity in the Echo context.
// Other plugins read it through GetIdentity.
const contextKeyIdentity = "auth_identity"

// bearerPrefix is matched case-insensitively.
const bearerPrefix = "bearer "

// RequireAuth returns middleware that resolves the bearer token in the
// Authorization header to a live user and stores the Identity in the
// context. Missing, malformed, expired or stale tokens get a 401.
func RequireAuth(service AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c)
			if token == "" {
				return apperror.NewUnauthorized("authentication required")
			}

			identity, err := service.ResolveSession(c.Request().Context(), token)
			if err != nil {
				return err
			}

			c.Set(contextKeyIdentity, identity)
			return next(c)
		}
	}
}

// GetIdentity returns the Identity stored by RequireAuth, or nil on routes
// without it.
func GetIdentity(c echo.Context) *Identity {
	identity, _ := c.Get(contextKeyIdentity).(*Identity)
	return identity
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}
