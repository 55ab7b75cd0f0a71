package auth

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up all auth-related routes on the given Echo instance.
// Signup and signin are public; the profile route requires a bearer token.
// RequireAuth is exported separately for other plugins to use.
//
// signinLimit guards POST /signin against credential stuffing. It may be nil
// when no limiter is configured.
func RegisterRoutes(e *echo.Echo, h *Handler, service AuthService, signinLimit echo.MiddlewareFunc) {
	e.POST("/signup", h.Signup)

	if signinLimit != nil {
		e.POST("/signin", h.Signin, signinLimit)
	} else {
		e.POST("/signin", h.Signin)
	}

	// Per-route so unknown /users paths stay 404.
	e.GET("/users/profile", h.Profile, RequireAuth(service))
}
