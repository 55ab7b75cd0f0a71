package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// corsMaxAge is how long, in seconds, browsers may cache a preflight.
const corsMaxAge = 3600

// CORS lets browser front-ends on allowedOrigins call the API. Tokens travel
// in the Authorization header, so credentials mode stays off and "*" is
// safe to configure.
func CORS(allowedOrigins []string) echo.MiddlewareFunc {
	return echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowHeaders: []string{
			echo.HeaderContentType,
			echo.HeaderAuthorization,
			RequestIDHeader,
		},
		ExposeHeaders: []string{
			RequestIDHeader,
			"Retry-After",
		},
		MaxAge: corsMaxAge,
	})
}
