package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/todoapi/internal/apperror"
	"github.com/keyxmakerx/todoapi/internal/response"
)

// Handler handles HTTP requests for authentication (signup, signin, profile).
// Handlers are thin: they bind the request, call the service, and render the
// response. No business logic lives here.
type Handler struct {
	service AuthService
}

// NewHandler creates a new auth handler with the given service.
func NewHandler(service AuthService) *Handler {
	return &Handler{service: service}
}

// Signup registers a new user (POST /signup).
func (h *Handler) Signup(c echo.Context) error {
	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		return apperror.FromValidation(err)
	}

	user, err := h.service.Signup(c.Request().Context(), SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return response.OK(c, http.StatusCreated, user)
}

// Signin exchanges credentials for an access token (POST /signin).
// The token is returned bare, outside the success envelope.
func (h *Handler) Signin(c echo.Context) error {
	var req SigninRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	if err := req.Validate(); err != nil {
		return apperror.FromValidation(err)
	}

	token, err := h.service.Signin(c.Request().Context(), SigninInput{
		Identifier: req.ID,
		Password:   req.Password,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, TokenResponse{AccessToken: token})
}

// Profile returns the identity resolved from the bearer token
// (GET /users/profile). Requires RequireAuth.
func (h *Handler) Profile(c echo.Context) error {
	identity := GetIdentity(c)
	if identity == nil {
		return apperror.NewUnauthorized("authentication required")
	}
	return c.JSON(http.StatusOK, identity)
}
