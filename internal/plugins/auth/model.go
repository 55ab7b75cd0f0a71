// Package auth handles user accounts and authentication: signup, credential
// validation on signin, access-token issuance, and resolving a bearer token
// back to a live user on every authenticated request.
//
// Users are soft-deleted only. Every lookup used for signin or token
// resolution ignores soft-deleted rows, so deleting or renaming a user
// invalidates their outstanding tokens immediately.
package auth

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/golang-jwt/jwt/v5"
)

// User is a registered account. The password is only ever held as a bcrypt
// hash and is never serialised.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	DeletedAt    *time.Time `json:"deletedAt"`
}

// IsDeleted reports whether the user has been soft-deleted.
func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

// --- Request DTOs (bound from HTTP requests) ---

// SignupRequest is the body of POST /signup.
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Normalize trims surrounding whitespace and lower-cases the email.
func (r *SignupRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Password = strings.TrimSpace(r.Password)
}

// Validate checks the request shape. Call Normalize first.
func (r SignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.RuneLength(1, 20), is.Alphanumeric),
		validation.Field(&r.Email, validation.Required, validation.Length(1, 255), is.EmailFormat),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 50), is.Alphanumeric),
	)
}

// SigninRequest is the body of POST /signin. ID is a username or an email.
type SigninRequest struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

// Validate checks that both fields are present.
func (r SigninRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// --- Service Input DTOs (passed from handler to service) ---

// SignupInput is the validated input for creating a user.
type SignupInput struct {
	Username string
	Email    string
	Password string
}

// SigninInput is the validated input for authenticating a user.
type SigninInput struct {
	Identifier string
	Password   string
}

// --- Tokens and sessions ---

// Claims is the payload of an access token. It carries only what is needed
// to find the user again; everything else is re-read from storage.
type Claims struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenResponse is the body returned by a successful signin.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
}

// Identity is the authenticated view of a request: the live user record and
// when the presented token expires.
type Identity struct {
	User               *User  `json:"user"`
	ExpiresAtEpoch     int64  `json:"expires"`
	ExpiresAtFormatted string `json:"expiredAt"`
}
