package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/keyxmakerx/todoapi/internal/apperror"
)

// invalidCredentialsMessage is the single message for every signin failure.
// Unknown identifier, deleted user and wrong password are indistinguishable.
const invalidCredentialsMessage = "invalid id or password"

// invalidSessionMessage is the single message for every token failure.
const invalidSessionMessage = "invalid or expired access token"

// AuthService defines the business logic contract for authentication.
// Handlers call these methods -- they never touch the repository directly.
type AuthService interface {
	Signup(ctx context.Context, input SignupInput) (*User, error)
	ValidateCredentials(ctx context.Context, input SigninInput) (*User, error)
	Signin(ctx context.Context, input SigninInput) (string, error)
	ResolveSession(ctx context.Context, token string) (*Identity, error)
}

// authService implements AuthService with bcrypt hashing and HS256 tokens.
type authService struct {
	repo       UserRepository
	tokens     *TokenIssuer
	bcryptCost int
	location   *time.Location
	now        func() time.Time

	// dummyHash is compared against when the identifier matches nobody, so
	// a miss costs the same bcrypt work as a wrong password.
	dummyHash []byte
}

// NewAuthService creates a new auth service with the given dependencies.
// location is used to format token expiry for display.
func NewAuthService(repo UserRepository, tokens *TokenIssuer, bcryptCost int, location *time.Location) (AuthService, error) {
	dummy, err := bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("generating dummy hash: %w", err)
	}
	if location == nil {
		location = time.UTC
	}
	return &authService{
		repo:       repo,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		location:   location,
		now:        time.Now,
		dummyHash:  dummy,
	}, nil
}

// Signup creates a new user. The duplicate lookup is advisory; the unique
// index is what actually guarantees uniqueness under concurrent signups.
func (s *authService) Signup(ctx context.Context, input SignupInput) (*User, error) {
	dups, err := s.repo.FindDuplicates(ctx, input.Username, input.Email)
	if err != nil {
		return nil, apperror.NewStorage("failed to check existing users", err)
	}
	if len(dups) > 0 {
		return nil, apperror.NewConflict("username or email already registered")
	}

	hash, err := hashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	now := s.now().UTC().Truncate(time.Second)
	user := &User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateUser) {
			return nil, apperror.NewConflict("username or email already registered")
		}
		return nil, apperror.NewStorage("failed to create user", err)
	}

	slog.Info("user registered",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return user, nil
}

// ValidateCredentials resolves the identifier to a live user and checks the
// password against its stored hash. Every failure yields the same 401.
func (s *authService) ValidateCredentials(ctx context.Context, input SigninInput) (*User, error) {
	user, err := s.repo.FindActiveByIdentifier(ctx, input.Identifier)
	if err != nil {
		if !apperror.IsNotFound(err) {
			return nil, apperror.NewStorage("failed to look up user", err)
		}
		// Burn the same hashing time as a real comparison.
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(input.Password))
		return nil, apperror.NewUnauthorized(invalidCredentialsMessage)
	}

	if !verifyPassword(input.Password, user.PasswordHash) || user.IsDeleted() {
		return nil, apperror.NewUnauthorized(invalidCredentialsMessage)
	}

	return user, nil
}

// Signin validates credentials and issues an access token.
func (s *authService) Signin(ctx context.Context, input SigninInput) (string, error) {
	user, err := s.ValidateCredentials(ctx, input)
	if err != nil {
		return "", err
	}

	token, _, err := s.tokens.Issue(user)
	if err != nil {
		return "", apperror.NewInternal(err)
	}

	slog.Info("user signed in",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return token, nil
}

// ResolveSession verifies token and re-reads the user it names. A valid
// signature is not enough: the user must still exist, be live, and keep the
// username the token was issued for.
func (s *authService) ResolveSession(ctx context.Context, token string) (*Identity, error) {
	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		slog.Debug("rejected access token", slog.Any("error", err))
		return nil, apperror.NewUnauthorized(invalidSessionMessage)
	}

	user, err := s.repo.FindActiveByIDAndUsername(ctx, claims.ID, claims.Username)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewUnauthorized(invalidSessionMessage)
		}
		return nil, apperror.NewStorage("failed to look up user", err)
	}
	if user.IsDeleted() {
		return nil, apperror.NewUnauthorized(invalidSessionMessage)
	}

	expiresAt := claims.ExpiresAt.Time
	return &Identity{
		User:               user,
		ExpiresAtEpoch:     expiresAt.Unix(),
		ExpiresAtFormatted: expiresAt.In(s.location).Format(time.RFC3339),
	}, nil
}

// --- Password Hashing (bcrypt) ---

// hashPassword returns the bcrypt hash of password at the given cost.
func hashPassword(password string, cost int) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// verifyPassword reports whether password matches the bcrypt hash. A
// malformed hash never matches.
func verifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
