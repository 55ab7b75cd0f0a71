package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/keyxmakerx/todoapi/internal/apperror"
)

// mysqlErrDuplicateEntry is MySQL/MariaDB error 1062 (ER_DUP_ENTRY).
const mysqlErrDuplicateEntry = 1062

// ErrDuplicateUser is returned by Create when the username or email unique
// index rejects the insert.
var ErrDuplicateUser = errors.New("duplicate username or email")

// UserRepository defines the data access contract for user operations.
// All SQL lives in the concrete implementation -- no SQL leaks out.
type UserRepository interface {
	// Create inserts user and sets its ID. Returns ErrDuplicateUser when
	// the storage uniqueness constraint fires.
	Create(ctx context.Context, user *User) error

	// FindDuplicates returns every user (deleted or not) holding either the
	// username or the email.
	FindDuplicates(ctx context.Context, username, email string) ([]User, error)

	// FindActiveByIdentifier finds a non-deleted user whose username or
	// email equals identifier. Returns apperror.NotFound on a miss.
	FindActiveByIdentifier(ctx context.Context, identifier string) (*User, error)

	// FindActiveByIDAndUsername finds a non-deleted user matching both
	// fields. Returns apperror.NotFound on a miss.
	FindActiveByIDAndUsername(ctx context.Context, id int64, username string) (*User, error)
}

// userRepository implements UserRepository with hand-written MariaDB queries.
type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository backed by the given DB pool.
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, username, email, password, created_at, updated_at, deleted_at`

// Create inserts a new user row into the users table.
func (r *userRepository) Create(ctx context.Context, user *User) error {
	query := `INSERT INTO users (username, email, password, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlErrDuplicateEntry {
			return fmt.Errorf("inserting user: %w", ErrDuplicateUser)
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading inserted user id: %w", err)
	}
	user.ID = id

	return nil
}

// FindDuplicates returns users that already hold username or email.
func (r *userRepository) FindDuplicates(ctx context.Context, username, email string) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ? OR email = ?`

	rows, err := r.db.QueryContext(ctx, query, username, email)
	if err != nil {
		return nil, fmt.Errorf("querying duplicate users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := scanUser(rows, &u); err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

// FindActiveByIdentifier looks a live user up by username or email.
func (r *userRepository) FindActiveByIdentifier(ctx context.Context, identifier string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users
	          WHERE (username = ? OR email = ?) AND deleted_at IS NULL
	          LIMIT 1`

	user := &User{}
	err := scanUser(r.db.QueryRowContext(ctx, query, identifier, identifier), user)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by identifier: %w", err)
	}

	return user, nil
}

// FindActiveByIDAndUsername looks a live user up by the pair stored in a token.
func (r *userRepository) FindActiveByIDAndUsername(ctx context.Context, id int64, username string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users
	          WHERE id = ? AND username = ? AND deleted_at IS NULL`

	user := &User{}
	err := scanUser(r.db.QueryRowContext(ctx, query, id, username), user)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by id and username: %w", err)
	}

	return user, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner, u *User) error {
	return row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.DeletedAt,
	)
}
