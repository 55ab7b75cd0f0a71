package todo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/keyxmakerx/todoapi/internal/apperror"
	"github.com/keyxmakerx/todoapi/internal/pagination"
)

// DefaultOrderBy is the sort field used when a list query names none.
const DefaultOrderBy = "updatedAt"

// sortColumns maps every sortable JSON field to its column. Only these
// names ever reach an ORDER BY clause.
var sortColumns = map[string]string{
	"id":          "id",
	"title":       "title",
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
	"completedAt": "completed_at",
}

// SortableFields lists the field names accepted by orderBy.
var SortableFields = []string{"id", "title", "createdAt", "updatedAt", "completedAt"}

// TodoRepository defines the data access contract for tasks.
// All SQL lives in the concrete implementation -- no SQL leaks out.
type TodoRepository interface {
	// Create inserts todo and sets its ID.
	Create(ctx context.Context, todo *Todo) error

	// FindByID returns apperror.NotFound on a miss.
	FindByID(ctx context.Context, id int64) (*Todo, error)

	// Update writes every mutable column of todo in one statement.
	Update(ctx context.Context, todo *Todo) error

	// Delete hard-deletes the row. Returns apperror.NotFound when no row
	// was removed.
	Delete(ctx context.Context, id int64) error

	// Count returns the total number of tasks.
	Count(ctx context.Context) (int, error)

	// List returns one page of tasks in the requested order.
	List(ctx context.Context, opts pagination.Options) ([]Todo, error)
}

// todoRepository implements TodoRepository with hand-written MariaDB queries.
type todoRepository struct {
	db *sql.DB
}

// NewTodoRepository creates a new task repository backed by the given DB pool.
func NewTodoRepository(db *sql.DB) TodoRepository {
	return &todoRepository{db: db}
}

const todoColumns = `id, title, description, completed_at, created_at, updated_at`

// Create inserts a new task row.
func (r *todoRepository) Create(ctx context.Context, todo *Todo) error {
	query := `INSERT INTO todo (title, description, completed_at, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		todo.Title,
		todo.Description,
		todo.CompletedAt,
		todo.CreatedAt,
		todo.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting todo: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading inserted todo id: %w", err)
	}
	todo.ID = id

	return nil
}

// FindByID retrieves a task by its primary key.
func (r *todoRepository) FindByID(ctx context.Context, id int64) (*Todo, error) {
	query := `SELECT ` + todoColumns + ` FROM todo WHERE id = ?`

	todo := &Todo{}
	err := scanTodo(r.db.QueryRowContext(ctx, query, id), todo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound(fmt.Sprintf("todo %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying todo by id: %w", err)
	}

	return todo, nil
}

// Update overwrites the mutable columns of an existing task. Returns
// NotFound when no row matched, e.g. the task was deleted after it was read.
// The pool connects with clientFoundRows, so matched rows are counted even
// when every value is unchanged.
func (r *todoRepository) Update(ctx context.Context, todo *Todo) error {
	query := `UPDATE todo SET title = ?, description = ?, completed_at = ?, updated_at = ?
	          WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		todo.Title,
		todo.Description,
		todo.CompletedAt,
		todo.UpdatedAt,
		todo.ID,
	)
	if err != nil {
		return fmt.Errorf("updating todo: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking updated rows: %w", err)
	}
	if affected == 0 {
		return apperror.NewNotFound(fmt.Sprintf("todo %d not found", todo.ID))
	}

	return nil
}

// Delete removes a task row.
func (r *todoRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM todo WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting todo: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking deleted rows: %w", err)
	}
	if affected == 0 {
		return apperror.NewNotFound(fmt.Sprintf("todo %d not found", id))
	}

	return nil
}

// Count returns the number of task rows.
func (r *todoRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM todo`).Scan(&total); err != nil {
		return 0, fmt.Errorf("counting todos: %w", err)
	}
	return total, nil
}

// List returns one page of tasks. Ties on the sort column are broken by id
// so pages never overlap.
func (r *todoRepository) List(ctx context.Context, opts pagination.Options) ([]Todo, error) {
	column, ok := sortColumns[opts.OrderBy]
	if !ok {
		return nil, fmt.Errorf("unsortable field %q", opts.OrderBy)
	}
	direction := "DESC"
	if opts.Order == pagination.Asc {
		direction = "ASC"
	}

	query := `SELECT ` + todoColumns + ` FROM todo
	          ORDER BY ` + column + ` ` + direction + `, id ` + direction + `
	          LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, opts.Limit, opts.Offset())
	if err != nil {
		return nil, fmt.Errorf("listing todos: %w", err)
	}
	defer rows.Close()

	var todos []Todo
	for rows.Next() {
		var t Todo
		if err := scanTodo(rows, &t); err != nil {
			return nil, fmt.Errorf("scanning todo row: %w", err)
		}
		todos = append(todos, t)
	}

	return todos, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(row rowScanner, t *Todo) error {
	return row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.CompletedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
}
