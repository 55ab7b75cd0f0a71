package todo

import (
	"context"
	"log/slog"
	"time"

	"github.com/keyxmakerx/todoapi/internal/apperror"
	"github.com/keyxmakerx/todoapi/internal/pagination"
)

// TodoService defines the business logic contract for tasks.
type TodoService interface {
	Create(ctx context.Context, input CreateTodoInput) (*Todo, error)
	Get(ctx context.Context, id int64) (*Todo, error)
	List(ctx context.Context, opts pagination.Options) ([]Todo, pagination.Meta, error)
	Update(ctx context.Context, id int64, req UpdateTodoRequest) (*UpdateResult, error)
	Delete(ctx context.Context, id int64) (*Todo, error)
}

// todoService implements TodoService.
type todoService struct {
	repo TodoRepository
	now  func() time.Time
}

// NewTodoService creates a new task service.
func NewTodoService(repo TodoRepository) TodoService {
	return &todoService{repo: repo, now: time.Now}
}

// Create stamps both timestamps with the same instant and stores the task.
func (s *todoService) Create(ctx context.Context, input CreateTodoInput) (*Todo, error) {
	now := stamp(s.now())
	todo := &Todo{
		Title:       input.Title,
		Description: input.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, todo); err != nil {
		return nil, apperror.NewStorage("failed to create todo", err)
	}

	slog.Info("todo created", slog.Int64("todo_id", todo.ID))
	return todo, nil
}

// Get returns a single task.
func (s *todoService) Get(ctx context.Context, id int64) (*Todo, error) {
	return s.find(ctx, id)
}

// List returns one page of tasks with its metadata. A page with no rows is
// NotFound rather than an empty list.
func (s *todoService) List(ctx context.Context, opts pagination.Options) ([]Todo, pagination.Meta, error) {
	todos, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, pagination.Meta{}, apperror.NewStorage("failed to list todos", err)
	}
	if len(todos) == 0 {
		return nil, pagination.Meta{}, pagination.ErrPageNotFound(opts)
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, pagination.Meta{}, apperror.NewStorage("failed to count todos", err)
	}

	return todos, pagination.NewMeta(total, opts), nil
}

// Update applies req to the stored task. When the overlay changes nothing
// the stored task is returned untouched and storage is not written.
// Otherwise updatedAt is re-stamped and the full candidate is persisted.
//
// The read and the write are separate statements, so two concurrent
// updates of one task can race and the later write wins.
func (s *todoService) Update(ctx context.Context, id int64, req UpdateTodoRequest) (*UpdateResult, error) {
	original, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	candidate := original.Apply(req)
	if original.Compare(candidate).Empty() {
		return &UpdateResult{
			Data:     original,
			IsDirty:  false,
			Dirty:    map[string]any{},
			Original: original,
		}, nil
	}

	candidate.UpdatedAt = stamp(s.now())
	if err := s.repo.Update(ctx, candidate); err != nil {
		if apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, apperror.NewStorage("failed to update todo", err)
	}

	changes := original.Compare(candidate)
	slog.Info("todo updated",
		slog.Int64("todo_id", id),
		slog.Any("fields", changes.Fields()),
	)

	return &UpdateResult{
		Data:     candidate,
		IsDirty:  true,
		Dirty:    changes.Dirty(),
		Original: original,
	}, nil
}

// Delete removes a task and returns its last stored state.
func (s *todoService) Delete(ctx context.Context, id int64) (*Todo, error) {
	todo, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, apperror.NewStorage("failed to delete todo", err)
	}

	slog.Info("todo deleted", slog.Int64("todo_id", id))
	return todo, nil
}

// find loads a task, passing NotFound through and wrapping anything else.
func (s *todoService) find(ctx context.Context, id int64) (*Todo, error) {
	todo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, apperror.NewStorage("failed to load todo", err)
	}
	return todo, nil
}
