// Package todo is the task list: create, read, paged listing, partial update
// with change reporting, and hard delete.
//
// Updates follow a read-modify-diff-write cycle. A patch that changes
// nothing is a successful no-op that never touches storage, so repeating
// the same PATCH leaves updatedAt alone.
package todo

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/keyxmakerx/todoapi/internal/patch"
	"github.com/keyxmakerx/todoapi/internal/sanitize"
)

// Field length limits, counted in characters.
const (
	TitleMaxLength       = 20
	DescriptionMaxLength = 500
)

// Todo is a single task.
type Todo struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	CompletedAt *time.Time `json:"completedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Compare returns the field-level differences from t to candidate, in
// schema order.
func (t *Todo) Compare(candidate *Todo) patch.Changes {
	var c patch.Comparer
	c.Int64("id", t.ID, candidate.ID)
	c.String("title", t.Title, candidate.Title)
	c.NullableString("description", t.Description, candidate.Description)
	c.NullableTime("completedAt", t.CompletedAt, candidate.CompletedAt)
	c.Time("createdAt", t.CreatedAt, candidate.CreatedAt)
	c.Time("updatedAt", t.UpdatedAt, candidate.UpdatedAt)
	return c.Changes()
}

// Apply returns a copy of t with every field present in req overlaid.
// Absent fields keep their stored value; an explicit null clears a
// nullable field.
func (t *Todo) Apply(req UpdateTodoRequest) *Todo {
	out := *t
	if req.Title.Set && !req.Title.Null {
		out.Title = req.Title.Value
	}
	if req.Description.Set {
		out.Description = req.Description.Ptr()
	}
	if req.CompletedAt.Set {
		if req.CompletedAt.Null {
			out.CompletedAt = nil
		} else {
			ts := stamp(req.CompletedAt.Value)
			out.CompletedAt = &ts
		}
	}
	return &out
}

// stamp normalises a timestamp to what storage holds: UTC, whole seconds.
func stamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// --- Request DTOs (bound from HTTP requests) ---

// CreateTodoRequest is the body of POST /todo.
type CreateTodoRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

// Normalize strips markup and surrounding whitespace from text fields.
func (r *CreateTodoRequest) Normalize() {
	r.Title = sanitize.Text(r.Title)
	r.Description = sanitize.TextPtr(r.Description)
}

// Validate checks the request shape. Call Normalize first.
func (r CreateTodoRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.RuneLength(1, TitleMaxLength)),
		validation.Field(&r.Description, validation.RuneLength(0, DescriptionMaxLength)),
	)
}

var errTitleNull = errors.New("cannot be null")

// UpdateTodoRequest is the body of PATCH /todo/:id. Only keys present in
// the JSON are applied.
type UpdateTodoRequest struct {
	Title       patch.Field[string]    `json:"title"`
	Description patch.Field[string]    `json:"description"`
	CompletedAt patch.Field[time.Time] `json:"completedAt"`
}

// Normalize strips markup and surrounding whitespace from present text
// fields.
func (r *UpdateTodoRequest) Normalize() {
	if r.Title.Set && !r.Title.Null {
		r.Title.Value = sanitize.Text(r.Title.Value)
	}
	if r.Description.Set && !r.Description.Null {
		r.Description.Value = sanitize.Text(r.Description.Value)
	}
}

// Validate checks every present field. Title may be changed but never
// cleared.
func (r UpdateTodoRequest) Validate() error {
	errs := validation.Errors{}

	if r.Title.Set {
		if r.Title.Null {
			errs["title"] = errTitleNull
		} else {
			errs["title"] = validation.Validate(r.Title.Value, validation.Required, validation.RuneLength(1, TitleMaxLength))
		}
	}
	if r.Description.Set && !r.Description.Null {
		errs["description"] = validation.Validate(r.Description.Value, validation.RuneLength(0, DescriptionMaxLength))
	}

	return errs.Filter()
}

// --- Service Input/Output DTOs ---

// CreateTodoInput is the validated input for creating a task.
type CreateTodoInput struct {
	Title       string
	Description *string
}

// UpdateResult is the outcome of a partial update. Dirty holds the new
// value of every replaced field and is empty when IsDirty is false.
type UpdateResult struct {
	Data     *Todo
	IsDirty  bool
	Dirty    map[string]any
	Original *Todo
}
