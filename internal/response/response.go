// Package response defines the JSON envelopes every endpoint answers with.
// Successful calls return {success: true, data, ...}; failures are rendered
// by the application error handler as {success: false, timestamp, method,
// path, error: {code, name, message}}.
package response

import (
	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/todoapi/internal/pagination"
)

// Envelope is the success body for single records and lists.
type Envelope struct {
	Success    bool             `json:"success"`
	Data       any              `json:"data"`
	Pagination *pagination.Meta `json:"pagination,omitempty"`
}

// MutationEnvelope is the success body for partial updates. Dirty is always
// present, and empty when nothing changed.
type MutationEnvelope struct {
	Success  bool           `json:"success"`
	Data     any            `json:"data"`
	IsDirty  bool           `json:"isDirty"`
	Dirty    map[string]any `json:"dirty"`
	Original any            `json:"original"`
}

// ErrorEnvelope is the failure body.
type ErrorEnvelope struct {
	Success   bool      `json:"success"`
	Timestamp string    `json:"timestamp"`
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	Error     ErrorBody `json:"error"`
}

// ErrorBody describes a failure. Message is a string, or a field→message
// object for validation failures.
type ErrorBody struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Message any    `json:"message"`
}

// OK writes data in a success envelope.
func OK(c echo.Context, status int, data any) error {
	return c.JSON(status, Envelope{Success: true, Data: data})
}

// Page writes a list page with its pagination metadata.
func Page(c echo.Context, status int, data any, meta pagination.Meta) error {
	return c.JSON(status, Envelope{Success: true, Data: data, Pagination: &meta})
}

// Mutation writes the result of a partial update.
func Mutation(c echo.Context, status int, data any, isDirty bool, dirty map[string]any, original any) error {
	if dirty == nil {
		dirty = map[string]any{}
	}
	return c.JSON(status, MutationEnvelope{
		Success:  true,
		Data:     data,
		IsDirty:  isDirty,
		Dirty:    dirty,
		Original: original,
	})
}
