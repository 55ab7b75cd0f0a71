package todo

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/todoapi/internal/apperror"
	"github.com/keyxmakerx/todoapi/internal/pagination"
	"github.com/keyxmakerx/todoapi/internal/response"
)

// Handler handles HTTP requests for tasks. Handlers are thin: they bind the
// request, call the service, and render the response.
type Handler struct {
	service TodoService
	bounds  pagination.Bounds
}

// NewHandler creates a new task handler. bounds limits list page sizes.
func NewHandler(service TodoService, bounds pagination.Bounds) *Handler {
	return &Handler{service: service, bounds: bounds}
}

// Create adds a task (POST /todo).
func (h *Handler) Create(c echo.Context) error {
	var req CreateTodoRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		return apperror.FromValidation(err)
	}

	todo, err := h.service.Create(c.Request().Context(), CreateTodoInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return err
	}

	return response.OK(c, http.StatusCreated, todo)
}

// List returns one page of tasks (GET /todo).
func (h *Handler) List(c echo.Context) error {
	opts, err := pagination.Parse(pagination.Query{
		Order:   c.QueryParam("order"),
		OrderBy: c.QueryParam("orderBy"),
		Page:    c.QueryParam("page"),
		Limit:   c.QueryParam("limit"),
	}, h.bounds, DefaultOrderBy, SortableFields)
	if err != nil {
		return err
	}

	todos, meta, err := h.service.List(c.Request().Context(), opts)
	if err != nil {
		return err
	}

	return response.Page(c, http.StatusOK, todos, meta)
}

// Get returns one task (GET /todo/:id).
func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	todo, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return response.OK(c, http.StatusOK, todo)
}

// Update applies a partial update (PATCH /todo/:id).
func (h *Handler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var req UpdateTodoRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		return apperror.FromValidation(err)
	}

	result, err := h.service.Update(c.Request().Context(), id, req)
	if err != nil {
		return err
	}

	return response.Mutation(c, http.StatusOK, result.Data, result.IsDirty, result.Dirty, result.Original)
}

// Delete removes a task and returns its last state (DELETE /todo/:id).
func (h *Handler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	todo, err := h.service.Delete(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return response.OK(c, http.StatusOK, todo)
}

// parseID reads the :id path parameter as a positive integer.
func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, apperror.NewValidation(map[string]string{"id": "must be a positive integer"})
	}
	return id, nil
}
