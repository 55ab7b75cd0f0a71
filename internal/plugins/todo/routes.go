package todo

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up the task routes. The task list has a single owner
// and its routes are public.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	g := e.Group("/todo")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PATCH("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}
