package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/devarche/wpp-dashboard/internal/auth"
	"github.com/devarche/wpp-dashboard/internal/tags"
)

// TagsHandler serves tag CRUD.
type TagsHandler struct {
	service *tags.Service
}

// NewTagsHandler creates a tags handler.
func NewTagsHandler(service *tags.Service) *TagsHandler {
	return &TagsHandler{service: service}
}

func (h *TagsHandler) Register(e *echo.Echo) {
	group := e.Group("/api/tags")
	group.GET("", h.List)
	group.POST("", h.Create)
	group.DELETE("/:id", h.Delete)
}

// List returns all tags ordered by name.
func (h *TagsHandler) List(c echo.Context) error {
	items, err := h.service.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// CreateTagRequest is the body for POST /api/tags.
type CreateTagRequest struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Create upserts a tag by normalized name.
func (h *TagsHandler) Create(c echo.Context) error {
	var req CreateTagRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Name) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "tag name is required")
	}
	createdBy, _ := auth.AccountIDFromContext(c)
	item, err := h.service.Create(c.Request().Context(), req.Name, req.Color, createdBy)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, item)
}

// Delete removes a tag and detaches it from all conversations.
func (h *TagsHandler) Delete(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "tag id is required")
	}
	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, tags.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "tag not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
