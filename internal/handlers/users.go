package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/devarche/wpp-dashboard/internal/accounts"
)

// UsersHandler serves the account list for the assignee picker.
type UsersHandler struct {
	service *accounts.Service
}

// NewUsersHandler creates a users handler.
func NewUsersHandler(service *accounts.Service) *UsersHandler {
	return &UsersHandler{service: service}
}

func (h *UsersHandler) Register(e *echo.Echo) {
	e.GET("/api/users", h.List)
}

// List returns all accounts.
func (h *UsersHandler) List(c echo.Context) error {
	items, err := h.service.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}
