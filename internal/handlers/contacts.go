package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/devarche/wpp-dashboard/internal/contacts"
)

// ContactsHandler serves contact lookup and updates.
type ContactsHandler struct {
	service *contacts.Service
}

// NewContactsHandler creates a contacts handler.
func NewContactsHandler(service *contacts.Service) *ContactsHandler {
	return &ContactsHandler{service: service}
}

func (h *ContactsHandler) Register(e *echo.Echo) {
	group := e.Group("/api/contacts")
	group.POST("/resolve", h.Resolve)
	group.PATCH("/:id", h.Update)
}

// ResolveRequest is the body for POST /api/contacts/resolve.
type ResolveRequest struct {
	Phone string `json:"phone"`
	Name  string `json:"name,omitempty"`
}

// Resolve returns the canonical contact for a raw phone string, creating one
// when nothing matches.
func (h *ContactsHandler) Resolve(c echo.Context) error {
	var req ResolveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Phone) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "phone is required")
	}
	item, err := h.service.Resolve(c.Request().Context(), strings.TrimSpace(req.Phone), strings.TrimSpace(req.Name))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, item)
}

// Update applies partial contact updates.
func (h *ContactsHandler) Update(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "contact id is required")
	}
	var req contacts.UpdateParams
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	item, err := h.service.Update(c.Request().Context(), id, req)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, item)
}
