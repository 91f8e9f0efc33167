package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/devarche/wpp-dashboard/internal/conversations"
	"github.com/devarche/wpp-dashboard/internal/messages"
)

// ConversationsHandler serves the inbox: conversation listing, archiving,
// assignment, tagging, and message history.
type ConversationsHandler struct {
	service  *conversations.Service
	messages *messages.Service
}

// NewConversationsHandler creates a conversations handler.
func NewConversationsHandler(service *conversations.Service, msgService *messages.Service) *ConversationsHandler {
	return &ConversationsHandler{service: service, messages: msgService}
}

func (h *ConversationsHandler) Register(e *echo.Echo) {
	group := e.Group("/api/conversations")
	group.GET("", h.List)
	group.GET("/:id", h.Get)
	group.GET("/:id/messages", h.Messages)
	group.PATCH("/:id/archive", h.SetArchived)
	group.PUT("/:id/assignees", h.SetAssignees)
	group.PUT("/:id/tags", h.ReplaceTags)
	group.POST("/:id/read", h.MarkRead)
}

// List returns all conversations, most recently active first.
func (h *ConversationsHandler) List(c echo.Context) error {
	items, err := h.service.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// Get returns one conversation with contact and tags.
func (h *ConversationsHandler) Get(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "conversation id is required")
	}
	item, err := h.service.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, conversations.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, item)
}

// Messages returns a conversation's message history, oldest first.
func (h *ConversationsHandler) Messages(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "conversation id is required")
	}
	items, err := h.messages.ListByConversation(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// ArchiveRequest is the body for PATCH /api/conversations/:id/archive.
type ArchiveRequest struct {
	Archived bool `json:"archived"`
}

// SetArchived archives or unarchives a conversation.
func (h *ConversationsHandler) SetArchived(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "conversation id is required")
	}
	var req ArchiveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	item, err := h.service.SetArchived(c.Request().Context(), id, req.Archived)
	if err != nil {
		if errors.Is(err, conversations.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, item)
}

// AssigneesRequest is the body for PUT /api/conversations/:id/assignees.
type AssigneesRequest struct {
	Assignees []string `json:"assignees"`
}

// SetAssignees replaces the agents assigned to a conversation.
func (h *ConversationsHandler) SetAssignees(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "conversation id is required")
	}
	var req AssigneesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	item, err := h.service.SetAssignees(c.Request().Context(), id, req.Assignees)
	if err != nil {
		if errors.Is(err, conversations.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, item)
}

// TagsRequest is the body for PUT /api/conversations/:id/tags.
type TagsRequest struct {
	TagIDs []string `json:"tag_ids"`
}

// ReplaceTags swaps the full tag set of a conversation.
func (h *ConversationsHandler) ReplaceTags(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "conversation id is required")
	}
	var req TagsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	item, err := h.service.ReplaceTags(c.Request().Context(), id, req.TagIDs)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, item)
}

// MarkRead clears the unread counter.
func (h *ConversationsHandler) MarkRead(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "conversation id is required")
	}
	if err := h.service.ResetUnread(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
