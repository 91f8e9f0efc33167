package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/devarche/wpp-dashboard/internal/conversations"
	"github.com/devarche/wpp-dashboard/internal/messages"
	"github.com/devarche/wpp-dashboard/internal/whatsapp"
)

// MessagesHandler serves agent-initiated sends into a conversation.
type MessagesHandler struct {
	conversations *conversations.Service
	messages      *messages.Service
	gateway       *whatsapp.Client
	logger        *slog.Logger
}

// NewMessagesHandler creates a messages handler.
func NewMessagesHandler(log *slog.Logger, convService *conversations.Service, msgService *messages.Service, gateway *whatsapp.Client) *MessagesHandler {
	return &MessagesHandler{
		conversations: convService,
		messages:      msgService,
		gateway:       gateway,
		logger:        log.With(slog.String("handler", "messages")),
	}
}

func (h *MessagesHandler) Register(e *echo.Echo) {
	e.POST("/api/conversations/:id/messages", h.SendText)
}

// SendTextRequest is the body for POST /api/conversations/:id/messages.
type SendTextRequest struct {
	Body string `json:"body"`
}

// SendText sends a free-form text reply to the conversation's contact and
// records the outbound message.
func (h *MessagesHandler) SendText(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "conversation id is required")
	}
	var req SendTextRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message body is required")
	}

	ctx := c.Request().Context()
	conv, err := h.conversations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, conversations.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if conv.Contact == nil || conv.Contact.Phone == "" {
		return echo.NewHTTPError(http.StatusConflict, "conversation has no contact phone")
	}

	wamid, err := h.gateway.SendText(ctx, conv.Contact.Phone, body)
	if err != nil {
		h.logger.Warn("text send failed", slog.String("conversation_id", id), slog.Any("error", err))
		return echo.NewHTTPError(http.StatusBadGateway, whatsapp.HumanMessage(err))
	}

	msg, err := h.messages.RecordOutbound(ctx, conv.ID, wamid, messages.TypeText, messages.Content{Body: body})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.conversations.UpdatePreview(ctx, conv.ID, body, time.Now()); err != nil {
		h.logger.Warn("preview update failed", slog.String("conversation_id", id), slog.Any("error", err))
	}
	return c.JSON(http.StatusCreated, msg)
}
