package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/devarche/wpp-dashboard/internal/webhook"
	"github.com/devarche/wpp-dashboard/internal/whatsapp"
)

// WebhookHandler serves the provider's verification handshake and event
// deliveries. Both routes are exempt from JWT auth; the handshake token is
// the shared secret.
type WebhookHandler struct {
	service *webhook.Service
	logger  *slog.Logger
}

// NewWebhookHandler creates a webhook handler.
func NewWebhookHandler(log *slog.Logger, service *webhook.Service) *WebhookHandler {
	return &WebhookHandler{
		service: service,
		logger:  log.With(slog.String("handler", "webhook")),
	}
}

func (h *WebhookHandler) Register(e *echo.Echo) {
	e.GET("/api/webhook", h.Verify)
	e.POST("/api/webhook", h.Receive)
}

// Verify answers the provider's subscription handshake.
func (h *WebhookHandler) Verify(c echo.Context) error {
	challenge, err := h.service.VerifyHandshake(
		c.QueryParam("hub.mode"),
		c.QueryParam("hub.verify_token"),
		c.QueryParam("hub.challenge"),
	)
	if err != nil {
		return echo.NewHTTPError(http.StatusForbidden, "verification failed")
	}
	return c.String(http.StatusOK, challenge)
}

// Receive ingests one event delivery. It always acknowledges with 200, even
// on bind or processing errors, so the provider stops retrying; failures are
// logged instead of surfaced.
func (h *WebhookHandler) Receive(c echo.Context) error {
	var payload whatsapp.WebhookPayload
	if err := c.Bind(&payload); err != nil {
		h.logger.Error("webhook payload bind failed", slog.Any("error", err))
		return c.JSON(http.StatusOK, map[string]bool{"ok": true})
	}
	h.service.ProcessEvent(c.Request().Context(), payload)
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}
