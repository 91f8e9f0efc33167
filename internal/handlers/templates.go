package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/devarche/wpp-dashboard/internal/contacts"
	"github.com/devarche/wpp-dashboard/internal/conversations"
	"github.com/devarche/wpp-dashboard/internal/messages"
	"github.com/devarche/wpp-dashboard/internal/templates"
	"github.com/devarche/wpp-dashboard/internal/whatsapp"
)

// TemplatesHandler proxies the gateway's template catalog and serves one-off
// template sends outside a campaign.
type TemplatesHandler struct {
	gateway       *whatsapp.Client
	templates     *templates.Service
	contacts      *contacts.Service
	conversations *conversations.Service
	messages      *messages.Service
	logger        *slog.Logger
}

// NewTemplatesHandler creates a templates handler.
func NewTemplatesHandler(
	log *slog.Logger,
	gateway *whatsapp.Client,
	tmplService *templates.Service,
	contactService *contacts.Service,
	convService *conversations.Service,
	msgService *messages.Service,
) *TemplatesHandler {
	return &TemplatesHandler{
		gateway:       gateway,
		templates:     tmplService,
		contacts:      contactService,
		conversations: convService,
		messages:      msgService,
		logger:        log.With(slog.String("handler", "templates")),
	}
}

func (h *TemplatesHandler) Register(e *echo.Echo) {
	group := e.Group("/api/templates")
	group.GET("", h.List)
	group.POST("/send", h.Send)
}

// List proxies the gateway's current template catalog.
func (h *TemplatesHandler) List(c echo.Context) error {
	items, err := h.gateway.FetchTemplates(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, whatsapp.HumanMessage(err))
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// SendTemplateRequest is the body for POST /api/templates/send.
type SendTemplateRequest struct {
	Phone        string            `json:"phone"`
	TemplateName string            `json:"template_name"`
	Variables    map[string]string `json:"variables,omitempty"`
}

// Send delivers one template message outside a campaign: the contact is
// resolved, the conversation found or created, and the outbound message
// recorded like any other send.
func (h *TemplatesHandler) Send(c echo.Context) error {
	var req SendTemplateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.Phone = strings.TrimSpace(req.Phone)
	req.TemplateName = strings.TrimSpace(req.TemplateName)
	if req.Phone == "" || req.TemplateName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "phone and template_name are required")
	}

	ctx := c.Request().Context()
	tmpl, err := h.cacheByName(c, req.TemplateName)
	if err != nil {
		return err
	}

	contact, err := h.contacts.Resolve(ctx, req.Phone, "")
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	conv, err := h.conversations.FindOrCreateByContact(ctx, contact.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	vars := whatsapp.ExtractVariables(whatsapp.Template{Name: tmpl.Name, Components: tmpl.Components})
	components := whatsapp.BuildComponents(vars, req.Variables)

	wamid, err := h.gateway.SendTemplate(ctx, contact.Phone, tmpl.Name, tmpl.Language, components)
	if err != nil {
		if whatsapp.IsOptedOut(err) {
			if optErr := h.contacts.SetOptedOut(ctx, contact.Phone, true); optErr != nil {
				h.logger.Warn("failed to flag opted-out contact", slog.Any("error", optErr))
			}
		}
		return echo.NewHTTPError(http.StatusBadGateway, whatsapp.HumanMessage(err))
	}

	preview := whatsapp.RenderBody(tmpl.Components, req.Variables)
	msg, err := h.messages.RecordOutbound(ctx, conv.ID, wamid, messages.TypeTemplate, messages.Content{
		TemplateName: tmpl.Name,
		TemplateBody: preview,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if preview == "" {
		preview = "[Template: " + tmpl.Name + "]"
	}
	if err := h.conversations.UpdatePreview(ctx, conv.ID, preview, time.Now()); err != nil {
		h.logger.Warn("preview update failed", slog.String("conversation_id", conv.ID), slog.Any("error", err))
	}
	return c.JSON(http.StatusCreated, msg)
}

func (h *TemplatesHandler) cacheByName(c echo.Context, name string) (templates.Template, error) {
	ctx := c.Request().Context()
	defs, err := h.gateway.FetchTemplates(ctx)
	if err == nil {
		for _, def := range defs {
			if def.Name == name {
				return h.templates.CacheFromGateway(ctx, def)
			}
		}
	}
	cached, cacheErr := h.templates.GetByName(ctx, name)
	if cacheErr != nil {
		return templates.Template{}, echo.NewHTTPError(http.StatusNotFound, "template not found")
	}
	return cached, nil
}
