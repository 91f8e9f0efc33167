package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/devarche/wpp-dashboard/internal/auth"
	"github.com/devarche/wpp-dashboard/internal/campaigns"
)

// CampaignsHandler serves campaign CRUD and the send operation.
type CampaignsHandler struct {
	service *campaigns.Service
	sender  *campaigns.Sender
	logger  *slog.Logger
}

// NewCampaignsHandler creates a campaigns handler.
func NewCampaignsHandler(log *slog.Logger, service *campaigns.Service, sender *campaigns.Sender) *CampaignsHandler {
	return &CampaignsHandler{
		service: service,
		sender:  sender,
		logger:  log.With(slog.String("handler", "campaigns")),
	}
}

func (h *CampaignsHandler) Register(e *echo.Echo) {
	group := e.Group("/api/campaigns")
	group.GET("", h.List)
	group.POST("", h.Create)
	group.GET("/:id", h.Get)
	group.GET("/:id/recipients", h.Recipients)
	group.DELETE("/:id", h.Delete)
	group.POST("/:id/send", h.Send)
}

// List returns all campaigns, newest first.
func (h *CampaignsHandler) List(c echo.Context) error {
	items, err := h.service.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// CreateCampaignRequest is the body for POST /api/campaigns.
type CreateCampaignRequest struct {
	Name         string `json:"name"`
	TemplateName string `json:"template_name"`
}

// Create caches the named template and creates a draft campaign with its tag.
func (h *CampaignsHandler) Create(c echo.Context) error {
	var req CreateCampaignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.Name = strings.TrimSpace(req.Name)
	req.TemplateName = strings.TrimSpace(req.TemplateName)
	if req.Name == "" || req.TemplateName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name and template_name are required")
	}
	createdBy, _ := auth.AccountIDFromContext(c)
	item, err := h.service.Create(c.Request().Context(), req.Name, req.TemplateName, createdBy)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, item)
}

// Get returns one campaign with its derived reply count.
func (h *CampaignsHandler) Get(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "campaign id is required")
	}
	item, err := h.service.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, campaigns.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "campaign not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, item)
}

// Recipients returns the campaign's recipient ledger.
func (h *CampaignsHandler) Recipients(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "campaign id is required")
	}
	items, err := h.service.Recipients(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// Delete removes a campaign and its recipient rows.
func (h *CampaignsHandler) Delete(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "campaign id is required")
	}
	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, campaigns.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "campaign not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// SendRequest is the body for POST /api/campaigns/:id/send.
type SendRequest struct {
	Recipients []campaigns.SendRecipient `json:"recipients"`
	Partial    bool                      `json:"partial"`
}

// Send runs one campaign batch. The call blocks until the paced loop
// finishes, so large batches are long requests.
func (h *CampaignsHandler) Send(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "campaign id is required")
	}
	var req SendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.sender.Send(c.Request().Context(), id, req.Recipients, req.Partial)
	if err != nil {
		switch {
		case errors.Is(err, campaigns.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "campaign not found")
		case errors.Is(err, campaigns.ErrInvalidState):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.Is(err, campaigns.ErrNoRecipients):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, result)
}
