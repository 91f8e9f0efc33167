// Package whatsapp is a typed client for the WhatsApp Cloud API: template and
// text sends, template metadata fetch, and the webhook payload model.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/devarche/wpp-dashboard/internal/config"
)

// CodeRecipientOptedOut is the provider error code signalling the recipient
// has opted out of marketing messages at the provider level.
const CodeRecipientOptedOut = 131026

// APIError is a non-2xx response from the provider. Code is the provider
// error code when the body could be parsed, zero otherwise. Raw keeps the
// original body for the two-tier message fallback.
type APIError struct {
	Status  int
	Code    int
	Message string
	Raw     string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("whatsapp api: %s (code %d)", e.Message, e.Code)
	}
	return fmt.Sprintf("whatsapp api: status %d", e.Status)
}

// IsOptedOut reports whether err is the provider's recipient-opted-out failure.
func IsOptedOut(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == CodeRecipientOptedOut
}

// HumanMessage extracts a best-effort human-readable message from a send
// failure: the parsed provider message when available, the raw body otherwise,
// and err.Error() for non-API failures.
func HumanMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		if apiErr.Raw != "" {
			return apiErr.Raw
		}
	}
	return err.Error()
}

// Client issues calls against the WhatsApp Cloud API with a bearer credential.
type Client struct {
	httpClient        *http.Client
	baseURL           string
	token             string
	phoneNumberID     string
	businessAccountID string
}

// NewClient builds a Client from configuration.
func NewClient(cfg config.WhatsAppConfig) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = config.DefaultWABaseURL
	}
	version := cfg.APIVersion
	if version == "" {
		version = config.DefaultWAAPIVersion
	}
	return &Client{
		httpClient:        &http.Client{Timeout: 30 * time.Second},
		baseURL:           base + "/" + version,
		token:             cfg.AccessToken,
		phoneNumberID:     cfg.PhoneNumberID,
		businessAccountID: cfg.BusinessAccountID,
	}
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// SendText sends a plain text message and returns the provider message id.
func (c *Client) SendText(ctx context.Context, to, body string) (string, error) {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                to,
		"type":              "text",
		"text": map[string]any{
			"preview_url": false,
			"body":        body,
		},
	}
	return c.send(ctx, payload)
}

// SendTemplate sends a template message with the given ordered components and
// returns the provider message id. components must follow the ordering
// contract of ExtractVariables/BuildComponents.
func (c *Client) SendTemplate(ctx context.Context, to, templateName, languageCode string, components []Component) (string, error) {
	template := map[string]any{
		"name":     templateName,
		"language": map[string]string{"code": languageCode},
	}
	if len(components) > 0 {
		template["components"] = components
	}
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "template",
		"template":          template,
	}
	return c.send(ctx, payload)
}

func (c *Client) send(ctx context.Context, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("whatsapp request: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", newAPIError(res.StatusCode, raw)
	}

	var parsed sendResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Messages) == 0 {
		return "", nil
	}
	return parsed.Messages[0].ID, nil
}

type templatesResponse struct {
	Data []Template `json:"data"`
}

// FetchTemplates lists approved message templates for the business account.
func (c *Client) FetchTemplates(ctx context.Context) ([]Template, error) {
	endpoint := fmt.Sprintf(
		"%s/%s/message_templates?limit=100&fields=%s",
		c.baseURL,
		c.businessAccountID,
		url.QueryEscape("id,name,status,category,language,components"),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whatsapp request: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, newAPIError(res.StatusCode, raw)
	}

	var parsed templatesResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode templates: %w", err)
	}
	return parsed.Data, nil
}

// newAPIError parses the provider error body (JSON error.message/error.code),
// falling back to the raw body when it is not JSON.
func newAPIError(status int, raw []byte) *APIError {
	apiErr := &APIError{Status: status, Raw: strings.TrimSpace(string(raw))}
	var parsed errorResponse
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error.Message != "" {
		apiErr.Message = parsed.Error.Message
		apiErr.Code = parsed.Error.Code
	}
	return apiErr
}
