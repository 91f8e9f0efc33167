package templates

import (
	"context"
	"errors"
	"time"

	"github.com/devarche/wpp-dashboard/internal/whatsapp"
)

// ErrNotFound is returned when no template matches a lookup.
var ErrNotFound = errors.New("template not found")

// Template is the locally cached copy of a gateway message template.
// Components holds the gateway's component definitions verbatim so variable
// extraction works against the cached copy.
type Template struct {
	ID             string                       `json:"id"`
	Name           string                       `json:"name"`
	Language       string                       `json:"language"`
	Category       string                       `json:"category,omitempty"`
	Components     []whatsapp.TemplateComponent `json:"components"`
	Status         string                       `json:"status"`
	MetaTemplateID string                       `json:"meta_template_id,omitempty"`
	CreatedAt      time.Time                    `json:"created_at"`
	UpdatedAt      time.Time                    `json:"updated_at"`
}

// Store is the persistence seam for cached templates.
type Store interface {
	GetByID(ctx context.Context, id string) (Template, error)
	GetByName(ctx context.Context, name string) (Template, error)
	List(ctx context.Context) ([]Template, error)
	// Upsert caches a template by name, refreshing language, components,
	// and the gateway's template id.
	Upsert(ctx context.Context, tmpl Template) (Template, error)
}
