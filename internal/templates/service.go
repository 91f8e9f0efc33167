// Package templates caches gateway message templates locally so campaigns
// keep working against the definition they were created with.
package templates

import (
	"context"

	"github.com/devarche/wpp-dashboard/internal/whatsapp"
)

// Service manages the local template cache.
type Service struct {
	store Store
}

// NewService creates a template service over the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// GetByID returns a cached template.
func (s *Service) GetByID(ctx context.Context, id string) (Template, error) {
	return s.store.GetByID(ctx, id)
}

// GetByName returns a cached template by gateway name.
func (s *Service) GetByName(ctx context.Context, name string) (Template, error) {
	return s.store.GetByName(ctx, name)
}

// List returns all cached templates.
func (s *Service) List(ctx context.Context) ([]Template, error) {
	return s.store.List(ctx)
}

// CacheFromGateway upserts the gateway's definition of a template into the
// local cache and returns the cached row.
func (s *Service) CacheFromGateway(ctx context.Context, tmpl whatsapp.Template) (Template, error) {
	return s.store.Upsert(ctx, Template{
		Name:           tmpl.Name,
		Language:       tmpl.Language,
		Category:       tmpl.Category,
		Components:     tmpl.Components,
		Status:         tmpl.Status,
		MetaTemplateID: tmpl.ID,
	})
}
