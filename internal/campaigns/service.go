// Package campaigns manages template broadcasts: campaign lifecycle, the
// per-recipient ledger, and the sequential send orchestrator.
package campaigns

import (
	"context"
	"fmt"
	"time"

	"github.com/devarche/wpp-dashboard/internal/tags"
	"github.com/devarche/wpp-dashboard/internal/templates"
	"github.com/devarche/wpp-dashboard/internal/whatsapp"
)

// TemplateDirectory lists the template definitions the gateway currently
// holds. *whatsapp.Client satisfies it.
type TemplateDirectory interface {
	FetchTemplates(ctx context.Context) ([]whatsapp.Template, error)
}

// Service manages campaign rows and their recipient ledgers.
type Service struct {
	store     Store
	templates *templates.Service
	tags      *tags.Service
	directory TemplateDirectory
}

// NewService creates a campaign service.
func NewService(store Store, tmpl *templates.Service, tagSvc *tags.Service, directory TemplateDirectory) *Service {
	return &Service{store: store, templates: tmpl, tags: tagSvc, directory: directory}
}

// GetByID returns a campaign with its derived reply count.
func (s *Service) GetByID(ctx context.Context, id string) (Campaign, error) {
	return s.store.GetByID(ctx, id)
}

// List returns all campaigns, newest first.
func (s *Service) List(ctx context.Context) ([]Campaign, error) {
	return s.store.List(ctx)
}

// Create caches the named gateway template locally, ensures the campaign's
// tag exists, and creates the campaign in draft status.
func (s *Service) Create(ctx context.Context, name, templateName, createdBy string) (Campaign, error) {
	tmpl, err := s.cacheTemplate(ctx, templateName)
	if err != nil {
		return Campaign{}, err
	}
	tag, err := s.tags.EnsureCampaignTag(ctx, name, createdBy)
	if err != nil {
		return Campaign{}, fmt.Errorf("ensure campaign tag: %w", err)
	}
	return s.store.Create(ctx, name, tmpl.ID, tag.ID)
}

// Delete removes a campaign and its recipient rows.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// Recipients returns a campaign's recipient ledger.
func (s *Service) Recipients(ctx context.Context, campaignID string) ([]Recipient, error) {
	return s.store.ListRecipients(ctx, campaignID)
}

// RecordReply stamps replied_at for the campaign/contact pair if this is the
// first reply; later replies are no-ops.
func (s *Service) RecordReply(ctx context.Context, campaignID, contactID string, at time.Time) (bool, error) {
	return s.store.MarkReplied(ctx, campaignID, contactID, at)
}

func (s *Service) cacheTemplate(ctx context.Context, templateName string) (templates.Template, error) {
	defs, err := s.directory.FetchTemplates(ctx)
	if err != nil {
		return templates.Template{}, fmt.Errorf("fetch templates: %w", err)
	}
	for _, def := range defs {
		if def.Name == templateName {
			return s.templates.CacheFromGateway(ctx, def)
		}
	}
	// Fall back to a previously cached copy when the gateway no longer
	// lists the template.
	cached, err := s.templates.GetByName(ctx, templateName)
	if err != nil {
		return templates.Template{}, fmt.Errorf("template %q not found at gateway", templateName)
	}
	return cached, nil
}
