// Package tags manages conversation labels, including the auto-created
// per-campaign tags.
package tags

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
)

// DefaultColor is used when a tag is created without an explicit color.
const DefaultColor = "#00a884"

// campaignTagColors is the palette campaign tags draw a random color from.
var campaignTagColors = []string{
	"#ef4444", "#f97316", "#eab308", "#22c55e",
	"#3b82f6", "#8b5cf6", "#ec4899", "#06b6d4",
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// Service manages tags.
type Service struct {
	store Store
}

// NewService creates a tag service over the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// NormalizeName collapses whitespace and trims a display name.
func NormalizeName(name string) string {
	return whitespaceRe.ReplaceAllString(strings.TrimSpace(name), " ")
}

// NormalizeKey produces the unique lookup key for a tag name.
func NormalizeKey(name string) string {
	return strings.ToLower(NormalizeName(name))
}

// List returns all tags ordered by name.
func (s *Service) List(ctx context.Context) ([]Tag, error) {
	return s.store.List(ctx)
}

// Create upserts a tag by normalized name.
func (s *Service) Create(ctx context.Context, name, color, createdBy string) (Tag, error) {
	normalized := NormalizeName(name)
	if normalized == "" {
		return Tag{}, fmt.Errorf("tag name is required")
	}
	if strings.TrimSpace(color) == "" {
		color = DefaultColor
	}
	return s.store.Upsert(ctx, normalized, NormalizeKey(name), color, createdBy)
}

// EnsureCampaignTag upserts the tag that marks every conversation a campaign
// touches, picking a random color from the palette for new tags.
func (s *Service) EnsureCampaignTag(ctx context.Context, campaignName, createdBy string) (Tag, error) {
	color := campaignTagColors[rand.Intn(len(campaignTagColors))]
	return s.Create(ctx, campaignName, color, createdBy)
}

// Delete removes a tag and detaches it from all conversations.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}
