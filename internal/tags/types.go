package tags

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no tag matches a lookup.
var ErrNotFound = errors.New("tag not found")

// Tag is a conversation label. NormalizedName (lowercased, whitespace
// collapsed) is unique and the conflict target for upserts, so "VIP " and
// "vip" are the same tag.
type Tag struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	NormalizedName string    `json:"normalized_name"`
	Color          string    `json:"color"`
	CreatedBy      string    `json:"created_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store is the persistence seam for tags.
type Store interface {
	List(ctx context.Context) ([]Tag, error)
	// Upsert inserts a tag or returns the existing one with the same
	// normalized name (color refreshed).
	Upsert(ctx context.Context, name, normalizedName, color, createdBy string) (Tag, error)
	// Delete removes a tag and its conversation associations.
	Delete(ctx context.Context, id string) error
}
