package contacts

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no contact matches a lookup.
var ErrNotFound = errors.New("contact not found")

// Contact is the identity anchor for a phone number. Phone is digits only but
// carries no canonical format: the same logical number may be stored with or
// without a country code until a resolver upgrade widens it.
type Contact struct {
	ID        string    `json:"id"`
	Phone     string    `json:"phone"`
	Name      string    `json:"name,omitempty"`
	OptedOut  bool      `json:"opted_out"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpdateParams are partial contact updates; nil fields are left unchanged.
type UpdateParams struct {
	Phone    *string `json:"phone,omitempty"`
	Name     *string `json:"name,omitempty"`
	OptedOut *bool   `json:"opted_out,omitempty"`
}

// Store is the persistence seam for contacts.
type Store interface {
	GetByPhone(ctx context.Context, phone string) (Contact, error)
	// GetByPhoneSuffix finds a contact whose stored phone ends with suffix.
	GetByPhoneSuffix(ctx context.Context, suffix string) (Contact, error)
	// Upsert inserts a contact, or returns the existing row on a phone
	// conflict (backfilling the name when the stored one is empty).
	Upsert(ctx context.Context, phone, name string) (Contact, error)
	Update(ctx context.Context, id string, params UpdateParams) (Contact, error)
	SetOptedOutByPhone(ctx context.Context, phone string, optedOut bool) error
}
