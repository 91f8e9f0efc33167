// Package contacts resolves raw phone strings to canonical contact records.
package contacts

import (
	"context"
	"errors"
	"fmt"
)

// Country-code strip lengths tried by the resolver, in order. Two-digit codes
// are the common case for the deployments this started in, so they go first.
var stripLengths = []int{2, 3, 1}

// minRemainderLen guards against stripping a prefix off a number that is
// already short; a remainder below 7 digits is too ambiguous to match on.
const minRemainderLen = 7

// Service resolves and mutates contacts.
type Service struct {
	store Store
}

// NewService creates a contact service over the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Resolve returns the single contact for a raw phone string, creating one when
// nothing matches. Matching order, short-circuiting on the first hit:
//
//  1. Exact match on the stored phone.
//  2. Suffix match: the store holds the full international number and the
//     caller supplied a local one.
//  3. Prefix-strip match: the caller supplied the full number and the store
//     holds a local one; on a hit the stored phone is upgraded to the full
//     value so future lookups are exact.
//  4. Create.
//
// A supplied name backfills a missing stored name but never overwrites one.
func (s *Service) Resolve(ctx context.Context, phone, name string) (Contact, error) {
	if phone == "" {
		return Contact{}, fmt.Errorf("resolve contact: empty phone")
	}

	exact, err := s.store.GetByPhone(ctx, phone)
	if err == nil {
		return s.backfillName(ctx, exact, name)
	}
	if !errors.Is(err, ErrNotFound) {
		return Contact{}, fmt.Errorf("resolve contact: %w", err)
	}

	bySuffix, err := s.store.GetByPhoneSuffix(ctx, phone)
	if err == nil {
		return s.backfillName(ctx, bySuffix, name)
	}
	if !errors.Is(err, ErrNotFound) {
		return Contact{}, fmt.Errorf("resolve contact: %w", err)
	}

	for _, stripLen := range stripLengths {
		if len(phone) <= stripLen+minRemainderLen-1 {
			continue
		}
		stripped := phone[stripLen:]
		byStripped, err := s.store.GetByPhone(ctx, stripped)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return Contact{}, fmt.Errorf("resolve contact: %w", err)
		}

		params := UpdateParams{Phone: &phone}
		if name != "" && byStripped.Name == "" {
			params.Name = &name
		}
		upgraded, err := s.store.Update(ctx, byStripped.ID, params)
		if err != nil {
			return Contact{}, fmt.Errorf("upgrade contact phone: %w", err)
		}
		return upgraded, nil
	}

	created, err := s.store.Upsert(ctx, phone, name)
	if err != nil {
		return Contact{}, fmt.Errorf("create contact: %w", err)
	}
	return created, nil
}

func (s *Service) backfillName(ctx context.Context, contact Contact, name string) (Contact, error) {
	if name == "" || contact.Name != "" {
		return contact, nil
	}
	updated, err := s.store.Update(ctx, contact.ID, UpdateParams{Name: &name})
	if err != nil {
		return Contact{}, fmt.Errorf("backfill contact name: %w", err)
	}
	return updated, nil
}

// SetOptedOut flips the opted_out flag for the contact stored under phone.
// Missing contacts are ignored: an opt-out signal for an unknown number is
// not an error.
func (s *Service) SetOptedOut(ctx context.Context, phone string, optedOut bool) error {
	if err := s.store.SetOptedOutByPhone(ctx, phone, optedOut); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// Update applies partial updates to a contact by id.
func (s *Service) Update(ctx context.Context, id string, params UpdateParams) (Contact, error) {
	return s.store.Update(ctx, id, params)
}
