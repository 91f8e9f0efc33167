// Package conversations manages dialogue state: find-or-create per contact,
// archiving, assignment, tagging, and denormalized preview fields.
package conversations

import (
	"context"
	"encoding/json"
	"time"

	"github.com/devarche/wpp-dashboard/internal/feed"
)

// Service manages conversations and pushes row changes onto the change feed.
type Service struct {
	store Store
	feed  feed.Publisher
}

// NewService creates a conversation service over the given store.
func NewService(store Store, publisher feed.Publisher) *Service {
	return &Service{store: store, feed: publisher}
}

// GetByID returns a conversation with its contact and tags.
func (s *Service) GetByID(ctx context.Context, id string) (Conversation, error) {
	return s.store.GetByID(ctx, id)
}

// GetByContactID returns the conversation owned by a contact.
func (s *Service) GetByContactID(ctx context.Context, contactID string) (Conversation, error) {
	return s.store.GetByContactID(ctx, contactID)
}

// List returns all conversations, most recently active first.
func (s *Service) List(ctx context.Context) ([]Conversation, error) {
	return s.store.List(ctx)
}

// FindOrCreateByContact returns the contact's conversation, creating an
// unarchived one when absent. Campaign linkage is left untouched.
func (s *Service) FindOrCreateByContact(ctx context.Context, contactID string) (Conversation, error) {
	return s.store.FindOrCreateByContact(ctx, contactID)
}

// UpsertForCampaign finds or creates the contact's conversation and re-targets
// it into the campaign's bucket: campaign_id overwritten, archived forced.
func (s *Service) UpsertForCampaign(ctx context.Context, contactID, campaignID string) (Conversation, error) {
	conv, err := s.store.UpsertForCampaign(ctx, contactID, campaignID)
	if err != nil {
		return Conversation{}, err
	}
	s.publish(conv)
	return conv, nil
}

// SetArchived archives or unarchives a conversation.
func (s *Service) SetArchived(ctx context.Context, id string, archived bool) (Conversation, error) {
	conv, err := s.store.SetArchived(ctx, id, archived)
	if err != nil {
		return Conversation{}, err
	}
	s.publish(conv)
	return conv, nil
}

// SetAssignees replaces the set of agents assigned to a conversation.
func (s *Service) SetAssignees(ctx context.Context, id string, assignees []string) (Conversation, error) {
	if assignees == nil {
		assignees = []string{}
	}
	conv, err := s.store.SetAssignees(ctx, id, assignees)
	if err != nil {
		return Conversation{}, err
	}
	s.publish(conv)
	return conv, nil
}

// AddTag attaches a tag to a conversation; adding an attached tag is a no-op.
func (s *Service) AddTag(ctx context.Context, id, tagID string) error {
	return s.store.AddTag(ctx, id, tagID)
}

// ReplaceTags swaps the full tag set of a conversation.
func (s *Service) ReplaceTags(ctx context.Context, id string, tagIDs []string) (Conversation, error) {
	if err := s.store.ReplaceTags(ctx, id, tagIDs); err != nil {
		return Conversation{}, err
	}
	conv, err := s.store.GetByID(ctx, id)
	if err != nil {
		return Conversation{}, err
	}
	s.publish(conv)
	return conv, nil
}

// UpdatePreview refreshes the denormalized last-message fields after an
// outbound send.
func (s *Service) UpdatePreview(ctx context.Context, id, preview string, at time.Time) error {
	if err := s.store.UpdatePreview(ctx, id, preview, at); err != nil {
		return err
	}
	if conv, err := s.store.GetByID(ctx, id); err == nil {
		s.publish(conv)
	}
	return nil
}

// ApplyInbound records the conversation-side effect of one inbound message:
// preview refresh, unread bump, and unarchive.
func (s *Service) ApplyInbound(ctx context.Context, id string, update InboundUpdate) (Conversation, error) {
	conv, err := s.store.ApplyInbound(ctx, id, update)
	if err != nil {
		return Conversation{}, err
	}
	s.publish(conv)
	return conv, nil
}

// ResetUnread clears the unread counter when an agent opens a conversation.
func (s *Service) ResetUnread(ctx context.Context, id string) error {
	return s.store.ResetUnread(ctx, id)
}

func (s *Service) publish(conv Conversation) {
	if s.feed == nil {
		return
	}
	data, err := json.Marshal(conv)
	if err != nil {
		return
	}
	s.feed.Publish(feed.Event{Type: feed.TypeConversationUpdated, ID: conv.ID, Data: data})
}
