// Package messages stores chat messages and keeps delivery status in sync
// with gateway callbacks.
package messages

import (
	"context"
	"encoding/json"

	"github.com/devarche/wpp-dashboard/internal/feed"
)

// Service manages message rows and pushes new messages onto the change feed.
type Service struct {
	store Store
	feed  feed.Publisher
}

// NewService creates a message service over the given store.
func NewService(store Store, publisher feed.Publisher) *Service {
	return &Service{store: store, feed: publisher}
}

// ListByConversation returns a conversation's messages, oldest first.
func (s *Service) ListByConversation(ctx context.Context, conversationID string) ([]Message, error) {
	return s.store.ListByConversation(ctx, conversationID)
}

// RecordOutbound stores a message the gateway accepted for delivery.
func (s *Service) RecordOutbound(ctx context.Context, conversationID, wamid, msgType string, content Content) (Message, error) {
	msg, err := s.store.Insert(ctx, Message{
		ConversationID: conversationID,
		Wamid:          wamid,
		Direction:      DirectionOutbound,
		Type:           msgType,
		Content:        content,
		Status:         StatusSent,
	})
	if err != nil {
		return Message{}, err
	}
	s.publish(msg)
	return msg, nil
}

// RecordInbound upserts an inbound message keyed by wamid. The provider may
// redeliver the same event; created reports whether this call stored a new
// row.
func (s *Service) RecordInbound(ctx context.Context, conversationID, wamid, msgType string, content Content) (Message, bool, error) {
	msg, created, err := s.store.UpsertByWamid(ctx, Message{
		ConversationID: conversationID,
		Wamid:          wamid,
		Direction:      DirectionInbound,
		Type:           msgType,
		Content:        content,
		Status:         StatusDelivered,
	})
	if err != nil {
		return Message{}, false, err
	}
	if created {
		s.publish(msg)
	}
	return msg, created, nil
}

// UpdateStatusByWamid overwrites the delivery status for a gateway status
// callback. The provider's ordering is trusted as-is.
func (s *Service) UpdateStatusByWamid(ctx context.Context, wamid, status string) (Message, error) {
	msg, err := s.store.UpdateStatusByWamid(ctx, wamid, status)
	if err != nil {
		return Message{}, err
	}
	s.publish(msg)
	return msg, nil
}

func (s *Service) publish(msg Message) {
	if s.feed == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	s.feed.Publish(feed.Event{Type: feed.TypeMessageCreated, ID: msg.ID, Data: data})
}
