// Package feed provides the in-process change feed that pushes row-change
// events from the store layer to connected dashboard clients.
package feed

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

const (
	// DefaultBufferSize is the default per-subscriber channel buffer.
	DefaultBufferSize = 64
)

// Type identifies the event category published on the change feed.
type Type string

const (
	// TypeMessageCreated is emitted after a message row is persisted.
	TypeMessageCreated Type = "message_created"
	// TypeConversationUpdated is emitted after conversation preview/state changes.
	TypeConversationUpdated Type = "conversation_updated"
	// TypeCampaignUpdated is emitted after campaign counters or status change.
	TypeCampaignUpdated Type = "campaign_updated"
)

// Event is the normalized payload emitted by the change feed.
type Event struct {
	Type Type            `json:"type"`
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Publisher publishes events to subscribers.
type Publisher interface {
	Publish(event Event)
}

// Subscriber subscribes to the change feed.
type Subscriber interface {
	Subscribe(buffer int) (string, <-chan Event, func())
}

// Hub is an in-process pub/sub dispatcher for store row-change events.
type Hub struct {
	mu      sync.RWMutex
	streams map[string]chan Event
}

// NewHub creates an empty change feed hub.
func NewHub() *Hub {
	return &Hub{
		streams: map[string]chan Event{},
	}
}

// Publish broadcasts one event to all subscribers.
// Slow subscribers are dropped in a non-blocking way.
func (h *Hub) Publish(event Event) {
	if h == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.streams {
		select {
		case ch <- event:
		default:
			// Drop if receiver is slow to avoid blocking the persistence path.
		}
	}
}

// Subscribe registers one subscriber.
// It returns a stream ID, read-only event channel, and a cancel function.
func (h *Hub) Subscribe(buffer int) (string, <-chan Event, func()) {
	if h == nil {
		ch := make(chan Event)
		close(ch)
		return "", ch, func() {}
	}
	if buffer <= 0 {
		buffer = DefaultBufferSize
	}

	streamID := uuid.NewString()
	ch := make(chan Event, buffer)

	h.mu.Lock()
	h.streams[streamID] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if current, ok := h.streams[streamID]; ok {
				delete(h.streams, streamID)
				close(current)
			}
			h.mu.Unlock()
		})
	}

	return streamID, ch, cancel
}
