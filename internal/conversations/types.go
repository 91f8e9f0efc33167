package conversations

import (
	"context"
	"errors"
	"time"

	"github.com/devarche/wpp-dashboard/internal/contacts"
	"github.com/devarche/wpp-dashboard/internal/tags"
)

// ErrNotFound is returned when no conversation matches a lookup.
var ErrNotFound = errors.New("conversation not found")

// Conversation is one dialogue with a contact. CampaignID is the campaign
// that last targeted this conversation, empty when none did. A conversation
// created by a campaign send starts archived and is reactivated by the first
// inbound reply.
type Conversation struct {
	ID            string            `json:"id"`
	ContactID     string            `json:"contact_id"`
	CampaignID    string            `json:"campaign_id,omitempty"`
	Archived      bool              `json:"archived"`
	Assignees     []string          `json:"assignees"`
	LastMessage   string            `json:"last_message,omitempty"`
	LastMessageAt *time.Time        `json:"last_message_at,omitempty"`
	UnreadCount   int               `json:"unread_count"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	Contact       *contacts.Contact `json:"contact,omitempty"`
	Tags          []tags.Tag        `json:"tags"`
}

// InboundUpdate is the conversation-side effect of one inbound message:
// preview refresh, unread bump, and reactivation when archived.
type InboundUpdate struct {
	Preview    string
	ReceivedAt time.Time
}

// Store is the persistence seam for conversations.
type Store interface {
	GetByID(ctx context.Context, id string) (Conversation, error)
	GetByContactID(ctx context.Context, contactID string) (Conversation, error)
	List(ctx context.Context) ([]Conversation, error)
	// FindOrCreateByContact returns the conversation for a contact, inserting
	// one when absent. The contact_id unique constraint makes this safe under
	// concurrent webhook delivery.
	FindOrCreateByContact(ctx context.Context, contactID string) (Conversation, error)
	// UpsertForCampaign finds or creates the conversation for a contact and
	// re-targets it at the given campaign: campaign_id overwritten, archived
	// forced true.
	UpsertForCampaign(ctx context.Context, contactID, campaignID string) (Conversation, error)
	SetArchived(ctx context.Context, id string, archived bool) (Conversation, error)
	SetAssignees(ctx context.Context, id string, assignees []string) (Conversation, error)
	AddTag(ctx context.Context, id, tagID string) error
	ReplaceTags(ctx context.Context, id string, tagIDs []string) error
	UpdatePreview(ctx context.Context, id, preview string, at time.Time) error
	// ApplyInbound updates preview fields, increments unread_count, and clears
	// the archived flag in one statement.
	ApplyInbound(ctx context.Context, id string, update InboundUpdate) (Conversation, error)
	ResetUnread(ctx context.Context, id string) error
}
