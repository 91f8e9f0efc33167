package messages

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no message matches a lookup.
var ErrNotFound = errors.New("message not found")

// Message directions.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Message types. Inbound messages of any other provider type are stored
// with the provider's type string as-is.
const (
	TypeText     = "text"
	TypeTemplate = "template"
	TypeImage    = "image"
	TypeAudio    = "audio"
	TypeVideo    = "video"
	TypeDocument = "document"
)

// Delivery statuses as reported by the gateway.
const (
	StatusSending   = "sending"
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
	StatusFailed    = "failed"
)

// Content is the type-tagged message body. Exactly the fields matching the
// message type are set.
type Content struct {
	// Text body, for text messages.
	Body string `json:"body,omitempty"`
	// Template fields, for outbound template sends.
	TemplateName string `json:"template_name,omitempty"`
	TemplateBody string `json:"template_body,omitempty"`
	// Media fields, for image/audio/video/document messages.
	MediaID  string `json:"media_id,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// Message is one stored chat message. Wamid is the provider's message id and
// the idempotency key for inbound delivery and status updates.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Wamid          string    `json:"wamid,omitempty"`
	Direction      string    `json:"direction"`
	Type           string    `json:"type"`
	Content        Content   `json:"content"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store is the persistence seam for messages.
type Store interface {
	ListByConversation(ctx context.Context, conversationID string) ([]Message, error)
	// Insert stores a message without conflict handling; used for outbound
	// sends where no wamid exists yet.
	Insert(ctx context.Context, msg Message) (Message, error)
	// UpsertByWamid inserts a message or returns the existing row carrying
	// the same wamid unchanged.
	UpsertByWamid(ctx context.Context, msg Message) (Message, bool, error)
	// UpdateStatusByWamid overwrites the delivery status of the message
	// carrying the wamid. Unknown wamids return ErrNotFound.
	UpdateStatusByWamid(ctx context.Context, wamid, status string) (Message, error)
}
