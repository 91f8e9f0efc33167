package campaigns

import (
	"context"
	"errors"
	"time"
)

// Campaign statuses.
const (
	StatusDraft     = "draft"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusPaused    = "paused"
)

// Recipient statuses.
const (
	RecipientPending = "pending"
	RecipientSent    = "sent"
	RecipientReplied = "replied"
)

var (
	// ErrNotFound is returned when no campaign matches a lookup.
	ErrNotFound = errors.New("campaign not found")
	// ErrInvalidState is returned when a send is attempted on a campaign
	// that is not in draft.
	ErrInvalidState = errors.New("campaign is not in draft status")
	// ErrNoRecipients is returned when a send carries an empty recipient
	// list.
	ErrNoRecipients = errors.New("recipient list is empty")
)

// Campaign is one template broadcast. SentCount accumulates across runs;
// RepliedCount is derived from recipient rows on read.
type Campaign struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	TemplateID   string    `json:"template_id"`
	TagID        string    `json:"tag_id,omitempty"`
	Status       string    `json:"status"`
	SentCount    int       `json:"sent_count"`
	RepliedCount int       `json:"replied_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Recipient is one attempted send within a campaign.
type Recipient struct {
	ID         string     `json:"id"`
	CampaignID string     `json:"campaign_id"`
	ContactID  string     `json:"contact_id"`
	Status     string     `json:"status"`
	Wamid      string     `json:"wamid,omitempty"`
	SentAt     *time.Time `json:"sent_at,omitempty"`
	RepliedAt  *time.Time `json:"replied_at,omitempty"`
}

// SendRecipient is one entry in a send request: the raw phone plus the
// per-recipient template variable values keyed by slot.
type SendRecipient struct {
	Phone     string            `json:"phone"`
	Variables map[string]string `json:"variables,omitempty"`
}

// SendFailure reports one recipient the orchestrator could not deliver to.
type SendFailure struct {
	Phone string `json:"phone"`
	Error string `json:"error"`
}

// SendResult summarizes one campaign run.
type SendResult struct {
	SentCount   int           `json:"sent_count"`
	FailedCount int           `json:"failed_count"`
	Failures    []SendFailure `json:"failures"`
}

// Store is the persistence seam for campaigns and their recipients.
type Store interface {
	GetByID(ctx context.Context, id string) (Campaign, error)
	List(ctx context.Context) ([]Campaign, error)
	Create(ctx context.Context, name, templateID, tagID string) (Campaign, error)
	Delete(ctx context.Context, id string) error
	// SetStatus moves a campaign between statuses unconditionally.
	SetStatus(ctx context.Context, id, status string) error
	// FinishRun adds a run's sent count to the cumulative total and sets
	// the final status in one statement.
	FinishRun(ctx context.Context, id, status string, sent int) error
	CreateRecipient(ctx context.Context, campaignID, contactID string) (Recipient, error)
	MarkRecipientSent(ctx context.Context, recipientID, wamid string, at time.Time) error
	// MarkReplied stamps replied_at for the campaign/contact pair only when
	// it is still unset. It reports whether a row was updated.
	MarkReplied(ctx context.Context, campaignID, contactID string, at time.Time) (bool, error)
	ListRecipients(ctx context.Context, campaignID string) ([]Recipient, error)
}
