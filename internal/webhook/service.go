// Package webhook ingests provider callbacks: the verification handshake,
// inbound messages, and delivery status updates.
package webhook

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/devarche/wpp-dashboard/internal/campaigns"
	"github.com/devarche/wpp-dashboard/internal/contacts"
	"github.com/devarche/wpp-dashboard/internal/conversations"
	"github.com/devarche/wpp-dashboard/internal/logger"
	"github.com/devarche/wpp-dashboard/internal/messages"
	"github.com/devarche/wpp-dashboard/internal/whatsapp"
)

// SubscribeMode is the hub.mode value of a valid verification handshake.
const SubscribeMode = "subscribe"

// ErrVerifyFailed is returned when a handshake carries the wrong mode or
// token.
var ErrVerifyFailed = errors.New("webhook verification failed")

// Service processes provider webhook deliveries. Events may arrive
// concurrently, duplicated, and out of order; all message mutations are
// idempotent on wamid and reply stamps are first-write-wins.
type Service struct {
	contacts      *contacts.Service
	conversations *conversations.Service
	messages      *messages.Service
	campaigns     *campaigns.Service
	verifyToken   string
}

// NewService creates a webhook service.
func NewService(
	contactSvc *contacts.Service,
	convSvc *conversations.Service,
	msgSvc *messages.Service,
	campaignSvc *campaigns.Service,
	verifyToken string,
) *Service {
	return &Service{
		contacts:      contactSvc,
		conversations: convSvc,
		messages:      msgSvc,
		campaigns:     campaignSvc,
		verifyToken:   verifyToken,
	}
}

// VerifyHandshake validates the provider's subscription handshake and returns
// the challenge to echo back.
func (s *Service) VerifyHandshake(mode, token, challenge string) (string, error) {
	if mode != SubscribeMode || token != s.verifyToken {
		return "", ErrVerifyFailed
	}
	return challenge, nil
}

// ProcessEvent walks one webhook delivery. Per-message errors are logged and
// swallowed so one bad message never blocks the rest of the batch; the
// handler acknowledges regardless to stop provider retries.
func (s *Service) ProcessEvent(ctx context.Context, payload whatsapp.WebhookPayload) {
	log := logger.FromContext(ctx)
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}
			for _, msg := range change.Value.Messages {
				if err := s.processMessage(ctx, msg, change.Value.Contacts); err != nil {
					log.Error("webhook message processing failed", "wamid", msg.ID, "error", err)
				}
			}
			for _, status := range change.Value.Statuses {
				if err := s.processStatus(ctx, status); err != nil {
					log.Error("webhook status update failed", "wamid", status.ID, "error", err)
				}
			}
		}
	}
}

func (s *Service) processMessage(ctx context.Context, msg whatsapp.InboundMessage, senders []whatsapp.WebhookContact) error {
	optedOut, optMatched := false, false
	if msg.Type == "text" && msg.Text != nil {
		optedOut, optMatched = DetectOptChange(msg.Text.Body)
	}

	contact, err := s.contacts.Resolve(ctx, msg.From, whatsapp.SenderName(senders, msg.From))
	if err != nil {
		return err
	}
	if optMatched && contact.OptedOut != optedOut {
		if _, err := s.contacts.Update(ctx, contact.ID, contacts.UpdateParams{OptedOut: &optedOut}); err != nil {
			return err
		}
	}

	conv, err := s.conversations.FindOrCreateByContact(ctx, contact.ID)
	if err != nil {
		return err
	}
	// The reply stamp depends on the state before this event unarchives the
	// conversation.
	wasCampaignReply := conv.CampaignID != "" && conv.Archived

	stored, _, err := s.messages.RecordInbound(ctx, conv.ID, msg.ID, msg.Type, inboundContent(msg))
	if err != nil {
		return err
	}

	if _, err := s.conversations.ApplyInbound(ctx, conv.ID, conversations.InboundUpdate{
		Preview:    messages.Preview(stored),
		ReceivedAt: inboundTime(msg),
	}); err != nil {
		return err
	}

	if wasCampaignReply {
		if _, err := s.campaigns.RecordReply(ctx, conv.CampaignID, contact.ID, time.Now()); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) processStatus(ctx context.Context, status whatsapp.StatusUpdate) error {
	// The provider's ordering is trusted as-is; a late "sent" may overwrite
	// an earlier "read".
	_, err := s.messages.UpdateStatusByWamid(ctx, status.ID, status.Status)
	if errors.Is(err, messages.ErrNotFound) {
		return nil
	}
	return err
}

func inboundContent(msg whatsapp.InboundMessage) messages.Content {
	var content messages.Content
	switch {
	case msg.Text != nil:
		content.Body = msg.Text.Body
	case msg.Image != nil:
		content.MediaID = msg.Image.ID
		content.MimeType = msg.Image.Mime
		content.Caption = msg.Image.Caption
	case msg.Audio != nil:
		content.MediaID = msg.Audio.ID
		content.MimeType = msg.Audio.Mime
	case msg.Video != nil:
		content.MediaID = msg.Video.ID
		content.MimeType = msg.Video.Mime
		content.Caption = msg.Video.Caption
	case msg.Document != nil:
		content.MediaID = msg.Document.ID
		content.MimeType = msg.Document.Mime
		content.Caption = msg.Document.Caption
		content.Filename = msg.Document.Filename
	}
	return content
}

func inboundTime(msg whatsapp.InboundMessage) time.Time {
	if secs, err := strconv.ParseInt(msg.Timestamp, 10, 64); err == nil && secs > 0 {
		return time.Unix(secs, 0)
	}
	return time.Now()
}
