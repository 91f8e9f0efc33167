package campaigns

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/devarche/wpp-dashboard/internal/contacts"
	"github.com/devarche/wpp-dashboard/internal/conversations"
	"github.com/devarche/wpp-dashboard/internal/feed"
	"github.com/devarche/wpp-dashboard/internal/logger"
	"github.com/devarche/wpp-dashboard/internal/messages"
	"github.com/devarche/wpp-dashboard/internal/templates"
	"github.com/devarche/wpp-dashboard/internal/whatsapp"
)

// Gateway is the provider surface the sender needs. *whatsapp.Client
// satisfies it.
type Gateway interface {
	SendTemplate(ctx context.Context, to, templateName, languageCode string, components []whatsapp.Component) (string, error)
}

// Sender runs campaign broadcasts. Recipients are processed strictly
// sequentially with a fixed inter-send delay; the provider throttles and
// eventually bans accounts that blast concurrently.
type Sender struct {
	store         Store
	contacts      *contacts.Service
	conversations *conversations.Service
	templates     *templates.Service
	messages      *messages.Service
	gateway       Gateway
	feed          feed.Publisher
	delay         time.Duration
}

// NewSender creates a campaign sender. delay is the pacing interval between
// consecutive provider calls.
func NewSender(
	store Store,
	contactSvc *contacts.Service,
	convSvc *conversations.Service,
	tmplSvc *templates.Service,
	msgSvc *messages.Service,
	gateway Gateway,
	publisher feed.Publisher,
	delay time.Duration,
) *Sender {
	return &Sender{
		store:         store,
		contacts:      contactSvc,
		conversations: convSvc,
		templates:     tmplSvc,
		messages:      msgSvc,
		gateway:       gateway,
		feed:          publisher,
		delay:         delay,
	}
}

// Send runs one campaign batch. The campaign must be in draft; it is marked
// running for the duration of the loop. Every per-recipient error is isolated
// and reported in the result, never returned: one bad phone number must not
// abort the rest of the batch. When partial is true the campaign returns to
// draft afterwards so a follow-up batch can run; otherwise it completes.
func (s *Sender) Send(ctx context.Context, campaignID string, recipients []SendRecipient, partial bool) (SendResult, error) {
	campaign, err := s.store.GetByID(ctx, campaignID)
	if err != nil {
		return SendResult{}, err
	}
	if campaign.Status != StatusDraft {
		return SendResult{}, fmt.Errorf("%w: %s", ErrInvalidState, campaign.Status)
	}
	if len(recipients) == 0 {
		return SendResult{}, ErrNoRecipients
	}

	tmpl, err := s.templates.GetByID(ctx, campaign.TemplateID)
	if err != nil {
		return SendResult{}, fmt.Errorf("load campaign template: %w", err)
	}
	vars := whatsapp.ExtractVariables(whatsapp.Template{
		Name:       tmpl.Name,
		Language:   tmpl.Language,
		Components: tmpl.Components,
	})

	if err := s.store.SetStatus(ctx, campaignID, StatusRunning); err != nil {
		return SendResult{}, err
	}
	s.publishCampaign(ctx, campaignID)

	log := logger.FromContext(ctx).With("campaign_id", campaignID)
	limiter := rate.NewLimiter(rate.Every(s.delay), 1)
	result := SendResult{Failures: []SendFailure{}}

	for _, recipient := range recipients {
		if err := limiter.Wait(ctx); err != nil {
			result.FailedCount++
			result.Failures = append(result.Failures, SendFailure{Phone: recipient.Phone, Error: err.Error()})
			continue
		}
		if err := s.sendOne(ctx, campaign, tmpl, vars, recipient); err != nil {
			log.Warn("campaign send failed for recipient", "phone", recipient.Phone, "error", err)
			result.FailedCount++
			result.Failures = append(result.Failures, SendFailure{Phone: recipient.Phone, Error: whatsapp.HumanMessage(err)})
			continue
		}
		result.SentCount++
	}

	finalStatus := StatusCompleted
	if partial {
		finalStatus = StatusDraft
	}
	if err := s.store.FinishRun(ctx, campaignID, finalStatus, result.SentCount); err != nil {
		log.Error("failed to finalize campaign run", "error", err)
	}
	s.publishCampaign(ctx, campaignID)

	log.Info("campaign run finished",
		"sent", result.SentCount, "failed", result.FailedCount, "status", finalStatus)
	return result, nil
}

func (s *Sender) sendOne(ctx context.Context, campaign Campaign, tmpl templates.Template, vars []whatsapp.Variable, recipient SendRecipient) error {
	phone := digitsOnly(recipient.Phone)
	if phone == "" {
		return fmt.Errorf("phone %q has no digits", recipient.Phone)
	}

	contact, err := s.contacts.Resolve(ctx, phone, "")
	if err != nil {
		return err
	}

	conv, err := s.conversations.UpsertForCampaign(ctx, contact.ID, campaign.ID)
	if err != nil {
		return err
	}
	if campaign.TagID != "" {
		if err := s.conversations.AddTag(ctx, conv.ID, campaign.TagID); err != nil {
			return err
		}
	}

	rec, err := s.store.CreateRecipient(ctx, campaign.ID, contact.ID)
	if err != nil {
		return err
	}

	components := whatsapp.BuildComponents(vars, recipient.Variables)
	// The resolved phone is authoritative for the provider call: resolution
	// may have matched a stored number carrying the country code.
	wamid, err := s.gateway.SendTemplate(ctx, contact.Phone, tmpl.Name, tmpl.Language, components)
	if err != nil {
		if whatsapp.IsOptedOut(err) {
			if optErr := s.contacts.SetOptedOut(ctx, contact.Phone, true); optErr != nil {
				logger.FromContext(ctx).Warn("failed to flag opted-out contact", "phone", contact.Phone, "error", optErr)
			}
		}
		return err
	}

	now := time.Now()
	if err := s.store.MarkRecipientSent(ctx, rec.ID, wamid, now); err != nil {
		return err
	}

	preview := whatsapp.RenderBody(tmpl.Components, recipient.Variables)
	_, err = s.messages.RecordOutbound(ctx, conv.ID, wamid, messages.TypeTemplate, messages.Content{
		TemplateName: tmpl.Name,
		TemplateBody: preview,
	})
	if err != nil {
		return err
	}
	if preview == "" {
		preview = fmt.Sprintf("[Template: %s]", tmpl.Name)
	}
	return s.conversations.UpdatePreview(ctx, conv.ID, preview, now)
}

func (s *Sender) publishCampaign(ctx context.Context, campaignID string) {
	if s.feed == nil {
		return
	}
	campaign, err := s.store.GetByID(ctx, campaignID)
	if err != nil {
		return
	}
	data, err := json.Marshal(campaign)
	if err != nil {
		return
	}
	s.feed.Publish(feed.Event{Type: feed.TypeCampaignUpdated, ID: campaign.ID, Data: data})
}

func digitsOnly(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
