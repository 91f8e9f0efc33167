package webhook

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/devarche/wpp-dashboard/internal/campaigns"
	"github.com/devarche/wpp-dashboard/internal/contacts"
	"github.com/devarche/wpp-dashboard/internal/conversations"
	"github.com/devarche/wpp-dashboard/internal/messages"
	"github.com/devarche/wpp-dashboard/internal/whatsapp"
)

type stubContactStore struct {
	byPhone map[string]contacts.Contact
	nextID  int
}

func newStubContactStore() *stubContactStore {
	return &stubContactStore{byPhone: map[string]contacts.Contact{}}
}

func (s *stubContactStore) GetByPhone(_ context.Context, phone string) (contacts.Contact, error) {
	if c, ok := s.byPhone[phone]; ok {
		return c, nil
	}
	return contacts.Contact{}, contacts.ErrNotFound
}

func (s *stubContactStore) GetByPhoneSuffix(_ context.Context, suffix string) (contacts.Contact, error) {
	for phone, c := range s.byPhone {
		if len(phone) > len(suffix) && strings.HasSuffix(phone, suffix) {
			return c, nil
		}
	}
	return contacts.Contact{}, contacts.ErrNotFound
}

func (s *stubContactStore) Upsert(_ context.Context, phone, name string) (contacts.Contact, error) {
	if c, ok := s.byPhone[phone]; ok {
		return c, nil
	}
	s.nextID++
	c := contacts.Contact{ID: fmt.Sprintf("ct-%d", s.nextID), Phone: phone, Name: name}
	s.byPhone[phone] = c
	return c, nil
}

func (s *stubContactStore) Update(_ context.Context, id string, params contacts.UpdateParams) (contacts.Contact, error) {
	for phone, c := range s.byPhone {
		if c.ID != id {
			continue
		}
		delete(s.byPhone, phone)
		if params.Phone != nil {
			c.Phone = *params.Phone
		}
		if params.Name != nil {
			c.Name = *params.Name
		}
		if params.OptedOut != nil {
			c.OptedOut = *params.OptedOut
		}
		s.byPhone[c.Phone] = c
		return c, nil
	}
	return contacts.Contact{}, contacts.ErrNotFound
}

func (s *stubContactStore) SetOptedOutByPhone(_ context.Context, phone string, optedOut bool) error {
	c, ok := s.byPhone[phone]
	if !ok {
		return contacts.ErrNotFound
	}
	c.OptedOut = optedOut
	s.byPhone[phone] = c
	return nil
}

type stubConvStore struct {
	byID      map[string]conversations.Conversation
	byContact map[string]string
	nextID    int
}

func newStubConvStore() *stubConvStore {
	return &stubConvStore{byID: map[string]conversations.Conversation{}, byContact: map[string]string{}}
}

func (s *stubConvStore) GetByID(_ context.Context, id string) (conversations.Conversation, error) {
	if conv, ok := s.byID[id]; ok {
		return conv, nil
	}
	return conversations.Conversation{}, conversations.ErrNotFound
}

func (s *stubConvStore) GetByContactID(_ context.Context, contactID string) (conversations.Conversation, error) {
	if id, ok := s.byContact[contactID]; ok {
		return s.byID[id], nil
	}
	return conversations.Conversation{}, conversations.ErrNotFound
}

func (s *stubConvStore) List(_ context.Context) ([]conversations.Conversation, error) {
	items := []conversations.Conversation{}
	for _, conv := range s.byID {
		items = append(items, conv)
	}
	return items, nil
}

func (s *stubConvStore) FindOrCreateByContact(_ context.Context, contactID string) (conversations.Conversation, error) {
	if id, ok := s.byContact[contactID]; ok {
		return s.byID[id], nil
	}
	s.nextID++
	conv := conversations.Conversation{ID: fmt.Sprintf("cv-%d", s.nextID), ContactID: contactID}
	s.byID[conv.ID] = conv
	s.byContact[contactID] = conv.ID
	return conv, nil
}

func (s *stubConvStore) UpsertForCampaign(_ context.Context, contactID, campaignID string) (conversations.Conversation, error) {
	conv, _ := s.FindOrCreateByContact(context.Background(), contactID)
	conv.CampaignID = campaignID
	conv.Archived = true
	s.byID[conv.ID] = conv
	return conv, nil
}

func (s *stubConvStore) SetArchived(_ context.Context, id string, archived bool) (conversations.Conversation, error) {
	conv, ok := s.byID[id]
	if !ok {
		return conversations.Conversation{}, conversations.ErrNotFound
	}
	conv.Archived = archived
	s.byID[id] = conv
	return conv, nil
}

func (s *stubConvStore) SetAssignees(_ context.Context, id string, assignees []string) (conversations.Conversation, error) {
	conv, ok := s.byID[id]
	if !ok {
		return conversations.Conversation{}, conversations.ErrNotFound
	}
	conv.Assignees = assignees
	s.byID[id] = conv
	return conv, nil
}

func (s *stubConvStore) AddTag(_ context.Context, id, tagID string) error { return nil }

func (s *stubConvStore) ReplaceTags(_ context.Context, id string, tagIDs []string) error { return nil }

func (s *stubConvStore) UpdatePreview(_ context.Context, id, preview string, at time.Time) error {
	conv, ok := s.byID[id]
	if !ok {
		return conversations.ErrNotFound
	}
	conv.LastMessage = preview
	conv.LastMessageAt = &at
	s.byID[id] = conv
	return nil
}

func (s *stubConvStore) ApplyInbound(_ context.Context, id string, update conversations.InboundUpdate) (conversations.Conversation, error) {
	conv, ok := s.byID[id]
	if !ok {
		return conversations.Conversation{}, conversations.ErrNotFound
	}
	conv.LastMessage = update.Preview
	at := update.ReceivedAt
	conv.LastMessageAt = &at
	conv.UnreadCount++
	conv.Archived = false
	s.byID[id] = conv
	return conv, nil
}

func (s *stubConvStore) ResetUnread(_ context.Context, id string) error {
	conv, ok := s.byID[id]
	if !ok {
		return conversations.ErrNotFound
	}
	conv.UnreadCount = 0
	s.byID[id] = conv
	return nil
}

type stubMessageStore struct {
	byWamid map[string]messages.Message
	all     []messages.Message
	nextID  int
}

func newStubMessageStore() *stubMessageStore {
	return &stubMessageStore{byWamid: map[string]messages.Message{}}
}

func (s *stubMessageStore) ListByConversation(_ context.Context, conversationID string) ([]messages.Message, error) {
	items := []messages.Message{}
	for _, msg := range s.all {
		if msg.ConversationID == conversationID {
			items = append(items, msg)
		}
	}
	return items, nil
}

func (s *stubMessageStore) Insert(_ context.Context, msg messages.Message) (messages.Message, error) {
	s.nextID++
	msg.ID = fmt.Sprintf("ms-%d", s.nextID)
	s.all = append(s.all, msg)
	if msg.Wamid != "" {
		s.byWamid[msg.Wamid] = msg
	}
	return msg, nil
}

func (s *stubMessageStore) UpsertByWamid(_ context.Context, msg messages.Message) (messages.Message, bool, error) {
	if existing, ok := s.byWamid[msg.Wamid]; ok {
		return existing, false, nil
	}
	s.nextID++
	msg.ID = fmt.Sprintf("ms-%d", s.nextID)
	s.all = append(s.all, msg)
	s.byWamid[msg.Wamid] = msg
	return msg, true, nil
}

func (s *stubMessageStore) UpdateStatusByWamid(_ context.Context, wamid, status string) (messages.Message, error) {
	msg, ok := s.byWamid[wamid]
	if !ok {
		return messages.Message{}, messages.ErrNotFound
	}
	msg.Status = status
	s.byWamid[wamid] = msg
	for i := range s.all {
		if s.all[i].ID == msg.ID {
			s.all[i] = msg
		}
	}
	return msg, nil
}

// stubCampaignStore only needs reply tracking; the rest of the interface is
// unused by webhook processing.
type stubCampaignStore struct {
	recipients []campaigns.Recipient
}

func (s *stubCampaignStore) GetByID(_ context.Context, id string) (campaigns.Campaign, error) {
	return campaigns.Campaign{}, campaigns.ErrNotFound
}

func (s *stubCampaignStore) List(_ context.Context) ([]campaigns.Campaign, error) { return nil, nil }

func (s *stubCampaignStore) Create(_ context.Context, name, templateID, tagID string) (campaigns.Campaign, error) {
	return campaigns.Campaign{}, nil
}

func (s *stubCampaignStore) Delete(_ context.Context, id string) error { return nil }

func (s *stubCampaignStore) SetStatus(_ context.Context, id, status string) error { return nil }

func (s *stubCampaignStore) FinishRun(_ context.Context, id, status string, sent int) error {
	return nil
}

func (s *stubCampaignStore) CreateRecipient(_ context.Context, campaignID, contactID string) (campaigns.Recipient, error) {
	rec := campaigns.Recipient{
		ID:         fmt.Sprintf("rc-%d", len(s.recipients)+1),
		CampaignID: campaignID,
		ContactID:  contactID,
		Status:     campaigns.RecipientPending,
	}
	s.recipients = append(s.recipients, rec)
	return rec, nil
}

func (s *stubCampaignStore) MarkRecipientSent(_ context.Context, recipientID, wamid string, at time.Time) error {
	return nil
}

func (s *stubCampaignStore) MarkReplied(_ context.Context, campaignID, contactID string, at time.Time) (bool, error) {
	for i := range s.recipients {
		rec := &s.recipients[i]
		if rec.CampaignID == campaignID && rec.ContactID == contactID && rec.RepliedAt == nil {
			rec.Status = campaigns.RecipientReplied
			rec.RepliedAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (s *stubCampaignStore) ListRecipients(_ context.Context, campaignID string) ([]campaigns.Recipient, error) {
	return s.recipients, nil
}

type fixture struct {
	service   *Service
	contacts  *stubContactStore
	convs     *stubConvStore
	msgs      *stubMessageStore
	campaigns *stubCampaignStore
}

func newFixture() *fixture {
	contactStore := newStubContactStore()
	convStore := newStubConvStore()
	messageStore := newStubMessageStore()
	campaignStore := &stubCampaignStore{}

	service := NewService(
		contacts.NewService(contactStore),
		conversations.NewService(convStore, nil),
		messages.NewService(messageStore, nil),
		campaigns.NewService(campaignStore, nil, nil, nil),
		"secret-token",
	)
	return &fixture{
		service:   service,
		contacts:  contactStore,
		convs:     convStore,
		msgs:      messageStore,
		campaigns: campaignStore,
	}
}

func textEvent(wamid, from, body string) whatsapp.WebhookPayload {
	return whatsapp.WebhookPayload{
		Entry: []whatsapp.WebhookEntry{{
			Changes: []whatsapp.WebhookChange{{
				Field: "messages",
				Value: whatsapp.WebhookValue{
					Messages: []whatsapp.InboundMessage{{
						ID:        wamid,
						From:      from,
						Type:      "text",
						Timestamp: "1735689600",
						Text:      &whatsapp.TextPayload{Body: body},
					}},
					Contacts: []whatsapp.WebhookContact{},
				},
			}},
		}},
	}
}

func TestVerifyHandshake(t *testing.T) {
	t.Parallel()

	f := newFixture()
	challenge, err := f.service.VerifyHandshake("subscribe", "secret-token", "12345")
	if err != nil {
		t.Fatalf("handshake: %v", err)
	}
	if challenge != "12345" {
		t.Fatalf("expected challenge echoed, got %q", challenge)
	}

	if _, err := f.service.VerifyHandshake("subscribe", "wrong", "12345"); err == nil {
		t.Fatalf("expected rejection for wrong token")
	}
	if _, err := f.service.VerifyHandshake("unsubscribe", "secret-token", "12345"); err == nil {
		t.Fatalf("expected rejection for wrong mode")
	}
}

func TestProcessInboundTextMessage(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.service.ProcessEvent(context.Background(), textEvent("wamid.1", "5491155550001", "hola, quiero info"))

	contact, err := f.contacts.GetByPhone(context.Background(), "5491155550001")
	if err != nil {
		t.Fatalf("expected contact created: %v", err)
	}
	conv, err := f.convs.GetByContactID(context.Background(), contact.ID)
	if err != nil {
		t.Fatalf("expected conversation created: %v", err)
	}
	if conv.LastMessage != "hola, quiero info" {
		t.Fatalf("expected text preview, got %q", conv.LastMessage)
	}
	if conv.UnreadCount != 1 {
		t.Fatalf("expected unread bump, got %d", conv.UnreadCount)
	}
	if conv.LastMessageAt == nil || conv.LastMessageAt.Unix() != 1735689600 {
		t.Fatalf("expected provider timestamp on preview, got %v", conv.LastMessageAt)
	}

	msgs, _ := f.msgs.ListByConversation(context.Background(), conv.ID)
	if len(msgs) != 1 || msgs[0].Direction != messages.DirectionInbound || msgs[0].Content.Body != "hola, quiero info" {
		t.Fatalf("unexpected stored message: %+v", msgs)
	}
}

func TestProcessDuplicateDeliveryIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture()
	event := textEvent("wamid.dup", "5491155550001", "hola")
	f.service.ProcessEvent(context.Background(), event)
	f.service.ProcessEvent(context.Background(), event)

	if len(f.msgs.all) != 1 {
		t.Fatalf("expected one message row after redelivery, got %d", len(f.msgs.all))
	}
}

func TestProcessCampaignReplyUnarchivesAndStampsOnce(t *testing.T) {
	t.Parallel()

	f := newFixture()

	contact, _ := f.contacts.Upsert(context.Background(), "5491155550001", "Ana")
	conv, _ := f.convs.UpsertForCampaign(context.Background(), contact.ID, "cp-1")
	if !conv.Archived {
		t.Fatalf("precondition: conversation should start archived")
	}
	f.campaigns.CreateRecipient(context.Background(), "cp-1", contact.ID)

	f.service.ProcessEvent(context.Background(), textEvent("wamid.r1", "5491155550001", "me interesa"))

	conv, _ = f.convs.GetByID(context.Background(), conv.ID)
	if conv.Archived {
		t.Fatalf("expected inbound reply to unarchive the conversation")
	}
	recs, _ := f.campaigns.ListRecipients(context.Background(), "cp-1")
	if recs[0].Status != campaigns.RecipientReplied || recs[0].RepliedAt == nil {
		t.Fatalf("expected replied stamp, got %+v", recs[0])
	}
	firstReply := *recs[0].RepliedAt

	// A later reply must not overwrite the stamp; the conversation is no
	// longer archived, so the campaign-reply condition no longer holds.
	f.service.ProcessEvent(context.Background(), textEvent("wamid.r2", "5491155550001", "sigo aca"))
	recs, _ = f.campaigns.ListRecipients(context.Background(), "cp-1")
	if !recs[0].RepliedAt.Equal(firstReply) {
		t.Fatalf("expected first-reply-wins, stamp changed")
	}
}

func TestProcessOptOutKeywordFlagsContact(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.service.ProcessEvent(context.Background(), textEvent("wamid.o1", "5491155550001", "  BAJA "))

	contact, err := f.contacts.GetByPhone(context.Background(), "5491155550001")
	if err != nil {
		t.Fatalf("lookup contact: %v", err)
	}
	if !contact.OptedOut {
		t.Fatalf("expected opt-out keyword to flag contact")
	}

	f.service.ProcessEvent(context.Background(), textEvent("wamid.o2", "5491155550001", "alta"))
	contact, _ = f.contacts.GetByPhone(context.Background(), "5491155550001")
	if contact.OptedOut {
		t.Fatalf("expected opt-in keyword to clear the flag")
	}
}

func TestProcessMediaPreviews(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		message whatsapp.InboundMessage
		preview string
	}{
		{
			name: "image with caption",
			message: whatsapp.InboundMessage{
				ID: "wamid.m1", From: "541100000001", Type: "image",
				Image: &whatsapp.MediaPayload{ID: "media-1", Caption: "mira esto"},
			},
			preview: "mira esto",
		},
		{
			name: "image without caption",
			message: whatsapp.InboundMessage{
				ID: "wamid.m2", From: "541100000002", Type: "image",
				Image: &whatsapp.MediaPayload{ID: "media-2"},
			},
			preview: "[Image]",
		},
		{
			name: "audio",
			message: whatsapp.InboundMessage{
				ID: "wamid.m3", From: "541100000003", Type: "audio",
				Audio: &whatsapp.MediaPayload{ID: "media-3"},
			},
			preview: "[Audio]",
		},
		{
			name: "document",
			message: whatsapp.InboundMessage{
				ID: "wamid.m4", From: "541100000004", Type: "document",
				Document: &whatsapp.DocumentPayload{ID: "media-4", Filename: "factura.pdf"},
			},
			preview: "[Document: factura.pdf]",
		},
		{
			name: "unknown type",
			message: whatsapp.InboundMessage{
				ID: "wamid.m5", From: "541100000005", Type: "sticker",
			},
			preview: "[sticker]",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			f.service.ProcessEvent(context.Background(), whatsapp.WebhookPayload{
				Entry: []whatsapp.WebhookEntry{{
					Changes: []whatsapp.WebhookChange{{
						Field: "messages",
						Value: whatsapp.WebhookValue{Messages: []whatsapp.InboundMessage{tc.message}},
					}},
				}},
			})

			contact, err := f.contacts.GetByPhone(context.Background(), tc.message.From)
			if err != nil {
				t.Fatalf("lookup contact: %v", err)
			}
			conv, _ := f.convs.GetByContactID(context.Background(), contact.ID)
			if conv.LastMessage != tc.preview {
				t.Fatalf("expected preview %q, got %q", tc.preview, conv.LastMessage)
			}
		})
	}
}

func TestProcessStatusUpdateOverwrites(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.service.ProcessEvent(context.Background(), textEvent("wamid.s1", "5491155550001", "hola"))

	statusEvent := func(status string) whatsapp.WebhookPayload {
		return whatsapp.WebhookPayload{
			Entry: []whatsapp.WebhookEntry{{
				Changes: []whatsapp.WebhookChange{{
					Field: "messages",
					Value: whatsapp.WebhookValue{
						Statuses: []whatsapp.StatusUpdate{{ID: "wamid.s1", Status: status}},
					},
				}},
			}},
		}
	}

	f.service.ProcessEvent(context.Background(), statusEvent("read"))
	if f.msgs.byWamid["wamid.s1"].Status != "read" {
		t.Fatalf("expected read status")
	}

	// Provider ordering is trusted: a late "sent" overwrites "read".
	f.service.ProcessEvent(context.Background(), statusEvent("sent"))
	if f.msgs.byWamid["wamid.s1"].Status != "sent" {
		t.Fatalf("expected late update to overwrite")
	}

	// Unknown wamid is swallowed, not an error.
	f.service.ProcessEvent(context.Background(), whatsapp.WebhookPayload{
		Entry: []whatsapp.WebhookEntry{{
			Changes: []whatsapp.WebhookChange{{
				Field: "messages",
				Value: whatsapp.WebhookValue{
					Statuses: []whatsapp.StatusUpdate{{ID: "wamid.unknown", Status: "delivered"}},
				},
			}},
		}},
	})
}

func TestProcessIgnoresOtherChangeFields(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.service.ProcessEvent(context.Background(), whatsapp.WebhookPayload{
		Entry: []whatsapp.WebhookEntry{{
			Changes: []whatsapp.WebhookChange{{
				Field: "account_update",
				Value: whatsapp.WebhookValue{
					Messages: []whatsapp.InboundMessage{{
						ID: "wamid.x", From: "5491155550001", Type: "text",
						Text: &whatsapp.TextPayload{Body: "hola"},
					}},
				},
			}},
		}},
	})

	if len(f.msgs.all) != 0 {
		t.Fatalf("expected non-message changes to be ignored")
	}
}

func TestDetectOptChange(t *testing.T) {
	t.Parallel()

	cases := []struct {
		body    string
		out     bool
		matched bool
	}{
		{"STOP", true, true},
		{"  baja  ", true, true},
		{"no quiero", true, true},
		{"start", false, true},
		{"alta", false, true},
		{"quiero dar de baja", false, false},
		{"hola", false, false},
	}
	for _, tc := range cases {
		out, matched := DetectOptChange(tc.body)
		if out != tc.out || matched != tc.matched {
			t.Fatalf("DetectOptChange(%q) = %v/%v, expected %v/%v", tc.body, out, matched, tc.out, tc.matched)
		}
	}
}
