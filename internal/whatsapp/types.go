package whatsapp

// Template is message template metadata as returned by the provider.
type Template struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Language   string              `json:"language"`
	Status     string              `json:"status"`
	Category   string              `json:"category"`
	Components []TemplateComponent `json:"components"`
}

// TemplateComponent is one declared component (HEADER, BODY, FOOTER, BUTTONS).
type TemplateComponent struct {
	Type    string            `json:"type"`
	Format  string            `json:"format,omitempty"`
	Text    string            `json:"text,omitempty"`
	Example *ComponentExample `json:"example,omitempty"`
	Buttons []TemplateButton  `json:"buttons,omitempty"`
}

// ComponentExample carries the provider's declared example values. When the
// body declares named parameters, the named list is authoritative for slot
// names and cardinality.
type ComponentExample struct {
	HeaderText          []string     `json:"header_text,omitempty"`
	BodyText            [][]string   `json:"body_text,omitempty"`
	BodyTextNamedParams []NamedParam `json:"body_text_named_params,omitempty"`
}

// NamedParam is one named placeholder with its example value.
type NamedParam struct {
	ParamName string `json:"param_name"`
	Example   string `json:"example"`
}

// TemplateButton is one declared button. A URL button needs a runtime value
// when it is marked dynamic, carries an example array, or embeds a placeholder
// in its URL literal.
type TemplateButton struct {
	Type    string   `json:"type"`
	Text    string   `json:"text"`
	URL     string   `json:"url,omitempty"`
	URLType string   `json:"url_type,omitempty"`
	Example []string `json:"example,omitempty"`
}

// Component is one entry of the components array sent with a template message.
// Index is only set for button components (button declaration order).
type Component struct {
	Type       string      `json:"type"`
	SubType    string      `json:"sub_type,omitempty"`
	Index      *int        `json:"index,omitempty"`
	Parameters []Parameter `json:"parameters"`
}

// Parameter is one substitution value inside a component.
type Parameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// WebhookPayload is the envelope the provider posts to the webhook endpoint.
type WebhookPayload struct {
	Entry []WebhookEntry `json:"entry"`
}

// WebhookEntry groups changes for one subscribed object.
type WebhookEntry struct {
	Changes []WebhookChange `json:"changes"`
}

// WebhookChange carries one field change; only field "messages" is relevant.
type WebhookChange struct {
	Field string       `json:"field"`
	Value WebhookValue `json:"value"`
}

// WebhookValue holds inbound messages, status updates, and sender profiles.
type WebhookValue struct {
	Messages []InboundMessage `json:"messages,omitempty"`
	Statuses []StatusUpdate   `json:"statuses,omitempty"`
	Contacts []WebhookContact `json:"contacts,omitempty"`
}

// InboundMessage is one received message. Exactly one of the typed payloads is
// set, matching Type.
type InboundMessage struct {
	ID        string           `json:"id"`
	From      string           `json:"from"`
	Type      string           `json:"type"`
	Timestamp string           `json:"timestamp"`
	Text      *TextPayload     `json:"text,omitempty"`
	Image     *MediaPayload    `json:"image,omitempty"`
	Audio     *MediaPayload    `json:"audio,omitempty"`
	Video     *MediaPayload    `json:"video,omitempty"`
	Document  *DocumentPayload `json:"document,omitempty"`
}

// TextPayload is the body of a plain text message.
type TextPayload struct {
	Body string `json:"body"`
}

// MediaPayload is the common shape of image/audio/video payloads.
type MediaPayload struct {
	ID      string `json:"id"`
	Mime    string `json:"mime_type,omitempty"`
	Caption string `json:"caption,omitempty"`
}

// DocumentPayload is the payload of a document message.
type DocumentPayload struct {
	ID       string `json:"id"`
	Mime     string `json:"mime_type,omitempty"`
	Filename string `json:"filename,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

// StatusUpdate is one delivery/read receipt keyed by provider message id.
type StatusUpdate struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// WebhookContact carries the sender's profile as supplied by the provider.
type WebhookContact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

// SenderName returns the profile name of the contact matching from, if any.
func SenderName(contacts []WebhookContact, from string) string {
	for _, c := range contacts {
		if c.WaID == from {
			return c.Profile.Name
		}
	}
	return ""
}
