package domain

const (
	EventTypeMessage = "message"
	MessageTypeText  = "text"
	SourceTypeUser   = "user"
)

// WebhookPayload is the body LINE posts to the webhook endpoint.
type WebhookPayload struct {
	Destination string  `json:"destination"`
	Events      []Event `json:"events"`
}

// Event is a single inbound LINE webhook event. Only the fields the bot reads
// are decoded.
type Event struct {
	Type            string          `json:"type"`
	WebhookEventID  string          `json:"webhookEventId"`
	Timestamp       int64           `json:"timestamp"`
	ReplyToken      string          `json:"replyToken"`
	Source          *EventSource    `json:"source,omitempty"`
	Message         *EventMessage   `json:"message,omitempty"`
	DeliveryContext DeliveryContext `json:"deliveryContext"`
}

type EventSource struct {
	Type    string `json:"type"`
	UserID  string `json:"userId"`
	GroupID string `json:"groupId,omitempty"`
	RoomID  string `json:"roomId,omitempty"`
}

type EventMessage struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text"`
}

type DeliveryContext struct {
	IsRedelivery bool `json:"isRedelivery"`
}

// IsTextMessage reports whether the event carries a user text message.
func (e Event) IsTextMessage() bool {
	return e.Type == EventTypeMessage && e.Message != nil && e.Message.Type == MessageTypeText
}

// Text returns the message text, or "" for non-message events.
func (e Event) Text() string {
	if e.Message == nil {
		return ""
	}
	return e.Message.Text
}

// UserID returns the originating user id, or "" when LINE did not supply one.
func (e Event) UserID() string {
	if e.Source == nil {
		return ""
	}
	return e.Source.UserID
}
