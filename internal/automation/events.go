package automation

import "encoding/json"

// WebhookPayload is the provider-shaped batch body posted to the event
// intake endpoint.
type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

// WebhookEntry is one account's slice of a batch. It can carry comment
// changes, messaging events, or both.
type WebhookEntry struct {
	ID        string              `json:"id"`
	Changes   []CommentChange     `json:"changes,omitempty"`
	Messaging []MessagingEnvelope `json:"messaging,omitempty"`
}

// CommentChange is a raw comment-change sub-event
type CommentChange struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

type commentValue struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	From struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"from"`
	Media struct {
		ID string `json:"id"`
	} `json:"media"`
}

// MessagingEnvelope is a raw messaging sub-event
type MessagingEnvelope struct {
	Sender struct {
		ID string `json:"id"`
	} `json:"sender"`
	Recipient struct {
		ID string `json:"id"`
	} `json:"recipient"`
	Message *struct {
		Text       string `json:"text"`
		IsEcho     bool   `json:"is_echo"`
		QuickReply *struct {
			Payload string `json:"payload"`
		} `json:"quick_reply"`
	} `json:"message"`
	Postback *struct {
		Payload string `json:"payload"`
	} `json:"postback"`
}

// CommentEvent is a parsed comment on a tracked post. Ephemeral; lives for
// one webhook invocation.
type CommentEvent struct {
	AccountID      string
	CommentID      string
	Text           string
	AuthorID       string
	AuthorUsername string
	MediaID        string
}

// MessagingKind tags the three shapes a messaging event can take
type MessagingKind int

const (
	KindFreeText MessagingKind = iota
	KindCallback
	KindQuickReply
)

// MessagingEvent is a parsed direct-message event, usually the recipient's
// reply to a follow request.
type MessagingEvent struct {
	AccountID string
	SenderID  string
	Kind      MessagingKind
	Text      string
	Payload   string
}

// ParseEntry splits one webhook entry into typed comment and messaging
// events. Malformed sub-events are dropped; a bad element must not poison
// its siblings.
func ParseEntry(entry WebhookEntry) ([]CommentEvent, []MessagingEvent) {
	var comments []CommentEvent
	var messages []MessagingEvent

	for _, change := range entry.Changes {
		if change.Field != "comments" {
			continue
		}
		var value commentValue
		if err := json.Unmarshal(change.Value, &value); err != nil {
			continue
		}
		if value.ID == "" || value.From.ID == "" {
			continue
		}
		comments = append(comments, CommentEvent{
			AccountID:      entry.ID,
			CommentID:      value.ID,
			Text:           value.Text,
			AuthorID:       value.From.ID,
			AuthorUsername: value.From.Username,
			MediaID:        value.Media.ID,
		})
	}

	for _, env := range entry.Messaging {
		if env.Sender.ID == "" || env.Sender.ID == entry.ID {
			continue // missing sender, or our own outbound message
		}
		if env.Message != nil && env.Message.IsEcho {
			continue
		}

		ev := MessagingEvent{AccountID: entry.ID, SenderID: env.Sender.ID}
		switch {
		case env.Postback != nil && env.Postback.Payload != "":
			ev.Kind = KindCallback
			ev.Payload = env.Postback.Payload
		case env.Message != nil && env.Message.QuickReply != nil && env.Message.QuickReply.Payload != "":
			ev.Kind = KindQuickReply
			ev.Payload = env.Message.QuickReply.Payload
		case env.Message != nil && env.Message.Text != "":
			ev.Kind = KindFreeText
			ev.Text = env.Message.Text
		default:
			continue
		}
		messages = append(messages, ev)
	}

	return comments, messages
}
