package store

import (
	"time"

	"github.com/google/uuid"
)

// Delivery status constants
const (
	DeliveryPendingFollow = "pending_follow"
	DeliveryLinkSent      = "link_sent"
	DeliveryFailed        = "failed"
)

// AutomationRule maps one Instagram post to a keyword trigger and a
// two-stage message script. Rules are created and edited by the dashboard;
// the engine only ever bumps the counters.
type AutomationRule struct {
	ID            uuid.UUID  `json:"id"`
	AccountID     string     `json:"account_id"`
	MediaID       string     `json:"media_id"`
	Keywords      []string   `json:"keywords"`
	MatchAny      bool       `json:"match_any"` // wildcard: trigger on every comment
	RequireFollow bool       `json:"require_follow"`
	FollowMessage string     `json:"follow_message"` // first stage, only used when RequireFollow
	LinkMessage   string     `json:"link_message"`   // second stage, the real payload
	LinkURL       string     `json:"link_url"`
	LinkTitle     string     `json:"link_title"`
	LinkImageURL  string     `json:"link_image_url"`
	Active        bool       `json:"active"`
	TotalSent     int        `json:"total_sent"`
	LastSentAt    *time.Time `json:"last_sent_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// DeliveryLogEntry records what the engine did for one (rule, recipient)
// pair. The unique index on (rule_id, recipient_id) is the dedup key:
// at most one entry ever exists per pair.
type DeliveryLogEntry struct {
	ID                uuid.UUID  `json:"id"`
	RuleID            uuid.UUID  `json:"rule_id"`
	RecipientID       string     `json:"recipient_id"`
	RecipientUsername string     `json:"recipient_username"`
	CommentID         string     `json:"comment_id"`
	CommentText       string     `json:"comment_text"`
	MessageText       string     `json:"message_text"`
	Status            string     `json:"status"`
	CreatedAt         time.Time  `json:"created_at"`
	LinkSentAt        *time.Time `json:"link_sent_at,omitempty"`
}

// AccountCredentials holds the provider access token for one connected
// Instagram account. Read-only for the engine.
type AccountCredentials struct {
	AccountID      string
	AccessToken    string
	PlatformUserID string
}

// LinkTarget is the outbound link attached to a rule, with optional
// card display fields.
type LinkTarget struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	ImageURL string `json:"image_url"`
}

// TrackingLink is a short redirect link with a click counter.
type TrackingLink struct {
	ID          uuid.UUID `json:"id"`
	AccountID   string    `json:"account_id"`
	Code        string    `json:"code"`
	Destination string    `json:"destination"`
	ClickCount  int64     `json:"click_count"`
	CreatedAt   time.Time `json:"created_at"`
}
