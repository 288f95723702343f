// Package store provides database operations for automation rules,
// delivery log entries, account credentials and tracking links.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Store provides database operations for the automation engine
type Store struct {
	db *sql.DB
}

// NewStore creates a new store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// FindActiveRuleForMedia returns the active rule targeting the given post,
// or nil if none exists.
func (s *Store) FindActiveRuleForMedia(ctx context.Context, mediaID string) (*AutomationRule, error) {
	query := `SELECT id, account_id, media_id, keywords, match_any, require_follow,
		follow_message, link_message, link_url, link_title, link_image_url,
		active, total_sent, last_sent_at, created_at, updated_at
		FROM automation_rules WHERE media_id = $1 AND active = true LIMIT 1`

	return s.scanRule(s.db.QueryRowContext(ctx, query, mediaID))
}

// GetRule retrieves a rule by ID
func (s *Store) GetRule(ctx context.Context, id uuid.UUID) (*AutomationRule, error) {
	query := `SELECT id, account_id, media_id, keywords, match_any, require_follow,
		follow_message, link_message, link_url, link_title, link_image_url,
		active, total_sent, last_sent_at, created_at, updated_at
		FROM automation_rules WHERE id = $1`

	return s.scanRule(s.db.QueryRowContext(ctx, query, id))
}

func (s *Store) scanRule(row *sql.Row) (*AutomationRule, error) {
	rule := &AutomationRule{}
	var keywords pq.StringArray
	err := row.Scan(&rule.ID, &rule.AccountID, &rule.MediaID, &keywords, &rule.MatchAny,
		&rule.RequireFollow, &rule.FollowMessage, &rule.LinkMessage, &rule.LinkURL,
		&rule.LinkTitle, &rule.LinkImageURL, &rule.Active, &rule.TotalSent,
		&rule.LastSentAt, &rule.CreatedAt, &rule.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rule.Keywords = keywords
	return rule, nil
}

// ListRules returns all rules for an account, newest first
func (s *Store) ListRules(ctx context.Context, accountID string) ([]*AutomationRule, error) {
	query := `SELECT id, account_id, media_id, keywords, match_any, require_follow,
		follow_message, link_message, link_url, link_title, link_image_url,
		active, total_sent, last_sent_at, created_at, updated_at
		FROM automation_rules WHERE account_id = $1 ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*AutomationRule
	for rows.Next() {
		rule := &AutomationRule{}
		var keywords pq.StringArray
		if err := rows.Scan(&rule.ID, &rule.AccountID, &rule.MediaID, &keywords, &rule.MatchAny,
			&rule.RequireFollow, &rule.FollowMessage, &rule.LinkMessage, &rule.LinkURL,
			&rule.LinkTitle, &rule.LinkImageURL, &rule.Active, &rule.TotalSent,
			&rule.LastSentAt, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
			return nil, err
		}
		rule.Keywords = keywords
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// CreateRule inserts a new automation rule
func (s *Store) CreateRule(ctx context.Context, rule *AutomationRule) error {
	rule.ID = uuid.New()
	rule.CreatedAt = time.Now()
	rule.UpdatedAt = rule.CreatedAt
	rule.Active = true

	query := `INSERT INTO automation_rules (id, account_id, media_id, keywords, match_any,
		require_follow, follow_message, link_message, link_url, link_title, link_image_url,
		active, total_sent, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 0, $13, $14)`

	_, err := s.db.ExecContext(ctx, query, rule.ID, rule.AccountID, rule.MediaID,
		pq.StringArray(rule.Keywords), rule.MatchAny, rule.RequireFollow,
		rule.FollowMessage, rule.LinkMessage, rule.LinkURL, rule.LinkTitle,
		rule.LinkImageURL, rule.Active, rule.CreatedAt, rule.UpdatedAt)
	return err
}

// UpdateRule updates the dashboard-editable fields of a rule
func (s *Store) UpdateRule(ctx context.Context, rule *AutomationRule) error {
	query := `UPDATE automation_rules SET keywords = $2, match_any = $3, require_follow = $4,
		follow_message = $5, link_message = $6, link_url = $7, link_title = $8,
		link_image_url = $9, active = $10, updated_at = $11 WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query, rule.ID, pq.StringArray(rule.Keywords),
		rule.MatchAny, rule.RequireFollow, rule.FollowMessage, rule.LinkMessage,
		rule.LinkURL, rule.LinkTitle, rule.LinkImageURL, rule.Active, time.Now())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("rule %s not found", rule.ID)
	}
	return nil
}

// DeactivateRule soft-disables a rule. The engine never hard-deletes rules.
func (s *Store) DeactivateRule(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE automation_rules SET active = false, updated_at = $2 WHERE id = $1`,
		id, time.Now())
	return err
}

// IncrementRuleCounters bumps total_sent and last_sent_at after a
// completed link delivery.
func (s *Store) IncrementRuleCounters(ctx context.Context, ruleID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE automation_rules SET total_sent = total_sent + 1, last_sent_at = $2 WHERE id = $1`,
		ruleID, time.Now())
	return err
}

// FindAccountCredentials returns the provider credentials for an account,
// or nil if the account is not connected.
func (s *Store) FindAccountCredentials(ctx context.Context, accountID string) (*AccountCredentials, error) {
	creds := &AccountCredentials{AccountID: accountID}
	err := s.db.QueryRowContext(ctx,
		`SELECT access_token, platform_user_id FROM instagram_accounts WHERE account_id = $1`,
		accountID).Scan(&creds.AccessToken, &creds.PlatformUserID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return creds, nil
}

// FindLinkTarget returns the outbound link and card display fields for a rule
func (s *Store) FindLinkTarget(ctx context.Context, ruleID uuid.UUID) (*LinkTarget, error) {
	target := &LinkTarget{}
	err := s.db.QueryRowContext(ctx,
		`SELECT link_url, link_title, link_image_url FROM automation_rules WHERE id = $1`,
		ruleID).Scan(&target.URL, &target.Title, &target.ImageURL)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return target, nil
}

// FindDelivery returns the delivery log entry for (rule, recipient), or nil.
// This is the dedup lookup.
func (s *Store) FindDelivery(ctx context.Context, ruleID uuid.UUID, recipientID string) (*DeliveryLogEntry, error) {
	query := `SELECT id, rule_id, recipient_id, recipient_username, comment_id, comment_text,
		message_text, status, created_at, link_sent_at
		FROM automation_deliveries WHERE rule_id = $1 AND recipient_id = $2`

	return s.scanDelivery(s.db.QueryRowContext(ctx, query, ruleID, recipientID))
}

// FindLatestPendingFollow returns the most recent pending_follow entry for a
// recipient across all rules. Used to recover the rule when a follow
// confirmation arrives as free text with no payload.
func (s *Store) FindLatestPendingFollow(ctx context.Context, recipientID string) (*DeliveryLogEntry, error) {
	query := `SELECT id, rule_id, recipient_id, recipient_username, comment_id, comment_text,
		message_text, status, created_at, link_sent_at
		FROM automation_deliveries WHERE recipient_id = $1 AND status = 'pending_follow'
		ORDER BY created_at DESC LIMIT 1`

	return s.scanDelivery(s.db.QueryRowContext(ctx, query, recipientID))
}

func (s *Store) scanDelivery(row *sql.Row) (*DeliveryLogEntry, error) {
	entry := &DeliveryLogEntry{}
	err := row.Scan(&entry.ID, &entry.RuleID, &entry.RecipientID, &entry.RecipientUsername,
		&entry.CommentID, &entry.CommentText, &entry.MessageText, &entry.Status,
		&entry.CreatedAt, &entry.LinkSentAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// CreateDelivery inserts a new delivery log entry. The unique index on
// (rule_id, recipient_id) rejects a second insert for the same pair; that
// conflict is surfaced as an error so the caller can treat the recipient
// as already handled.
func (s *Store) CreateDelivery(ctx context.Context, entry *DeliveryLogEntry) error {
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()

	query := `INSERT INTO automation_deliveries (id, rule_id, recipient_id, recipient_username,
		comment_id, comment_text, message_text, status, created_at, link_sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.db.ExecContext(ctx, query, entry.ID, entry.RuleID, entry.RecipientID,
		entry.RecipientUsername, entry.CommentID, entry.CommentText, entry.MessageText,
		entry.Status, entry.CreatedAt, entry.LinkSentAt)
	return err
}

// UpdateDeliveryStatus transitions an existing entry. link_sent also stamps
// link_sent_at.
func (s *Store) UpdateDeliveryStatus(ctx context.Context, ruleID uuid.UUID, recipientID, status string) error {
	var err error
	if status == DeliveryLinkSent {
		_, err = s.db.ExecContext(ctx,
			`UPDATE automation_deliveries SET status = $3, link_sent_at = $4
			WHERE rule_id = $1 AND recipient_id = $2`,
			ruleID, recipientID, status, time.Now())
	} else {
		_, err = s.db.ExecContext(ctx,
			`UPDATE automation_deliveries SET status = $3
			WHERE rule_id = $1 AND recipient_id = $2`,
			ruleID, recipientID, status)
	}
	return err
}

// ListDeliveries returns the delivery log for a rule, newest first
func (s *Store) ListDeliveries(ctx context.Context, ruleID uuid.UUID, limit int) ([]*DeliveryLogEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `SELECT id, rule_id, recipient_id, recipient_username, comment_id, comment_text,
		message_text, status, created_at, link_sent_at
		FROM automation_deliveries WHERE rule_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, ruleID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*DeliveryLogEntry
	for rows.Next() {
		entry := &DeliveryLogEntry{}
		if err := rows.Scan(&entry.ID, &entry.RuleID, &entry.RecipientID, &entry.RecipientUsername,
			&entry.CommentID, &entry.CommentText, &entry.MessageText, &entry.Status,
			&entry.CreatedAt, &entry.LinkSentAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// CreateTrackingLink inserts a new short link
func (s *Store) CreateTrackingLink(ctx context.Context, link *TrackingLink) error {
	link.ID = uuid.New()
	link.CreatedAt = time.Now()

	query := `INSERT INTO tracking_links (id, account_id, code, destination, click_count, created_at)
		VALUES ($1, $2, $3, $4, 0, $5)`

	_, err := s.db.ExecContext(ctx, query, link.ID, link.AccountID, link.Code,
		link.Destination, link.CreatedAt)
	return err
}

// GetTrackingLinkByCode resolves a short code, or nil if unknown
func (s *Store) GetTrackingLinkByCode(ctx context.Context, code string) (*TrackingLink, error) {
	link := &TrackingLink{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, account_id, code, destination, click_count, created_at
		FROM tracking_links WHERE code = $1`, code).
		Scan(&link.ID, &link.AccountID, &link.Code, &link.Destination,
			&link.ClickCount, &link.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return link, nil
}

// IsUniqueViolation reports whether err is the postgres unique-index
// conflict raised when a second delivery row is inserted for the same
// (rule, recipient) pair.
func IsUniqueViolation(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code == "23505"
}

// AddClicks flushes a buffered click count onto a link
func (s *Store) AddClicks(ctx context.Context, code string, n int64) error {
	if n <= 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE tracking_links SET click_count = click_count + $2 WHERE code = $1`,
		code, n)
	return err
}
