// Package automation implements the comment-to-DM engine: keyword
// matching, idempotent delivery logging, the tiered delivery pipeline and
// the follow-gate conversation flow.
package automation

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/sellerpulse/internal/instagram"
	"github.com/ignite/sellerpulse/internal/store"
)

// followProbeText is the near-invisible direct message used to test the
// follow relationship. The provider rejects ordinary DMs to non-followers,
// which is the only follow signal this integration exposes.
// TODO: replace the probe with a profile-field query if the Graph API ever
// exposes follower status on this surface.
const followProbeText = "👀"

// RuleStore is the persistence surface the engine needs. Implemented by
// *store.Store.
type RuleStore interface {
	DeliveryFinder
	FindActiveRuleForMedia(ctx context.Context, mediaID string) (*store.AutomationRule, error)
	GetRule(ctx context.Context, id uuid.UUID) (*store.AutomationRule, error)
	FindAccountCredentials(ctx context.Context, accountID string) (*store.AccountCredentials, error)
	FindLatestPendingFollow(ctx context.Context, recipientID string) (*store.DeliveryLogEntry, error)
	CreateDelivery(ctx context.Context, entry *store.DeliveryLogEntry) error
	UpdateDeliveryStatus(ctx context.Context, ruleID uuid.UUID, recipientID, status string) error
	IncrementRuleCounters(ctx context.Context, ruleID uuid.UUID) error
}

// Engine routes inbound events through the follow-gate flow. Handlers are
// stateless; concurrent invocations coordinate only through the delivery
// log's unique (rule_id, recipient_id) index.
type Engine struct {
	rules    RuleStore
	sender   MessageSender
	pipeline *Pipeline
	guard    *DedupGuard
	renderer *Renderer
}

// NewEngine wires the engine. rdb may be nil; it only backs the webhook
// redelivery cache.
func NewEngine(rules RuleStore, sender MessageSender, rdb *redis.Client) *Engine {
	return &Engine{
		rules:    rules,
		sender:   sender,
		pipeline: NewPipeline(sender),
		guard:    NewDedupGuard(rules, rdb),
		renderer: NewRenderer(),
	}
}

// HandleComment processes one comment event. Every early return is a
// silent skip: no rule, keyword miss, or already handled.
func (e *Engine) HandleComment(ctx context.Context, ev CommentEvent) error {
	rule, err := e.rules.FindActiveRuleForMedia(ctx, ev.MediaID)
	if err != nil {
		return err
	}
	if rule == nil {
		return nil
	}
	if !Matches(rule, ev.Text) {
		return nil
	}
	if e.guard.SeenEvent(ctx, ev.CommentID) {
		log.Printf("[Flow] duplicate webhook event comment=%s, skipping", ev.CommentID)
		return nil
	}
	// The event reservation may only outlive this call if a delivery
	// entry exists; otherwise the missing entry is the retry signal and
	// the cache must not swallow the provider's redelivery.
	recorded := false
	defer func() {
		if !recorded {
			e.guard.ForgetEvent(ctx, ev.CommentID)
		}
	}()

	handled, err := e.guard.CheckAndReserve(ctx, rule.ID, ev.AuthorID)
	if err != nil {
		return err
	}
	if handled {
		log.Printf("[Flow] rule=%s recipient=%s already handled, skipping", rule.ID, ev.AuthorID)
		recorded = true
		return nil
	}

	creds, err := e.rules.FindAccountCredentials(ctx, rule.AccountID)
	if err != nil {
		return err
	}
	if creds == nil {
		log.Printf("[Flow] rule=%s has no connected account, skipping", rule.ID)
		return nil
	}
	if ev.AuthorID == creds.PlatformUserID {
		return nil // the account commenting on its own post
	}

	vars := map[string]interface{}{
		"username": ev.AuthorUsername,
		"link":     rule.LinkURL,
	}

	if rule.RequireFollow {
		recorded, err = e.sendFollowRequest(ctx, rule, creds, ev, vars)
	} else {
		recorded, err = e.sendLinkForComment(ctx, rule, creds, ev, vars)
	}
	return err
}

// sendFollowRequest delivers the first-stage message via private reply and
// records the pending_follow entry. The entry is written before returning
// so a fast follow confirmation can find it. The bool reports whether an
// entry exists afterwards.
func (e *Engine) sendFollowRequest(ctx context.Context, rule *store.AutomationRule, creds *store.AccountCredentials, ev CommentEvent, vars map[string]interface{}) (bool, error) {
	text := e.renderer.Render(rule.FollowMessage, vars)
	payload := EncodeFollowPayload(rule.ID, rule.LinkURL)

	delivered := e.pipeline.Deliver(ctx, e.apiCreds(creds),
		instagram.Recipient{CommentID: ev.CommentID},
		Content{
			Text:            text,
			ButtonTitle:     "팔로우했어요",
			PostbackPayload: payload,
		})
	if !delivered {
		// No entry: the next provider redelivery retries from scratch.
		log.Printf("[Flow] follow request undeliverable rule=%s recipient=%s", rule.ID, ev.AuthorID)
		return false, nil
	}

	entry := &store.DeliveryLogEntry{
		RuleID:            rule.ID,
		RecipientID:       ev.AuthorID,
		RecipientUsername: ev.AuthorUsername,
		CommentID:         ev.CommentID,
		CommentText:       ev.Text,
		MessageText:       text,
		Status:            store.DeliveryPendingFollow,
	}
	if err := e.rules.CreateDelivery(ctx, entry); err != nil {
		if store.IsUniqueViolation(err) {
			log.Printf("[Flow] lost create race rule=%s recipient=%s", rule.ID, ev.AuthorID)
			return true, nil
		}
		return false, err
	}
	log.Printf("[Flow] follow request sent rule=%s recipient=%s", rule.ID, ev.AuthorID)
	return true, nil
}

// sendLinkForComment delivers the final message directly, no gating. The
// bool reports whether an entry exists afterwards.
func (e *Engine) sendLinkForComment(ctx context.Context, rule *store.AutomationRule, creds *store.AccountCredentials, ev CommentEvent, vars map[string]interface{}) (bool, error) {
	text := e.renderer.Render(rule.LinkMessage, vars)

	delivered := e.pipeline.Deliver(ctx, e.apiCreds(creds),
		instagram.Recipient{CommentID: ev.CommentID},
		e.linkContent(rule, text))
	if !delivered {
		log.Printf("[Flow] link undeliverable rule=%s recipient=%s", rule.ID, ev.AuthorID)
		return false, nil
	}

	now := time.Now()
	entry := &store.DeliveryLogEntry{
		RuleID:            rule.ID,
		RecipientID:       ev.AuthorID,
		RecipientUsername: ev.AuthorUsername,
		CommentID:         ev.CommentID,
		CommentText:       ev.Text,
		MessageText:       text,
		Status:            store.DeliveryLinkSent,
		LinkSentAt:        &now,
	}
	if err := e.rules.CreateDelivery(ctx, entry); err != nil {
		if store.IsUniqueViolation(err) {
			log.Printf("[Flow] lost create race rule=%s recipient=%s", rule.ID, ev.AuthorID)
			return true, nil
		}
		return false, err
	}
	if err := e.rules.IncrementRuleCounters(ctx, rule.ID); err != nil {
		log.Printf("[Flow] counter bump failed rule=%s: %v", rule.ID, err)
	}
	log.Printf("[Flow] link sent rule=%s recipient=%s", rule.ID, ev.AuthorID)
	return true, nil
}

// HandleMessaging processes the recipient's reply to a follow request.
func (e *Engine) HandleMessaging(ctx context.Context, ev MessagingEvent) error {
	var ruleID uuid.UUID
	var linkURL string

	switch ev.Kind {
	case KindCallback, KindQuickReply:
		id, link, ok := DecodeFollowPayload(ev.Payload)
		if !ok {
			return nil // foreign payload
		}
		ruleID, linkURL = id, link
	case KindFreeText:
		if !IsFollowConfirmation(ev.Text) {
			return nil
		}
		pending, err := e.rules.FindLatestPendingFollow(ctx, ev.SenderID)
		if err != nil {
			return err
		}
		if pending == nil {
			return nil
		}
		ruleID = pending.RuleID
	}

	rule, err := e.rules.GetRule(ctx, ruleID)
	if err != nil {
		return err
	}
	if rule == nil {
		return nil
	}
	if linkURL == "" {
		linkURL = rule.LinkURL
	}

	entry, err := e.rules.FindDelivery(ctx, ruleID, ev.SenderID)
	if err != nil {
		return err
	}
	if entry == nil {
		return nil // no pending conversation for this sender
	}
	if entry.Status == store.DeliveryLinkSent {
		return nil // already served, never message twice
	}

	creds, err := e.rules.FindAccountCredentials(ctx, rule.AccountID)
	if err != nil {
		return err
	}
	if creds == nil {
		return nil
	}

	if !e.probeFollow(ctx, creds, ev.SenderID) {
		// Not following yet: repeat the follow request and stay pending.
		text := e.renderer.Render(rule.FollowMessage, map[string]interface{}{
			"username": entry.RecipientUsername,
			"link":     linkURL,
		})
		e.pipeline.Deliver(ctx, e.apiCreds(creds),
			instagram.Recipient{UserID: ev.SenderID},
			Content{
				Text:            text,
				ButtonTitle:     "팔로우했어요",
				PostbackPayload: EncodeFollowPayload(rule.ID, linkURL),
			})
		log.Printf("[Flow] probe says not following rule=%s recipient=%s", rule.ID, ev.SenderID)
		return nil
	}

	text := e.renderer.Render(rule.LinkMessage, map[string]interface{}{
		"username": entry.RecipientUsername,
		"link":     linkURL,
	})
	content := e.linkContent(rule, text)
	content.LinkURL = linkURL

	delivered := e.pipeline.Deliver(ctx, e.apiCreds(creds),
		instagram.Recipient{UserID: ev.SenderID}, content)
	if !delivered {
		if err := e.rules.UpdateDeliveryStatus(ctx, ruleID, ev.SenderID, store.DeliveryFailed); err != nil {
			return err
		}
		log.Printf("[Flow] final link undeliverable rule=%s recipient=%s", ruleID, ev.SenderID)
		return nil
	}

	if err := e.rules.UpdateDeliveryStatus(ctx, ruleID, ev.SenderID, store.DeliveryLinkSent); err != nil {
		return err
	}
	if err := e.rules.IncrementRuleCounters(ctx, ruleID); err != nil {
		log.Printf("[Flow] counter bump failed rule=%s: %v", ruleID, err)
	}
	log.Printf("[Flow] link sent after follow rule=%s recipient=%s", ruleID, ev.SenderID)
	return nil
}

// probeFollow sends the minimal DM that stands in for a follower check.
// Known permission codes prove non-follow; any other error is read as
// "assume followed" so a provider hiccup cannot block delivery forever.
func (e *Engine) probeFollow(ctx context.Context, creds *store.AccountCredentials, userID string) bool {
	err := e.sender.SendMessage(ctx, e.apiCreds(creds),
		instagram.Recipient{UserID: userID}, instagram.Text(followProbeText))
	if err == nil {
		return true
	}
	if instagram.IsNotFollowerError(err) {
		return false
	}
	log.Printf("[Flow] follow probe inconclusive for recipient=%s, assuming followed: %v", userID, err)
	return true
}

func (e *Engine) linkContent(rule *store.AutomationRule, text string) Content {
	return Content{
		Text:        text,
		LinkURL:     rule.LinkURL,
		Title:       rule.LinkTitle,
		ImageURL:    rule.LinkImageURL,
		ButtonTitle: "열기",
	}
}

func (e *Engine) apiCreds(creds *store.AccountCredentials) instagram.Credentials {
	return instagram.Credentials{
		AccessToken:    creds.AccessToken,
		PlatformUserID: creds.PlatformUserID,
	}
}
