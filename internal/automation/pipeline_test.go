package automation

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ignite/sellerpulse/internal/instagram"
)

type sentCall struct {
	to  instagram.Recipient
	msg instagram.Message
}

// fakeSender returns errs[i] for call i and success past the end of errs
type fakeSender struct {
	errs  []error
	calls []sentCall
}

func (f *fakeSender) SendMessage(_ context.Context, _ instagram.Credentials, to instagram.Recipient, msg instagram.Message) error {
	f.calls = append(f.calls, sentCall{to: to, msg: msg})
	if i := len(f.calls) - 1; i < len(f.errs) {
		return f.errs[i]
	}
	return nil
}

func (f *fakeSender) messageJSON(i int) string {
	b, _ := json.Marshal(f.calls[i].msg)
	return string(b)
}

var errProvider = &instagram.APIError{StatusCode: 400, Code: 100, Message: "template rejected"}

func linkTestContent() Content {
	return Content{
		Text:        "Here you go",
		LinkURL:     "https://example.com/p/1",
		Title:       "My product",
		ImageURL:    "https://cdn.example.com/i.jpg",
		ButtonTitle: "Open",
	}
}

func TestDeliverFirstTierSuccess(t *testing.T) {
	sender := &fakeSender{}
	p := NewPipeline(sender)

	if !p.Deliver(context.Background(), instagram.Credentials{}, instagram.Recipient{CommentID: "c1"}, linkTestContent()) {
		t.Fatal("Deliver() = false, want true")
	}
	if len(sender.calls) != 1 {
		t.Errorf("calls = %d, want 1 (first success short-circuits)", len(sender.calls))
	}
	if !strings.Contains(sender.messageJSON(0), `"template_type":"generic"`) {
		t.Errorf("first tier should be the generic card, got %s", sender.messageJSON(0))
	}
}

func TestDeliverFallsBackToQuickReplies(t *testing.T) {
	// Tiers 1-3 rejected, tier 4 accepted: result is delivered and tier 5
	// is never attempted.
	sender := &fakeSender{errs: []error{errProvider, errProvider, errProvider}}
	p := NewPipeline(sender)

	if !p.Deliver(context.Background(), instagram.Credentials{}, instagram.Recipient{CommentID: "c1"}, linkTestContent()) {
		t.Fatal("Deliver() = false, want true")
	}
	if len(sender.calls) != 4 {
		t.Fatalf("calls = %d, want 4", len(sender.calls))
	}
	if !strings.Contains(sender.messageJSON(3), "quick_replies") {
		t.Errorf("tier 4 should be quick replies, got %s", sender.messageJSON(3))
	}
}

func TestDeliverAllTiersFail(t *testing.T) {
	sender := &fakeSender{errs: []error{errProvider, errProvider, errProvider, errProvider, errProvider}}
	p := NewPipeline(sender)

	if p.Deliver(context.Background(), instagram.Credentials{}, instagram.Recipient{CommentID: "c1"}, linkTestContent()) {
		t.Fatal("Deliver() = true, want false when every tier errors")
	}
	if len(sender.calls) != 5 {
		t.Errorf("calls = %d, want 5", len(sender.calls))
	}
	if !strings.Contains(sender.messageJSON(4), "👉") {
		t.Errorf("last resort should be plain text with the arrow glyph, got %s", sender.messageJSON(4))
	}
	if !strings.Contains(sender.messageJSON(4), "https://example.com/p/1") {
		t.Errorf("last resort should carry the raw URL, got %s", sender.messageJSON(4))
	}
}

func TestDeliverFollowRequestNeverDisclosesLink(t *testing.T) {
	sender := &fakeSender{errs: []error{errProvider, errProvider, errProvider, errProvider, errProvider}}
	p := NewPipeline(sender)

	content := Content{
		Text:            "Follow me!",
		ButtonTitle:     "팔로우했어요",
		PostbackPayload: "FOLLOW_CHECK|7a1e3e1e-0000-0000-0000-000000000000|https://example.com/p/1",
	}
	p.Deliver(context.Background(), instagram.Credentials{}, instagram.Recipient{CommentID: "c1"}, content)

	// Link-bearing tiers are dropped when no LinkURL is exposed, so the
	// chain is one tier shorter.
	if len(sender.calls) != 4 {
		t.Fatalf("calls = %d, want 4", len(sender.calls))
	}
	for i := range sender.calls {
		body := sender.messageJSON(i)
		if strings.Contains(body, `"web_url"`) {
			t.Errorf("tier %d used a web_url button in the gated flow: %s", i+1, body)
		}
		if strings.Contains(body, "👉") {
			t.Errorf("tier %d appended the raw link in the gated flow: %s", i+1, body)
		}
	}
	if !strings.Contains(sender.messageJSON(0), `"postback"`) {
		t.Errorf("card button should be a postback, got %s", sender.messageJSON(0))
	}
}

func TestDeliverTransportErrorAdvancesChain(t *testing.T) {
	// A transport error is treated identically to a provider rejection.
	sender := &fakeSender{errs: []error{context.DeadlineExceeded}}
	p := NewPipeline(sender)

	if !p.Deliver(context.Background(), instagram.Credentials{}, instagram.Recipient{UserID: "u1"}, linkTestContent()) {
		t.Fatal("Deliver() = false, want true on second tier")
	}
	if len(sender.calls) != 2 {
		t.Errorf("calls = %d, want 2", len(sender.calls))
	}
}
