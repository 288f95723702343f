package automation

import (
	"context"
	"log"

	"github.com/ignite/sellerpulse/internal/instagram"
)

// MessageSender sends one provider-shaped message. Implemented by
// *instagram.Client; faked in tests.
type MessageSender interface {
	SendMessage(ctx context.Context, creds instagram.Credentials, to instagram.Recipient, msg instagram.Message) error
}

// Content is one logical message for the delivery pipeline. When
// PostbackPayload is set the interactive tiers bind the callback payload;
// otherwise they bind LinkURL. A follow-request send sets PostbackPayload
// and leaves LinkURL empty so no tier can disclose the gated link.
type Content struct {
	Text            string
	LinkURL         string
	Title           string
	ImageURL        string
	ButtonTitle     string
	PostbackPayload string
}

type tier struct {
	name string
	msg  instagram.Message
}

// Pipeline delivers one logical message through a descending chain of
// wire formats. Provider support for templates and callback buttons
// varies by client version and recipient relationship, and there is no
// way to know in advance which shape will land, so the pipeline probes
// tiers in order and stops at the first accepted call.
type Pipeline struct {
	sender MessageSender
}

// NewPipeline creates a delivery pipeline
func NewPipeline(sender MessageSender) *Pipeline {
	return &Pipeline{sender: sender}
}

// tiers builds the ordered fallback chain for one message. Tiers that
// need a link are dropped when the content carries none.
func (p *Pipeline) tiers(content Content) []tier {
	buttonTitle := content.ButtonTitle
	if buttonTitle == "" {
		buttonTitle = "열기" // "open"
	}
	cardTitle := content.Title
	if cardTitle == "" {
		cardTitle = content.Text
	}

	var interactive instagram.Button
	var chipPayload string
	if content.PostbackPayload != "" {
		interactive = instagram.PostbackButton(buttonTitle, content.PostbackPayload)
		chipPayload = content.PostbackPayload
	} else {
		interactive = instagram.URLButton(buttonTitle, content.LinkURL)
		chipPayload = content.LinkURL
	}

	chain := []tier{
		{"generic_template", instagram.GenericTemplate(cardTitle, content.Text, content.ImageURL, interactive)},
		{"button_template", instagram.ButtonTemplate(content.Text, interactive)},
	}
	if content.LinkURL != "" {
		chain = append(chain,
			tier{"button_template_url", instagram.ButtonTemplate(content.Text, instagram.URLButton(buttonTitle, content.LinkURL))})
	}
	chain = append(chain, tier{"quick_replies", instagram.QuickReplies(content.Text, buttonTitle, chipPayload)})
	if content.LinkURL != "" {
		chain = append(chain, tier{"plain_text", instagram.Text(content.Text + " 👉 " + content.LinkURL)})
	} else {
		chain = append(chain, tier{"plain_text", instagram.Text(content.Text)})
	}
	return chain
}

// Deliver attempts the fallback chain, stopping at the first tier the
// provider accepts. Every failure mode (permission error, template
// rejection, transport error, timeout) advances the chain the same way.
func (p *Pipeline) Deliver(ctx context.Context, creds instagram.Credentials, to instagram.Recipient, content Content) bool {
	for _, t := range p.tiers(content) {
		err := p.sender.SendMessage(ctx, creds, to, t.msg)
		if err == nil {
			log.Printf("[Pipeline] delivered tier=%s", t.name)
			return true
		}
		log.Printf("[Pipeline] tier=%s failed: %v", t.name, err)
	}
	return false
}
