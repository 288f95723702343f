package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/ignite/sellerpulse/internal/automation"
)

// HandleWebhookVerify answers the provider's subscription handshake: echo
// the challenge when the verify token matches, 403 otherwise.
func (h *Handlers) HandleWebhookVerify(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token != "" && token == h.verifyToken {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(challenge))
		return
	}

	log.Printf("[Webhook] verification rejected mode=%q", mode)
	http.Error(w, "verification failed", http.StatusForbidden)
}

// HandleWebhookEvents ingests a provider event batch. Every sub-event is
// isolated: a panic or error in one must not abort its siblings, and the
// response is always 200 {"received":true} — the provider treats any
// non-2xx as a reason to retry the whole batch indefinitely, so surfacing
// partial failures would only cause redelivery storms.
func (h *Handlers) HandleWebhookEvents(w http.ResponseWriter, r *http.Request) {
	defer writeJSON(w, http.StatusOK, map[string]bool{"received": true})

	var payload automation.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		log.Printf("[Webhook] malformed payload: %v", err)
		return
	}

	for _, entry := range payload.Entry {
		comments, messages := automation.ParseEntry(entry)
		for _, ev := range comments {
			h.processComment(r.Context(), ev)
		}
		for _, ev := range messages {
			h.processMessaging(r.Context(), ev)
		}
	}
}

func (h *Handlers) processComment(ctx context.Context, ev automation.CommentEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[Webhook] panic processing comment=%s: %v", ev.CommentID, rec)
		}
	}()
	if err := h.engine.HandleComment(ctx, ev); err != nil {
		log.Printf("[Webhook] comment=%s error: %v", ev.CommentID, err)
	}
}

func (h *Handlers) processMessaging(ctx context.Context, ev automation.MessagingEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[Webhook] panic processing message from=%s: %v", ev.SenderID, rec)
		}
	}()
	if err := h.engine.HandleMessaging(ctx, ev); err != nil {
		log.Printf("[Webhook] message from=%s error: %v", ev.SenderID, err)
	}
}
