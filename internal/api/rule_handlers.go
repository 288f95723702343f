package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ignite/sellerpulse/internal/store"
)

// ruleRequest is the dashboard-facing create/update body
type ruleRequest struct {
	AccountID     string   `json:"account_id"`
	MediaID       string   `json:"media_id"`
	Keywords      []string `json:"keywords"`
	MatchAny      bool     `json:"match_any"`
	RequireFollow bool     `json:"require_follow"`
	FollowMessage string   `json:"follow_message"`
	LinkMessage   string   `json:"link_message"`
	LinkURL       string   `json:"link_url"`
	LinkTitle     string   `json:"link_title"`
	LinkImageURL  string   `json:"link_image_url"`
	Active        *bool    `json:"active"`
}

// CreateRule handles POST /api/automation/rules
func (h *Handlers) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.AccountID == "" || req.MediaID == "" {
		writeError(w, http.StatusBadRequest, "account_id and media_id are required")
		return
	}
	if req.LinkURL == "" {
		writeError(w, http.StatusBadRequest, "link_url is required")
		return
	}
	if req.RequireFollow && req.FollowMessage == "" {
		writeError(w, http.StatusBadRequest, "follow_message is required when require_follow is set")
		return
	}

	rule := &store.AutomationRule{
		AccountID:     req.AccountID,
		MediaID:       req.MediaID,
		Keywords:      req.Keywords,
		MatchAny:      req.MatchAny,
		RequireFollow: req.RequireFollow,
		FollowMessage: req.FollowMessage,
		LinkMessage:   req.LinkMessage,
		LinkURL:       req.LinkURL,
		LinkTitle:     req.LinkTitle,
		LinkImageURL:  req.LinkImageURL,
	}
	if err := h.store.CreateRule(r.Context(), rule); err != nil {
		log.Printf("[API] create rule error: %v", err)
		writeError(w, http.StatusInternalServerError, "create failed")
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

// ListRules handles GET /api/automation/rules?account_id=...
func (h *Handlers) ListRules(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "account_id is required")
		return
	}

	rules, err := h.store.ListRules(r.Context(), accountID)
	if err != nil {
		log.Printf("[API] list rules error: %v", err)
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	if rules == nil {
		rules = []*store.AutomationRule{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rules": rules})
}

// GetRule handles GET /api/automation/rules/{id}
func (h *Handlers) GetRule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid rule id")
		return
	}

	rule, err := h.store.GetRule(r.Context(), id)
	if err != nil {
		log.Printf("[API] get rule error: %v", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if rule == nil {
		writeError(w, http.StatusNotFound, "rule not found")
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// UpdateRule handles PUT /api/automation/rules/{id}
func (h *Handlers) UpdateRule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid rule id")
		return
	}

	rule, err := h.store.GetRule(r.Context(), id)
	if err != nil {
		log.Printf("[API] get rule error: %v", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if rule == nil {
		writeError(w, http.StatusNotFound, "rule not found")
		return
	}

	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if req.Keywords != nil {
		rule.Keywords = req.Keywords
	}
	rule.MatchAny = req.MatchAny
	rule.RequireFollow = req.RequireFollow
	if req.FollowMessage != "" {
		rule.FollowMessage = req.FollowMessage
	}
	if req.LinkMessage != "" {
		rule.LinkMessage = req.LinkMessage
	}
	if req.LinkURL != "" {
		rule.LinkURL = req.LinkURL
	}
	if req.LinkTitle != "" {
		rule.LinkTitle = req.LinkTitle
	}
	if req.LinkImageURL != "" {
		rule.LinkImageURL = req.LinkImageURL
	}
	if req.Active != nil {
		rule.Active = *req.Active
	}

	if err := h.store.UpdateRule(r.Context(), rule); err != nil {
		log.Printf("[API] update rule error: %v", err)
		writeError(w, http.StatusInternalServerError, "update failed")
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// DeactivateRule handles DELETE /api/automation/rules/{id}. Rules are
// soft-deactivated; delivery history stays.
func (h *Handlers) DeactivateRule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid rule id")
		return
	}

	if err := h.store.DeactivateRule(r.Context(), id); err != nil {
		log.Printf("[API] deactivate rule error: %v", err)
		writeError(w, http.StatusInternalServerError, "deactivate failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

// ListRuleDeliveries handles GET /api/automation/rules/{id}/deliveries
func (h *Handlers) ListRuleDeliveries(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid rule id")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.store.ListDeliveries(r.Context(), id, limit)
	if err != nil {
		log.Printf("[API] list deliveries error: %v", err)
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	if entries == nil {
		entries = []*store.DeliveryLogEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deliveries": entries})
}
