package api

import (
	"encoding/json"
	"log"
	"net/http"
	"net/url"
)

type linkRequest struct {
	AccountID   string `json:"account_id"`
	Destination string `json:"destination"`
	Code        string `json:"code"`
}

// CreateTrackingLink handles POST /api/tracking/links
func (h *Handlers) CreateTrackingLink(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.AccountID == "" {
		writeError(w, http.StatusBadRequest, "account_id is required")
		return
	}
	parsed, err := url.Parse(req.Destination)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		writeError(w, http.StatusBadRequest, "destination must be an http(s) url")
		return
	}

	link, err := h.links.CreateLink(r.Context(), req.AccountID, req.Destination, req.Code)
	if err != nil {
		log.Printf("[API] create link error: %v", err)
		writeError(w, http.StatusInternalServerError, "create failed")
		return
	}
	writeJSON(w, http.StatusCreated, link)
}
