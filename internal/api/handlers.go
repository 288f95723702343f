// Package api exposes the HTTP surface: the provider webhook endpoints,
// the rule configuration API consumed by the dashboard, and tracking-link
// management.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/ignite/sellerpulse/internal/automation"
	"github.com/ignite/sellerpulse/internal/store"
	"github.com/ignite/sellerpulse/internal/tracking"
)

// Handlers holds the dependencies for all HTTP handlers
type Handlers struct {
	store       *store.Store
	engine      *automation.Engine
	links       *tracking.Service
	verifyToken string
}

// NewHandlers creates the handler set
func NewHandlers(st *store.Store, engine *automation.Engine, links *tracking.Service, verifyToken string) *Handlers {
	return &Handlers{store: st, engine: engine, links: links, verifyToken: verifyToken}
}

// HealthCheck reports service liveness
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
