package tracking

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler serves the public redirect endpoint
type Handler struct {
	svc *Service
}

// NewHandler creates a redirect handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// HandleRedirect serves GET /t/{code}: count the click and bounce the
// visitor to the destination.
func (h *Handler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	link, err := h.svc.Resolve(r.Context(), code)
	if err != nil {
		log.Printf("[Tracking] resolve error code=%s: %v", code, err)
		http.Error(w, "lookup failed", http.StatusInternalServerError)
		return
	}
	if link == nil {
		http.NotFound(w, r)
		return
	}

	h.svc.RecordClick(r.Context(), code)
	log.Printf("CLICK code=%s dest=%s", code, link.Destination)
	http.Redirect(w, r, link.Destination, http.StatusTemporaryRedirect)
}
