package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ignite/sellerpulse/internal/tracking"
)

// SetupRoutes configures all HTTP routes
func SetupRoutes(h *Handlers, trackingHandler *tracking.Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://app.sellerpulse.io", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", h.HealthCheck)

	// Provider webhook (no auth; secured by the verify token handshake)
	r.Get("/webhook/instagram", h.HandleWebhookVerify)
	r.Post("/webhook/instagram", h.HandleWebhookEvents)

	// Public tracking redirect
	if trackingHandler != nil {
		r.Get("/t/{code}", trackingHandler.HandleRedirect)
	}

	// Dashboard-facing API
	r.Route("/api", func(r chi.Router) {
		r.Route("/automation/rules", func(r chi.Router) {
			r.Post("/", h.CreateRule)
			r.Get("/", h.ListRules)
			r.Get("/{id}", h.GetRule)
			r.Put("/{id}", h.UpdateRule)
			r.Delete("/{id}", h.DeactivateRule)
			r.Get("/{id}/deliveries", h.ListRuleDeliveries)
		})
		r.Post("/tracking/links", h.CreateTrackingLink)
	})

	return r
}
