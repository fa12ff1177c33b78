package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers insight routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/portfolios/{id}/insights", h.HandleListInsights)
	r.Post("/portfolios/{id}/insights/generate", h.HandleGenerateInsights)
}
