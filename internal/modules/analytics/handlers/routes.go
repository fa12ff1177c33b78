package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers analytics routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/portfolios/{id}/performance", h.HandleGetPerformance)
	r.Get("/portfolios/{id}/risk", h.HandleGetRisk)
	r.Get("/portfolios/{id}/correlation", h.HandleGetCorrelation)
	r.Get("/portfolios/{id}/efficient-frontier", h.HandleGetEfficientFrontier)
}
