package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the request/response market routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stocks/{symbol}", h.HandleGetQuote)
	r.Get("/stocks/{symbol}/history", h.HandleGetHistory)
	r.Get("/stocks/{symbol}/indicators", h.HandleGetIndicators)
	r.Get("/search", h.HandleSearch)
	r.Get("/market/indices", h.HandleGetIndices)
}

// RegisterStreamRoutes registers long-lived routes. They must be mounted
// outside any request timeout middleware.
func (h *Handler) RegisterStreamRoutes(r chi.Router) {
	r.Get("/stocks/stream", h.HandleStream)
}
