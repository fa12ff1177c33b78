package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers news routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/news", func(r chi.Router) {
		r.Get("/", h.HandleListNews)
		r.Post("/refresh", h.HandleRefreshNews)
	})
}
