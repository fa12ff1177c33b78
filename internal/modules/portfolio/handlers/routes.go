package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all portfolio and holding routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/portfolios", h.HandleListPortfolios)
	r.Post("/portfolios", h.HandleCreatePortfolio)
	r.Get("/portfolios/{id}", h.HandleGetPortfolio)
	r.Get("/portfolios/{id}/holdings", h.HandleGetHoldings) // runs the valuation pipeline
	r.Post("/portfolios/{id}/holdings", h.HandleAddHolding)

	r.Get("/holdings/{id}", h.HandleGetHolding)
	r.Put("/holdings/{id}", h.HandleUpdateHolding)
	r.Delete("/holdings/{id}", h.HandleDeleteHolding)
}
