package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers export routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/portfolios/{id}/export.csv", h.HandleExportCSV)
	r.Get("/portfolios/{id}/export.xlsx", h.HandleExportXLSX)
	r.Get("/portfolios/{id}/report", h.HandleReport)
}
