// Package handlers provides HTTP handlers for portfolio insights.
package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ANGELCJR/stock-vision-sub000/internal/httpx"
	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/insights"
)

// Handler handles insight HTTP requests
type Handler struct {
	service *insights.Service
	log     zerolog.Logger
}

// NewHandler creates a new insights handler
func NewHandler(service *insights.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "insights").Logger(),
	}
}

// HandleListInsights returns the stored insight batch
func (h *Handler) HandleListInsights(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.Identity(r)
	if err != nil {
		httpx.WriteDomainError(w, h.log, err)
		return
	}
	portfolioID, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.WriteDomainError(w, h.log, err)
		return
	}

	list, err := h.service.List(r.Context(), id, portfolioID)
	if err != nil {
		httpx.WriteDomainError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, h.log, http.StatusOK, list)
}

// HandleGenerateInsights replaces the insight batch with a fresh one
func (h *Handler) HandleGenerateInsights(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.Identity(r)
	if err != nil {
		httpx.WriteDomainError(w, h.log, err)
		return
	}
	portfolioID, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.WriteDomainError(w, h.log, err)
		return
	}

	list, err := h.service.Generate(r.Context(), id, portfolioID)
	if err != nil {
		httpx.WriteDomainError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, h.log, http.StatusCreated, list)
}
