// Package handlers provides HTTP handlers for portfolio analytics.
package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
	"github.com/ANGELCJR/stock-vision-sub000/internal/httpx"
	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/analytics"
)

// Handler handles analytics HTTP requests
type Handler struct {
	service *analytics.Service
	log     zerolog.Logger
}

// NewHandler creates a new analytics handler
func NewHandler(service *analytics.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "analytics").Logger(),
	}
}

// HandleGetPerformance returns the portfolio value series for ?period=
func (h *Handler) HandleGetPerformance(w http.ResponseWriter, r *http.Request) {
	id, portfolioID, ok := h.identityAndID(w, r)
	if !ok {
		return
	}
	points, err := h.service.Performance(r.Context(), id, portfolioID, r.URL.Query().Get("period"))
	if err != nil {
		httpx.WriteDomainError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, h.log, http.StatusOK, points)
}

// HandleGetRisk returns risk statistics and stores the risk score
func (h *Handler) HandleGetRisk(w http.ResponseWriter, r *http.Request) {
	id, portfolioID, ok := h.identityAndID(w, r)
	if !ok {
		return
	}
	report, err := h.service.Risk(r.Context(), id, portfolioID)
	if err != nil {
		httpx.WriteDomainError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, h.log, http.StatusOK, report)
}

// HandleGetCorrelation returns the return correlation matrix
func (h *Handler) HandleGetCorrelation(w http.ResponseWriter, r *http.Request) {
	id, portfolioID, ok := h.identityAndID(w, r)
	if !ok {
		return
	}
	m, err := h.service.Correlation(r.Context(), id, portfolioID, r.URL.Query().Get("period"))
	if err != nil {
		httpx.WriteDomainError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, h.log, http.StatusOK, m)
}

// HandleGetEfficientFrontier samples ?samples= allocations
func (h *Handler) HandleGetEfficientFrontier(w http.ResponseWriter, r *http.Request) {
	id, portfolioID, ok := h.identityAndID(w, r)
	if !ok {
		return
	}
	samples, err := httpx.IntQuery(r, "samples", analytics.DefaultFrontierSamples)
	if err != nil {
		httpx.WriteDomainError(w, h.log, err)
		return
	}
	f, err := h.service.EfficientFrontier(r.Context(), id, portfolioID, samples)
	if err != nil {
		httpx.WriteDomainError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, h.log, http.StatusOK, f)
}

func (h *Handler) identityAndID(w http.ResponseWriter, r *http.Request) (domain.Identity, int64, bool) {
	id, err := httpx.Identity(r)
	if err != nil {
		httpx.WriteDomainError(w, h.log, err)
		return domain.Identity{}, 0, false
	}
	portfolioID, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.WriteDomainError(w, h.log, err)
		return domain.Identity{}, 0, false
	}
	return id, portfolioID, true
}
