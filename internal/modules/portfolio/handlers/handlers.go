// Package handlers provides HTTP handlers for portfolios and holdings.
package handlers

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
	"github.com/ANGELCJR/stock-vision-sub000/internal/httpx"
	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/portfolio"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	service *portfolio.Service
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service *portfolio.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

type createPortfolioRequest struct {
	Name string `json:"name"`
}

// HandleListPortfolios returns the caller's portfolios
func (h *Handler) HandleListPortfolios(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.Identity(r)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	portfolios, err := h.service.ListPortfolios(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, portfolios)
}

// HandleCreatePortfolio creates an empty portfolio
func (h *Handler) HandleCreatePortfolio(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.Identity(r)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	var req createPortfolioRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.writeDomainError(w, err)
		return
	}

	p, err := h.service.CreatePortfolio(r.Context(), id, req.Name)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, p)
}

// HandleGetPortfolio returns one portfolio or 404
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	id, portfolioID, ok := h.identityAndID(w, r)
	if !ok {
		return
	}

	p, err := h.service.GetPortfolio(r.Context(), id, portfolioID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// HandleGetHoldings runs the valuation pipeline and returns the holdings
func (h *Handler) HandleGetHoldings(w http.ResponseWriter, r *http.Request) {
	id, portfolioID, ok := h.identityAndID(w, r)
	if !ok {
		return
	}

	res, err := h.service.Holdings(r.Context(), id, portfolioID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if len(res.Failed) > 0 {
		w.Header().Set("X-Stale-Symbols", strings.Join(res.Failed, ","))
	}
	h.writeJSON(w, http.StatusOK, res.Holdings)
}

// HandleAddHolding creates a holding priced with a fresh quote
func (h *Handler) HandleAddHolding(w http.ResponseWriter, r *http.Request) {
	id, portfolioID, ok := h.identityAndID(w, r)
	if !ok {
		return
	}

	var in portfolio.HoldingInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.writeDomainError(w, err)
		return
	}

	holding, err := h.service.AddHolding(r.Context(), id, portfolioID, in)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, holding)
}

// HandleGetHolding returns one holding or 404
func (h *Handler) HandleGetHolding(w http.ResponseWriter, r *http.Request) {
	id, holdingID, ok := h.identityAndID(w, r)
	if !ok {
		return
	}

	holding, err := h.service.GetHolding(r.Context(), id, holdingID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, holding)
}

// HandleUpdateHolding patches shares, cost basis or name
func (h *Handler) HandleUpdateHolding(w http.ResponseWriter, r *http.Request) {
	id, holdingID, ok := h.identityAndID(w, r)
	if !ok {
		return
	}

	var patch portfolio.HoldingPatch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		h.writeDomainError(w, err)
		return
	}

	holding, err := h.service.UpdateHolding(r.Context(), id, holdingID, patch)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, holding)
}

// HandleDeleteHolding removes a holding; 404 if absent
func (h *Handler) HandleDeleteHolding(w http.ResponseWriter, r *http.Request) {
	id, holdingID, ok := h.identityAndID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteHolding(r.Context(), id, holdingID); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) identityAndID(w http.ResponseWriter, r *http.Request) (domain.Identity, int64, bool) {
	id, err := httpx.Identity(r)
	if err != nil {
		h.writeDomainError(w, err)
		return domain.Identity{}, 0, false
	}
	resourceID, err := httpx.IDParam(r, "id")
	if err != nil {
		h.writeDomainError(w, err)
		return domain.Identity{}, 0, false
	}
	return id, resourceID, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	httpx.WriteJSON(w, h.log, status, data)
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	httpx.WriteDomainError(w, h.log, err)
}
