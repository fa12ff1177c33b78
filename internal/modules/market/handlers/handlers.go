// Package handlers provides HTTP handlers for quotes, history, indicators,
// symbol search and the live quote stream.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ANGELCJR/stock-vision-sub000/internal/httpx"
	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/market"
)

// Handler handles market data HTTP requests
type Handler struct {
	service        *market.Service
	allowedOrigins []string
	log            zerolog.Logger
}

// NewHandler creates a new market handler. allowedOrigins are the host
// patterns accepted on websocket upgrades.
func NewHandler(service *market.Service, allowedOrigins []string, log zerolog.Logger) *Handler {
	return &Handler{
		service:        service,
		allowedOrigins: allowedOrigins,
		log:            log.With().Str("handler", "market").Logger(),
	}
}

// HandleGetQuote returns the current quote for a symbol
func (h *Handler) HandleGetQuote(w http.ResponseWriter, r *http.Request) {
	q, err := h.service.Quote(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, q)
}

// HandleGetHistory returns an OHLCV series for ?period=
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	points, err := h.service.History(r.Context(), chi.URLParam(r, "symbol"), r.URL.Query().Get("period"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, points)
}

// HandleGetIndicators returns technical indicators for ?period= (default 3M)
func (h *Handler) HandleGetIndicators(w http.ResponseWriter, r *http.Request) {
	ind, err := h.service.Indicators(r.Context(), chi.URLParam(r, "symbol"), r.URL.Query().Get("period"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ind)
}

// HandleSearch matches ?q= against the symbol universe
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Search(r.URL.Query().Get("q")))
}

// HandleGetIndices returns quotes for the index funds
func (h *Handler) HandleGetIndices(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Indices(r.Context()))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	httpx.WriteJSON(w, h.log, status, data)
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	httpx.WriteDomainError(w, h.log, err)
}
