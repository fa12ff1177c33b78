// Package handlers provides HTTP handlers for the news feed.
package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
	"github.com/ANGELCJR/stock-vision-sub000/internal/httpx"
	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/news"
)

// Handler handles news HTTP requests
type Handler struct {
	service *news.Service
	log     zerolog.Logger
}

// NewHandler creates a new news handler
func NewHandler(service *news.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "news").Logger(),
	}
}

// HandleListNews handles GET /api/news?symbols=AAPL,MSFT&limit=20
func (h *Handler) HandleListNews(w http.ResponseWriter, r *http.Request) {
	limit, err := httpx.IntQuery(r, "limit", news.DefaultLimit)
	if err != nil {
		httpx.WriteDomainError(w, h.log, err)
		return
	}
	id, _ := domain.IdentityFrom(r.Context())

	articles, err := h.service.List(r.Context(), id, httpx.SplitList(r.URL.Query().Get("symbols")), limit)
	if err != nil {
		httpx.WriteDomainError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, h.log, http.StatusOK, articles)
}

// HandleRefreshNews appends a freshly generated batch
func (h *Handler) HandleRefreshNews(w http.ResponseWriter, r *http.Request) {
	id, _ := domain.IdentityFrom(r.Context())
	batch, err := h.service.Refresh(r.Context(), id)
	if err != nil {
		httpx.WriteDomainError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, h.log, http.StatusCreated, batch)
}
