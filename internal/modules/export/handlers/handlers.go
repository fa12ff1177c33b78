// Package handlers provides HTTP handlers for portfolio exports.
package handlers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ANGELCJR/stock-vision-sub000/internal/httpx"
	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/export"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeHTML = "text/html; charset=utf-8"
)

// Handler handles export HTTP requests
type Handler struct {
	service *export.Service
	log     zerolog.Logger
}

// NewHandler creates a new export handler
func NewHandler(service *export.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "export").Logger(),
	}
}

// HandleExportCSV downloads the holdings as CSV
func (h *Handler) HandleExportCSV(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, contentTypeCSV, "csv", true, export.WriteCSV)
}

// HandleExportXLSX downloads the holdings as an Excel workbook
func (h *Handler) HandleExportXLSX(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, contentTypeXLSX, "xlsx", true, export.WriteXLSX)
}

// HandleReport renders the HTML summary inline
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, contentTypeHTML, "html", false, export.WriteReport)
}

// render buffers the whole document so a rendering failure can still be
// answered with a JSON error.
func (h *Handler) render(
	w http.ResponseWriter,
	r *http.Request,
	contentType, ext string,
	attachment bool,
	write func(io.Writer, *export.Snapshot) error,
) {
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

	snap, err := h.service.Snapshot(r.Context(), id, portfolioID)
	if err != nil {
		httpx.WriteDomainError(w, h.log, err)
		return
	}

	var buf bytes.Buffer
	if err := write(&buf, snap); err != nil {
		httpx.WriteDomainError(w, h.log, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	if attachment {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", snap.Filename(ext)))
	}
	if len(snap.Stale) > 0 {
		w.Header().Set("X-Stale-Symbols", strings.Join(snap.Stale, ","))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.log.Warn().Err(err).Int64("portfolio_id", portfolioID).Msg("Failed to write export")
	}
}
