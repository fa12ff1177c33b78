package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/market"
)

const (
	defaultStreamInterval = 5 * time.Second
	minStreamInterval     = time.Second
	maxStreamInterval     = time.Minute
	writeWait             = 10 * time.Second
)

// HandleStream upgrades to a websocket and pushes a JSON array of quotes
// for ?symbols= every ?interval= until the client goes away.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	symbols, err := market.ParseStreamSymbols(r.URL.Query().Get("symbols"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	interval := parseInterval(r.URL.Query().Get("interval"))

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.allowedOrigins})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.CloseNow()

	// Client frames are ignored; CloseRead cancels ctx when the peer closes.
	ctx := conn.CloseRead(r.Context())
	log := h.log.With().Strs("symbols", symbols).Dur("interval", interval).Logger()
	log.Debug().Msg("Quote stream opened")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := h.pushQuotes(ctx, conn, symbols); err != nil {
			if !errors.Is(err, context.Canceled) && websocket.CloseStatus(err) == -1 {
				log.Debug().Err(err).Msg("Quote stream write failed")
			}
			return
		}
		select {
		case <-ctx.Done():
			log.Debug().Msg("Quote stream closed")
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-ticker.C:
		}
	}
}

func (h *Handler) pushQuotes(ctx context.Context, conn *websocket.Conn, symbols []string) error {
	quotes := h.service.Quotes(ctx, symbols)
	writeCtx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	return wsjson.Write(writeCtx, conn, quotes)
}

func parseInterval(raw string) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return defaultStreamInterval
	}
	if d < minStreamInterval {
		return minStreamInterval
	}
	if d > maxStreamInterval {
		return maxStreamInterval
	}
	return d
}

