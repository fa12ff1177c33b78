package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/market"
	testingpkg "github.com/ANGELCJR/stock-vision-sub000/internal/testing"
)

func newRouter(t *testing.T) *chi.Mux {
	t.Helper()
	prices := testingpkg.GrowthPrices()
	prices["SPY"] = "510.10"
	svc := market.NewService(testingpkg.NewStubQuoteProvider(prices), market.NewUniverse(), zerolog.Nop())
	h := NewHandler(svc, []string{"*"}, zerolog.Nop())

	r := chi.NewRouter()
	h.RegisterStreamRoutes(r)
	h.RegisterRoutes(r)
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestGetQuote(t *testing.T) {
	r := newRouter(t)

	rec := get(r, "/stocks/aapl")
	require.Equal(t, http.StatusOK, rec.Code)
	var q map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &q))
	assert.Equal(t, "AAPL", q["symbol"])
	assert.Equal(t, 160.0, q["price"])

	rec = get(r, "/stocks/ZZZZ")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)
}

func TestGetHistory(t *testing.T) {
	r := newRouter(t)

	rec := get(r, "/stocks/MSFT/history?period=1D")
	require.Equal(t, http.StatusOK, rec.Code)
	var points []domain.HistoryPoint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &points))
	require.Len(t, points, 48)
	assert.Equal(t, 320.0, points[47].Close)

	rec = get(r, "/stocks/MSFT/history")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &points))
	assert.Len(t, points, 30, "default period is 1M")

	rec = get(r, "/stocks/MSFT/history?period=forever")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetIndicators(t *testing.T) {
	rec := get(newRouter(t), "/stocks/TSLA/indicators")
	require.Equal(t, http.StatusOK, rec.Code)
	var ind market.Indicators
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ind))
	assert.Equal(t, "TSLA", ind.Symbol)
	assert.NotNil(t, ind.SMA20)
}

func TestSearch(t *testing.T) {
	r := newRouter(t)

	rec := get(r, "/search?q=micro")
	require.Equal(t, http.StatusOK, rec.Code)
	var res []domain.SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	var symbols []string
	for _, s := range res {
		symbols = append(symbols, s.Symbol)
	}
	assert.ElementsMatch(t, []string{"MSFT", "AMD"}, symbols)

	rec = get(r, "/search?q=")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = get(r, "/search?q=zz")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestGetIndices(t *testing.T) {
	rec := get(newRouter(t), "/market/indices")
	require.Equal(t, http.StatusOK, rec.Code)
	var quotes []domain.Quote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quotes))
	require.Len(t, quotes, 1)
	assert.Equal(t, "SPY", quotes[0].Symbol)
}

func TestStream(t *testing.T) {
	srv := httptest.NewServer(newRouter(t))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stocks/stream?symbols=aapl,msft&interval=1s"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	var quotes []domain.Quote
	require.NoError(t, wsjson.Read(ctx, conn, &quotes))
	require.Len(t, quotes, 2)
	assert.Equal(t, "AAPL", quotes[0].Symbol)
	assert.Equal(t, "MSFT", quotes[1].Symbol)

	require.NoError(t, wsjson.Read(ctx, conn, &quotes), "frames repeat on the interval")
	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
}

func TestStream_RequiresSymbols(t *testing.T) {
	rec := get(newRouter(t), "/stocks/stream")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseInterval(t *testing.T) {
	assert.Equal(t, defaultStreamInterval, parseInterval(""))
	assert.Equal(t, minStreamInterval, parseInterval("10ms"))
	assert.Equal(t, maxStreamInterval, parseInterval("1h"))
	assert.Equal(t, 3*time.Second, parseInterval("3s"))
}
