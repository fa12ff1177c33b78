package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
)

func newQuoteServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/quote/AAPL":
			assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
			_, _ = w.Write([]byte(`{"data":{"last":"171.25","delta":1.5,"deltaPct":0.88,"vol":123456}}`))
		case "/v1/quote/LIST":
			_, _ = w.Write([]byte(`{"data":{"last":[42.5]}}`))
		case "/v1/quote/BROKEN":
			w.WriteHeader(http.StatusBadGateway)
		case "/v1/quote/NOPRICE":
			_, _ = w.Write([]byte(`{"data":{}}`))
		case "/v1/quote/GARBAGE":
			_, _ = w.Write([]byte(`<html>`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestHTTPProvider(baseURL string) *HTTPQuoteProvider {
	return NewHTTPQuoteProvider(HTTPProviderConfig{
		BaseURL:           baseURL,
		PathTemplate:      "/v1/quote/{symbol}",
		APIKey:            "secret",
		Timeout:           2 * time.Second,
		PricePath:         "$.data.last",
		ChangePath:        "$.data.delta",
		ChangePercentPath: "$.data.deltaPct",
		VolumePath:        "$.data.vol",
	}, zerolog.Nop())
}

func TestHTTPQuoteProvider_GetQuote(t *testing.T) {
	p := newTestHTTPProvider(newQuoteServer(t).URL)

	q, err := p.GetQuote(context.Background(), "aapl")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", q.Symbol)
	assert.Equal(t, "171.25", q.Price.String())
	assert.Equal(t, "1.5", q.Change.String())
	assert.Equal(t, "0.88", q.ChangePercent.String())
	assert.Equal(t, int64(123456), q.Volume)
	assert.False(t, q.Timestamp.IsZero())
}

func TestHTTPQuoteProvider_ListResultUnwrapped(t *testing.T) {
	p := newTestHTTPProvider(newQuoteServer(t).URL)
	q, err := p.GetQuote(context.Background(), "LIST")
	require.NoError(t, err)
	assert.Equal(t, "42.5", q.Price.String())
	assert.True(t, q.Change.IsZero(), "missing optional fields default to zero")
}

func TestHTTPQuoteProvider_Errors(t *testing.T) {
	p := newTestHTTPProvider(newQuoteServer(t).URL)

	_, err := p.GetQuote(context.Background(), "MISSING")
	assert.ErrorIs(t, err, domain.ErrQuoteNotFound)

	for _, sym := range []string{"BROKEN", "NOPRICE", "GARBAGE"} {
		_, err := p.GetQuote(context.Background(), sym)
		require.Error(t, err, sym)
		assert.NotErrorIs(t, err, domain.ErrQuoteNotFound, sym)
	}
}

func TestHTTPQuoteProvider_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestHTTPProvider(url).GetQuote(context.Background(), "AAPL")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrQuoteNotFound)
}
