package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
	"github.com/ANGELCJR/stock-vision-sub000/internal/memory"
	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/analytics"
	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/market"
	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/portfolio"
	testingpkg "github.com/ANGELCJR/stock-vision-sub000/internal/testing"
)

func newRouter(t *testing.T) *chi.Mux {
	t.Helper()
	store := memory.NewStore()
	quotes := testingpkg.NewStubQuoteProvider(testingpkg.GrowthPrices())
	universe := market.NewUniverse()
	portfolios := portfolio.NewService(store.Portfolios(), store.Holdings(), quotes, universe, 4, zerolog.Nop())
	svc := analytics.NewService(portfolios, store.Portfolios(), market.NewService(quotes, universe, zerolog.Nop()), zerolog.Nop())
	testingpkg.NewPortfolioFixture(t, store.Portfolios(), store.Holdings(), testingpkg.DefaultUser, "Growth", testingpkg.GrowthHoldings())

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(domain.WithIdentity(req.Context(), testingpkg.DefaultUser)))
		})
	})
	NewHandler(svc, zerolog.Nop()).RegisterRoutes(r)
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHandleGetPerformance(t *testing.T) {
	r := newRouter(t)

	rec := get(r, "/portfolios/1/performance?period=1W")
	require.Equal(t, http.StatusOK, rec.Code)
	var points []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &points))
	assert.Len(t, points, 56)
	assert.Equal(t, 32600.0, points[55]["value"])

	assert.Equal(t, http.StatusBadRequest, get(r, "/portfolios/1/performance?period=nope").Code)
	assert.Equal(t, http.StatusNotFound, get(r, "/portfolios/2/performance").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, "/portfolios/x/performance").Code)
}

func TestHandleGetRisk(t *testing.T) {
	rec := get(newRouter(t), "/portfolios/1/risk")
	require.Equal(t, http.StatusOK, rec.Code)
	var report analytics.RiskReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Len(t, report.Weights, 5)
}

func TestHandleGetCorrelationAndFrontier(t *testing.T) {
	r := newRouter(t)

	rec := get(r, "/portfolios/1/correlation")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = get(r, "/portfolios/1/efficient-frontier?samples=50")
	require.Equal(t, http.StatusOK, rec.Code)
	var f analytics.Frontier
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &f))
	assert.Len(t, f.Points, 50)

	assert.Equal(t, http.StatusBadRequest, get(r, "/portfolios/1/efficient-frontier?samples=lots").Code)
}
