package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
	"github.com/ANGELCJR/stock-vision-sub000/internal/memory"
	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/insights"
	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/market"
	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/portfolio"
	testingpkg "github.com/ANGELCJR/stock-vision-sub000/internal/testing"
)

func newRouter(t *testing.T) (*chi.Mux, int64) {
	t.Helper()
	store := memory.NewStore()
	quotes := testingpkg.NewStubQuoteProvider(testingpkg.GrowthPrices())
	universe := market.NewUniverse()
	portfolios := portfolio.NewService(store.Portfolios(), store.Holdings(), quotes, universe, 4, zerolog.Nop())
	engine, err := insights.NewEngine(insights.DefaultRules)
	require.NoError(t, err)
	svc := insights.NewService(portfolios, store.Portfolios(), store.Insights(), engine, universe, zerolog.Nop())
	p, _ := testingpkg.NewPortfolioFixture(t, store.Portfolios(), store.Holdings(), testingpkg.DefaultUser, "Growth", testingpkg.GrowthHoldings())

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user := r.Header.Get("X-Test-User"); user != "" {
				r = r.WithContext(domain.WithIdentity(r.Context(), domain.Identity{UserID: user}))
			}
			next.ServeHTTP(w, r)
		})
	})
	NewHandler(svc, zerolog.Nop()).RegisterRoutes(router)
	return router, p.ID
}

func serve(router http.Handler, method, path, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleListInsights(t *testing.T) {
	router, pid := newRouter(t)
	path := "/portfolios/" + strconv.FormatInt(pid, 10) + "/insights"

	rec := serve(router, http.MethodGet, path, "1")
	require.Equal(t, http.StatusOK, rec.Code)

	var list []domain.Insight
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, domain.InsightRisk, list[0].Category)
	assert.Equal(t, "Heavy exposure to Technology", list[0].Title)

	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, path, "2").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, path, "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(router, http.MethodGet, "/portfolios/abc/insights", "1").Code)
	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/portfolios/99/insights", "1").Code)
}

func TestHandleGenerateInsights(t *testing.T) {
	router, pid := newRouter(t)
	base := "/portfolios/" + strconv.FormatInt(pid, 10) + "/insights"

	rec := serve(router, http.MethodPost, base+"/generate", "1")
	require.Equal(t, http.StatusCreated, rec.Code)
	var first []domain.Insight
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	require.NotEmpty(t, first)

	rec = serve(router, http.MethodPost, base+"/generate", "1")
	require.Equal(t, http.StatusCreated, rec.Code)
	var second []domain.Insight
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	require.NotEmpty(t, second)
	assert.NotEqual(t, first[0].BatchID, second[0].BatchID)

	rec = serve(router, http.MethodGet, base, "1")
	var listed []domain.Insight
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Equal(t, second[0].BatchID, listed[0].BatchID)

	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodPost, base+"/generate", "2").Code)
}
