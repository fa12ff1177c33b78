package insights

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
	"github.com/ANGELCJR/stock-vision-sub000/internal/memory"
	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/market"
	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/portfolio"
	testingpkg "github.com/ANGELCJR/stock-vision-sub000/internal/testing"
)

func titles(list []domain.Insight) []string {
	out := make([]string, len(list))
	for i, in := range list {
		out[i] = in.Title
	}
	return out
}

func TestNewEngine_RejectsBrokenRules(t *testing.T) {
	_, err := NewEngine([]Rule{{Name: "syntax", Condition: "holdingCount >"}})
	assert.Error(t, err)

	_, err = NewEngine([]Rule{{Name: "not_bool", Condition: "holdingCount + 1.0"}})
	assert.Error(t, err)

	_, err = NewEngine([]Rule{{Name: "template", Condition: "true", Title: "{{.Nope"}})
	assert.Error(t, err)

	_, err = NewEngine(DefaultRules)
	assert.NoError(t, err)
}

func TestEngine_Evaluate(t *testing.T) {
	engine, err := NewEngine(DefaultRules)
	require.NoError(t, err)

	t.Run("empty portfolio", func(t *testing.T) {
		got, err := engine.Evaluate(&Facts{Name: "Fresh"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Start building Fresh", got[0].Title)
		assert.Equal(t, domain.InsightOpportunity, got[0].Category)
	})

	t.Run("concentrated winner", func(t *testing.T) {
		got, err := engine.Evaluate(&Facts{
			Name:              "Bets",
			HoldingCount:      2,
			TotalValue:        10000,
			GainLossPercent:   12.5,
			TopHolding:        "NVDA",
			MaxWeight:         0.8,
			TopSector:         "Technology",
			TopSectorWeight:   1,
			BestPerformer:     "NVDA",
			BestPerformerPct:  35.2,
			WorstPerformer:    "AMD",
			WorstPerformerPct: -12,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{
			"Concentrated position in NVDA",
			"Limited diversification",
			"Heavy exposure to Technology",
			"Consider taking profits on NVDA",
			"Review your AMD position",
			"Portfolio is up +12.50%",
		}, titles(got))
		assert.Equal(t, "NVDA makes up 80.0% of the portfolio. A large move in one name would dominate returns.", got[0].Description)
		for _, in := range got {
			assert.GreaterOrEqual(t, in.Confidence, 0.0)
			assert.LessOrEqual(t, in.Confidence, 1.0)
		}
	})

	t.Run("losing portfolio", func(t *testing.T) {
		got, err := engine.Evaluate(&Facts{HoldingCount: 6, TotalValue: 900, GainLossPercent: -10, MaxWeight: 0.2, TopSectorWeight: 0.3})
		require.NoError(t, err)
		assert.Equal(t, []string{"Portfolio is down -10.00%"}, titles(got))
		assert.Equal(t, "Total value of $900.00 is below the amount invested.", got[0].Description)
	})
}

func TestBuildFacts(t *testing.T) {
	p := &domain.Portfolio{Name: "Growth"}
	holding := func(sym, shares, avg, price string) domain.Holding {
		h := domain.Holding{Symbol: sym, Shares: decimal.RequireFromString(shares), AvgPrice: decimal.RequireFromString(avg)}
		portfolio.ApplyPrice(&h, decimal.RequireFromString(price))
		return h
	}
	holdings := []domain.Holding{
		holding("AAPL", "50", "155.20", "160"),
		holding("MSFT", "30", "310.50", "320"),
		holding("GOOGL", "20", "128.40", "125"),
		holding("NVDA", "15", "420", "500"),
		holding("TSLA", "25", "210.75", "200"),
		holding("ZZZ", "1", "0", "100"),
	}

	f := BuildFacts(p, holdings, market.NewUniverse())
	assert.Equal(t, 6, f.HoldingCount)
	assert.InDelta(t, 32700, f.TotalValue, 1e-9)
	assert.Equal(t, "MSFT", f.TopHolding)
	assert.InDelta(t, 9600.0/32700.0, f.MaxWeight, 1e-9)
	assert.Equal(t, "Technology", f.TopSector)
	assert.InDelta(t, 25100.0/32700.0, f.TopSectorWeight, 1e-9)
	assert.Equal(t, "NVDA", f.BestPerformer)
	assert.InDelta(t, 19.05, f.BestPerformerPct, 1e-9)
	assert.Equal(t, "TSLA", f.WorstPerformer)
	assert.InDelta(t, -5.1, f.WorstPerformerPct, 1e-9)
	assert.InDelta(t, 4.77, f.GainLossPercent, 1e-9)

	empty := BuildFacts(p, nil, nil)
	assert.Zero(t, empty.HoldingCount)
	assert.Zero(t, empty.MaxWeight)
}

type env struct {
	svc   *Service
	store *memory.Store
	pid   int64
}

func newEnv(t *testing.T, specs []testingpkg.HoldingSpec) *env {
	t.Helper()
	store := memory.NewStore()
	quotes := testingpkg.NewStubQuoteProvider(testingpkg.GrowthPrices())
	universe := market.NewUniverse()
	portfolios := portfolio.NewService(store.Portfolios(), store.Holdings(), quotes, universe, 4, zerolog.Nop())
	engine, err := NewEngine(DefaultRules)
	require.NoError(t, err)
	p, _ := testingpkg.NewPortfolioFixture(t, store.Portfolios(), store.Holdings(), testingpkg.DefaultUser, "Growth", specs)
	return &env{
		svc:   NewService(portfolios, store.Portfolios(), store.Insights(), engine, universe, zerolog.Nop()),
		store: store,
		pid:   p.ID,
	}
}

func TestService_GenerateReplacesBatch(t *testing.T) {
	e := newEnv(t, testingpkg.GrowthHoldings())
	ctx := context.Background()

	first, err := e.svc.Generate(ctx, testingpkg.DefaultUser, e.pid)
	require.NoError(t, err)
	assert.Equal(t, []string{"Heavy exposure to Technology", "Portfolio is up +4.45%"}, titles(first))
	for _, in := range first {
		assert.Equal(t, e.pid, in.PortfolioID)
		assert.Equal(t, first[0].BatchID, in.BatchID)
		assert.NotZero(t, in.ID)
	}

	second, err := e.svc.Generate(ctx, testingpkg.DefaultUser, e.pid)
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.NotEqual(t, first[0].BatchID, second[0].BatchID)

	stored, err := e.store.Insights().ListByPortfolio(ctx, e.pid)
	require.NoError(t, err)
	assert.Len(t, stored, 2, "old batch is gone")
}

func TestService_ListGeneratesOnce(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	list, err := e.svc.List(ctx, testingpkg.DefaultUser, e.pid)
	require.NoError(t, err)
	require.Len(t, list, 1)

	again, err := e.svc.List(ctx, testingpkg.DefaultUser, e.pid)
	require.NoError(t, err)
	assert.Equal(t, list[0].BatchID, again[0].BatchID)

	_, err = e.svc.List(ctx, domain.Identity{UserID: "2"}, e.pid)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_GenerateAll(t *testing.T) {
	e := newEnv(t, testingpkg.GrowthHoldings())
	testingpkg.NewPortfolioFixture(t, e.store.Portfolios(), e.store.Holdings(), domain.Identity{UserID: "2"}, "Other", nil)

	n, err := e.svc.GenerateAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	stored, err := e.store.Insights().ListByPortfolio(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Start building Other", stored[0].Title)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.svc.GenerateAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRepository(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t)
	defer cleanup()
	ctx := context.Background()

	portfolios := portfolio.NewPortfolioRepository(db.Conn(), zerolog.Nop())
	p := &domain.Portfolio{UserID: "1", Name: "P"}
	require.NoError(t, portfolios.Create(ctx, p))

	repo := NewRepository(db.Conn(), zerolog.Nop())
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	batch := []domain.Insight{
		{BatchID: "b1", Category: domain.InsightRisk, Title: "one", Description: "d", Confidence: 0.5, CreatedAt: now},
		{BatchID: "b1", Category: domain.InsightTrend, Title: "two", Description: "d", Confidence: 0.6, CreatedAt: now},
	}
	require.NoError(t, repo.Replace(ctx, p.ID, batch))

	got, err := repo.ListByPortfolio(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "one", got[0].Title)
	assert.Equal(t, p.ID, got[0].PortfolioID)
	assert.True(t, got[0].CreatedAt.Equal(now))

	require.NoError(t, repo.Replace(ctx, p.ID, batch[1:]))
	got, err = repo.ListByPortfolio(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"two"}, titles(got))

	// Unknown portfolios violate the foreign key.
	err = repo.Replace(ctx, 999, batch)
	require.Error(t, err)
	got, err = repo.ListByPortfolio(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
