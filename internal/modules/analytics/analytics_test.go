package analytics

import (
	"context"
	"math"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
	"github.com/ANGELCJR/stock-vision-sub000/internal/memory"
	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/market"
	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/portfolio"
	testingpkg "github.com/ANGELCJR/stock-vision-sub000/internal/testing"
)

type env struct {
	svc    *Service
	store  *memory.Store
	market *market.Service
	pid    int64
}

func newEnv(t *testing.T, specs []testingpkg.HoldingSpec) *env {
	t.Helper()
	store := memory.NewStore()
	quotes := testingpkg.NewStubQuoteProvider(testingpkg.GrowthPrices())
	universe := market.NewUniverse()
	mkt := market.NewService(quotes, universe, zerolog.Nop())
	portfolios := portfolio.NewService(store.Portfolios(), store.Holdings(), quotes, universe, 4, zerolog.Nop())

	p, _ := testingpkg.NewPortfolioFixture(t, store.Portfolios(), store.Holdings(), testingpkg.DefaultUser, "Growth", specs)
	return &env{
		svc:    NewService(portfolios, store.Portfolios(), mkt, zerolog.Nop()),
		store:  store,
		market: mkt,
		pid:    p.ID,
	}
}

func TestPerformance(t *testing.T) {
	e := newEnv(t, testingpkg.GrowthHoldings())
	ctx := context.Background()

	points, err := e.svc.Performance(ctx, testingpkg.DefaultUser, e.pid, "")
	require.NoError(t, err)
	require.Len(t, points, 30)
	assert.Equal(t, "32600", points[29].Value.String(), "last point is the portfolio value")

	for i := 1; i < len(points); i++ {
		assert.True(t, points[i].Timestamp.After(points[i-1].Timestamp))
		assert.True(t, points[i].Value.IsPositive())
	}

	// Any point is the share-weighted sum of closes.
	expected := 0.0
	for _, spec := range testingpkg.GrowthHoldings() {
		hist, err := e.market.History(ctx, spec.Symbol, "1M")
		require.NoError(t, err)
		shares, err := strconv.ParseFloat(spec.Shares, 64)
		require.NoError(t, err)
		expected += shares * hist[10].Close
	}
	assert.InDelta(t, expected, points[10].Value.InexactFloat64(), 0.01)
}

func TestPerformance_Errors(t *testing.T) {
	e := newEnv(t, testingpkg.GrowthHoldings())
	ctx := context.Background()

	_, err := e.svc.Performance(ctx, testingpkg.DefaultUser, e.pid, "7X")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = e.svc.Performance(ctx, domain.Identity{UserID: "intruder"}, e.pid, "1M")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = e.svc.Performance(ctx, testingpkg.DefaultUser, 999, "1M")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPerformance_EmptyPortfolio(t *testing.T) {
	e := newEnv(t, nil)
	points, err := e.svc.Performance(context.Background(), testingpkg.DefaultUser, e.pid, "1M")
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestRisk(t *testing.T) {
	e := newEnv(t, testingpkg.GrowthHoldings())
	ctx := context.Background()

	report, err := e.svc.Risk(ctx, testingpkg.DefaultUser, e.pid)
	require.NoError(t, err)

	assert.Equal(t, 89, report.ObservationCount)
	assert.Greater(t, report.Volatility, 0.0)
	assert.GreaterOrEqual(t, report.VaR99, report.VaR95)
	assert.GreaterOrEqual(t, report.MaxDrawdown, 0.0)
	assert.LessOrEqual(t, report.MaxDrawdown, 1.0)
	assert.InDelta(t, 9600.0/32600.0, report.MaxWeight, 0.0001)

	sum := 0.0
	for _, w := range report.Weights {
		sum += w.Weight
	}
	assert.InDelta(t, 1.0, sum, 0.001)

	assert.GreaterOrEqual(t, report.RiskScore, 0.0)
	assert.LessOrEqual(t, report.RiskScore, 10.0)
	assert.Equal(t, RiskScore(report.Volatility, report.MaxWeight, 5), report.RiskScore)

	p, err := e.store.Portfolios().GetByID(ctx, e.pid)
	require.NoError(t, err)
	require.NotNil(t, p.RiskScore)
	assert.Equal(t, report.RiskScore, *p.RiskScore)
}

func TestRisk_EmptyPortfolio(t *testing.T) {
	e := newEnv(t, nil)
	report, err := e.svc.Risk(context.Background(), testingpkg.DefaultUser, e.pid)
	require.NoError(t, err)
	assert.Zero(t, report.RiskScore)
	assert.Zero(t, report.Volatility)
	assert.Empty(t, report.Weights)
}

func TestRiskScore(t *testing.T) {
	tests := []struct {
		name      string
		vol, maxW float64
		positions int
		want      float64
	}{
		{"empty", 0.5, 1, 0, 0},
		{"diversified calm", 0.10, 0.20, 10, 2.7},
		{"concentrated", 0.20, 0.50, 2, 7},
		{"capped", 0.80, 1, 1, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, RiskScore(tt.vol, tt.maxW, tt.positions), 1e-9)
		})
	}
}

func TestCorrelation(t *testing.T) {
	e := newEnv(t, testingpkg.GrowthHoldings())
	m, err := e.svc.Correlation(context.Background(), testingpkg.DefaultUser, e.pid, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "GOOGL", "MSFT", "NVDA", "TSLA"}, m.Symbols)
	require.Len(t, m.Matrix, 5)
	offDiagonal := 0
	for i := range m.Matrix {
		require.Len(t, m.Matrix[i], 5)
		assert.Equal(t, 1.0, m.Matrix[i][i])
		for j := range m.Matrix[i] {
			assert.InDelta(t, m.Matrix[i][j], m.Matrix[j][i], 1e-9)
			assert.LessOrEqual(t, math.Abs(m.Matrix[i][j]), 1.0)
			if i != j && m.Matrix[i][j] != 0 {
				offDiagonal++
			}
		}
	}
	assert.Positive(t, offDiagonal, "correlations are computed, not left zero")
}

func TestEfficientFrontier(t *testing.T) {
	e := newEnv(t, testingpkg.GrowthHoldings())
	ctx := context.Background()

	f, err := e.svc.EfficientFrontier(ctx, testingpkg.DefaultUser, e.pid, 200)
	require.NoError(t, err)
	require.Len(t, f.Points, 200)
	for _, p := range f.Points {
		assert.LessOrEqual(t, p.Sharpe, f.MaxSharpe.Sharpe)
		assert.GreaterOrEqual(t, p.Volatility, 0.0)
	}

	sum := 0.0
	for _, w := range f.MaxSharpe.Weights {
		sum += w.Weight
	}
	assert.InDelta(t, 1.0, sum, 0.001)
	require.Len(t, f.Current.Weights, 5)
	assert.Positive(t, f.Current.Volatility, "covariance matrix is populated")

	again, err := e.svc.EfficientFrontier(ctx, testingpkg.DefaultUser, e.pid, 200)
	require.NoError(t, err)
	assert.Equal(t, f.MaxSharpe, again.MaxSharpe, "sampling is seeded")

	_, err = e.svc.EfficientFrontier(ctx, testingpkg.DefaultUser, e.pid, MaxFrontierSamples+1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestEfficientFrontier_NeedsTwoSymbols(t *testing.T) {
	e := newEnv(t, testingpkg.GrowthHoldings()[:1])
	_, err := e.svc.EfficientFrontier(context.Background(), testingpkg.DefaultUser, e.pid, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
