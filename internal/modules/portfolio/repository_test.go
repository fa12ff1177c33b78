package portfolio

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
	testingpkg "github.com/ANGELCJR/stock-vision-sub000/internal/testing"
)

func repoBackends(t *testing.T) map[string]*sqlx.DB {
	t.Helper()
	modernc, cleanup := testingpkg.NewTestDB(t)
	t.Cleanup(cleanup)
	return map[string]*sqlx.DB{
		"modernc": modernc.Conn(),
		"mattn":   testingpkg.NewMemoryDB(t),
	}
}

func TestPortfolioRepository(t *testing.T) {
	for name, db := range repoBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := NewPortfolioRepository(db, zerolog.Nop())

			p := &domain.Portfolio{UserID: "1", Name: "Growth", TotalValue: decimal.Zero, TotalGainLoss: decimal.Zero}
			require.NoError(t, repo.Create(ctx, p))
			require.NotZero(t, p.ID)

			got, err := repo.GetByID(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, "Growth", got.Name)
			assert.Nil(t, got.RiskScore)
			assert.Equal(t, p.CreatedAt, got.CreatedAt)

			require.NoError(t, repo.UpdateTotals(ctx, p.ID, 0, d("17600.123456"), d("-12.5")))
			err = repo.UpdateTotals(ctx, p.ID, 0, d("1"), d("1"))
			assert.ErrorIs(t, err, domain.ErrConflict)
			err = repo.UpdateTotals(ctx, 999, 0, d("1"), d("1"))
			assert.ErrorIs(t, err, domain.ErrNotFound)

			require.NoError(t, repo.UpdateRiskScore(ctx, p.ID, 6.2))
			assert.ErrorIs(t, repo.UpdateRiskScore(ctx, 999, 1), domain.ErrNotFound)

			got, err = repo.GetByID(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(1), got.Version)
			assert.True(t, d("17600.123456").Equal(got.TotalValue), got.TotalValue.String())
			assert.True(t, d("-12.5").Equal(got.TotalGainLoss))
			require.NotNil(t, got.RiskScore)
			assert.InDelta(t, 6.2, *got.RiskScore, 1e-9)

			_, err = repo.GetByID(ctx, 999)
			assert.ErrorIs(t, err, domain.ErrNotFound)

			require.NoError(t, repo.Create(ctx, &domain.Portfolio{UserID: "2", Name: "Other"}))
			mine, err := repo.ListByUser(ctx, "1")
			require.NoError(t, err)
			assert.Len(t, mine, 1)
			all, err := repo.ListAll(ctx)
			require.NoError(t, err)
			assert.Len(t, all, 2)
		})
	}
}

func TestHoldingRepository(t *testing.T) {
	for name, db := range repoBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			portfolios := NewPortfolioRepository(db, zerolog.Nop())
			repo := NewHoldingRepository(db, zerolog.Nop())

			p := &domain.Portfolio{UserID: "1", Name: "Growth"}
			require.NoError(t, portfolios.Create(ctx, p))

			h := &domain.Holding{
				PortfolioID: p.ID,
				Symbol:      "AAPL",
				Name:        "Apple Inc.",
				Shares:      d("50.1234"),
				AvgPrice:    d("155.20"),
			}
			ApplyPrice(h, d("160"))
			require.NoError(t, repo.Create(ctx, h))
			require.NotZero(t, h.ID)

			got, err := repo.GetByID(ctx, h.ID)
			require.NoError(t, err)
			assert.True(t, d("50.1234").Equal(got.Shares))
			assert.True(t, h.TotalValue.Equal(got.TotalValue))
			assert.True(t, h.GainLossPercent.Equal(got.GainLossPercent))

			dup := &domain.Holding{PortfolioID: p.ID, Symbol: "AAPL", Name: "Apple Inc.", Shares: d("1"), AvgPrice: d("1")}
			require.NoError(t, repo.Create(ctx, dup), "duplicate symbols are allowed")

			list, err := repo.ListByPortfolio(ctx, p.ID)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, h.ID, list[0].ID)

			ApplyPrice(got, d("170"))
			require.NoError(t, repo.Update(ctx, got))
			again, err := repo.GetByID(ctx, h.ID)
			require.NoError(t, err)
			assert.True(t, d("170").Equal(again.CurrentPrice))

			stale := *again
			ApplyPrice(&stale, d("180"))
			written, err := repo.UpdateValuation(ctx, &stale)
			require.NoError(t, err)
			assert.True(t, written)
			again, err = repo.GetByID(ctx, h.ID)
			require.NoError(t, err)
			assert.True(t, d("180").Equal(again.CurrentPrice))
			assert.True(t, d("155.2").Equal(again.AvgPrice))

			edited := *again
			edited.Shares = d("75")
			Revalue(&edited)
			require.NoError(t, repo.Update(ctx, &edited))
			ApplyPrice(&stale, d("190"))
			written, err = repo.UpdateValuation(ctx, &stale)
			require.NoError(t, err)
			assert.False(t, written, "shares changed since the read")
			again, err = repo.GetByID(ctx, h.ID)
			require.NoError(t, err)
			assert.True(t, d("75").Equal(again.Shares))
			assert.True(t, d("180").Equal(again.CurrentPrice))

			require.NoError(t, repo.Delete(ctx, h.ID))
			assert.ErrorIs(t, repo.Delete(ctx, h.ID), domain.ErrNotFound)
			_, err = repo.GetByID(ctx, h.ID)
			assert.ErrorIs(t, err, domain.ErrNotFound)
			assert.ErrorIs(t, repo.Update(ctx, got), domain.ErrNotFound)
			written, err = repo.UpdateValuation(ctx, &edited)
			require.NoError(t, err)
			assert.False(t, written)
		})
	}
}

func TestPipeline_WithSQLStores(t *testing.T) {
	db := testingpkg.NewMemoryDB(t)
	portfolios := NewPortfolioRepository(db, zerolog.Nop())
	holdings := NewHoldingRepository(db, zerolog.Nop())
	quotes := testingpkg.NewStubQuoteProvider(testingpkg.GrowthPrices())
	p, _ := testingpkg.NewPortfolioFixture(t, portfolios, holdings, testingpkg.DefaultUser, "Growth", testingpkg.GrowthHoldings())

	pipeline := NewPipeline(holdings, quotes, NewAggregator(portfolios, holdings, zerolog.Nop()), 4, zerolog.Nop())
	res, err := pipeline.Refresh(context.Background(), p.ID)
	require.NoError(t, err)

	stored, err := holdings.ListByPortfolio(context.Background(), p.ID)
	require.NoError(t, err)
	assertInvariants(t, res.Portfolio, stored)

	persisted, err := portfolios.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.True(t, res.Portfolio.TotalValue.Equal(persisted.TotalValue))
}
