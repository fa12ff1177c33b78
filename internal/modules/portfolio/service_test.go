package portfolio

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
	"github.com/ANGELCJR/stock-vision-sub000/internal/memory"
	testingpkg "github.com/ANGELCJR/stock-vision-sub000/internal/testing"
)

type stubDirectory map[string]domain.Security

func (s stubDirectory) Lookup(symbol string) (domain.Security, bool) {
	sec, ok := s[symbol]
	return sec, ok
}

func newTestService(t *testing.T) (*Service, *memory.Store, *testingpkg.StubQuoteProvider) {
	t.Helper()
	store := memory.NewStore()
	quotes := testingpkg.NewStubQuoteProvider(testingpkg.GrowthPrices())
	dir := stubDirectory{"AAPL": {Symbol: "AAPL", Name: "Apple Inc."}}
	svc := NewService(store.Portfolios(), store.Holdings(), quotes, dir, 4, zerolog.Nop())
	return svc, store, quotes
}

var (
	alice = domain.Identity{UserID: "1"}
	bob   = domain.Identity{UserID: "2"}
)

func TestService_CreateAndListPortfolios(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreatePortfolio(ctx, alice, "  Growth  ")
	require.NoError(t, err)
	assert.Equal(t, "Growth", p.Name)
	assert.Equal(t, "1", p.UserID)

	_, err = svc.CreatePortfolio(ctx, alice, " ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.CreatePortfolio(ctx, bob, "Income")
	require.NoError(t, err)

	mine, err := svc.ListPortfolios(ctx, alice)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Growth", mine[0].Name)
}

func TestService_GetPortfolio_Ownership(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	p, err := svc.CreatePortfolio(ctx, alice, "Growth")
	require.NoError(t, err)

	_, err = svc.GetPortfolio(ctx, bob, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.GetPortfolio(ctx, alice, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_AddHolding_ValuesAndAggregates(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	p, err := svc.CreatePortfolio(ctx, alice, "Growth")
	require.NoError(t, err)

	h, err := svc.AddHolding(ctx, alice, p.ID, HoldingInput{
		Symbol:   " aapl ",
		Shares:   d("50"),
		AvgPrice: d("155.20"),
	})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", h.Symbol)
	assert.Equal(t, "Apple Inc.", h.Name, "name resolved from the directory")
	assert.True(t, d("8000").Equal(h.TotalValue))
	assert.True(t, d("240").Equal(h.GainLoss))
	assert.True(t, d("3.0928").Equal(h.GainLossPercent))

	stored, err := store.Portfolios().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, d("8000").Equal(stored.TotalValue))
	assert.True(t, d("240").Equal(stored.TotalGainLoss))
}

func TestService_AddHolding_RoundsShares(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	p, _ := svc.CreatePortfolio(ctx, alice, "Growth")

	h, err := svc.AddHolding(ctx, alice, p.ID, HoldingInput{Symbol: "MSFT", Name: "Microsoft", Shares: d("1.234567"), AvgPrice: d("300")})
	require.NoError(t, err)
	assert.Equal(t, "1.2346", h.Shares.String())
}

func TestService_AddHolding_UnknownSymbolPersistsNothing(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	p, _ := svc.CreatePortfolio(ctx, alice, "Growth")

	_, err := svc.AddHolding(ctx, alice, p.ID, HoldingInput{Symbol: "ZZZZ", Shares: d("1"), AvgPrice: d("1")})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.ErrorIs(t, err, domain.ErrQuoteNotFound)

	holdings, err := store.Holdings().ListByPortfolio(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, holdings)
}

func TestService_AddHolding_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	p, _ := svc.CreatePortfolio(ctx, alice, "Growth")

	cases := map[string]HoldingInput{
		"missing symbol":   {Shares: d("1"), AvgPrice: d("1")},
		"malformed symbol": {Symbol: "AA PL", Shares: d("1"), AvgPrice: d("1")},
		"zero shares":      {Symbol: "AAPL", Shares: decimal.Zero, AvgPrice: d("1")},
		"negative shares":  {Symbol: "AAPL", Shares: d("-3"), AvgPrice: d("1")},
		"tiny shares":      {Symbol: "AAPL", Shares: d("0.00001"), AvgPrice: d("1")},
		"negative price":   {Symbol: "AAPL", Shares: d("1"), AvgPrice: d("-1")},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.AddHolding(ctx, alice, p.ID, in)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}

	_, err := svc.AddHolding(ctx, bob, p.ID, HoldingInput{Symbol: "AAPL", Shares: d("1"), AvgPrice: d("1")})
	assert.ErrorIs(t, err, domain.ErrNotFound, "other users cannot add to the portfolio")
}

func TestService_HoldingsRunsPipeline(t *testing.T) {
	svc, store, quotes := newTestService(t)
	ctx := context.Background()
	p, _ := svc.CreatePortfolio(ctx, alice, "Growth")
	_, err := svc.AddHolding(ctx, alice, p.ID, HoldingInput{Symbol: "AAPL", Shares: d("50"), AvgPrice: d("155.20")})
	require.NoError(t, err)

	quotes.SetPrice("AAPL", "170")
	res, err := svc.Holdings(ctx, alice, p.ID)
	require.NoError(t, err)
	require.Len(t, res.Holdings, 1)
	assert.True(t, d("8500").Equal(res.Holdings[0].TotalValue))

	stored, _ := store.Portfolios().GetByID(ctx, p.ID)
	assert.True(t, d("8500").Equal(stored.TotalValue))

	_, err = svc.Holdings(ctx, bob, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_UpdateHolding(t *testing.T) {
	svc, store, quotes := newTestService(t)
	ctx := context.Background()
	p, _ := svc.CreatePortfolio(ctx, alice, "Growth")
	h, err := svc.AddHolding(ctx, alice, p.ID, HoldingInput{Symbol: "AAPL", Shares: d("50"), AvgPrice: d("155.20")})
	require.NoError(t, err)

	shares := d("100")
	updated, err := svc.UpdateHolding(ctx, alice, h.ID, HoldingPatch{Shares: &shares})
	require.NoError(t, err)
	assert.True(t, d("16000").Equal(updated.TotalValue))

	stored, _ := store.Portfolios().GetByID(ctx, p.ID)
	assert.True(t, d("16000").Equal(stored.TotalValue))

	quotes.SetError("AAPL", assert.AnError)
	avg := d("150")
	updated, err = svc.UpdateHolding(ctx, alice, h.ID, HoldingPatch{AvgPrice: &avg})
	require.NoError(t, err, "quote failure keeps the stored price")
	assert.True(t, d("160").Equal(updated.CurrentPrice))
	assert.True(t, d("1000").Equal(updated.GainLoss))

	bad := d("0")
	_, err = svc.UpdateHolding(ctx, alice, h.ID, HoldingPatch{Shares: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.UpdateHolding(ctx, bob, h.ID, HoldingPatch{Shares: &shares})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_DeleteHolding(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	p, _ := svc.CreatePortfolio(ctx, alice, "Growth")
	h1, _ := svc.AddHolding(ctx, alice, p.ID, HoldingInput{Symbol: "AAPL", Shares: d("50"), AvgPrice: d("155.20")})
	_, _ = svc.AddHolding(ctx, alice, p.ID, HoldingInput{Symbol: "MSFT", Shares: d("30"), AvgPrice: d("310.50")})

	assert.ErrorIs(t, svc.DeleteHolding(ctx, bob, h1.ID), domain.ErrNotFound)
	require.NoError(t, svc.DeleteHolding(ctx, alice, h1.ID))
	assert.ErrorIs(t, svc.DeleteHolding(ctx, alice, h1.ID), domain.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteHolding(ctx, alice, 12345), domain.ErrNotFound)

	stored, _ := store.Portfolios().GetByID(ctx, p.ID)
	assert.True(t, d("9600").Equal(stored.TotalValue), "totals drop the deleted holding")
}

// conflictingPortfolios loses every totals compare-and-swap.
type conflictingPortfolios struct {
	domain.PortfolioStore
}

func (conflictingPortfolios) UpdateTotals(context.Context, int64, int64, decimal.Decimal, decimal.Decimal) error {
	return domain.ErrConflict
}

func TestService_HoldingWritesSurviveAggregationConflict(t *testing.T) {
	store := memory.NewStore()
	quotes := testingpkg.NewStubQuoteProvider(testingpkg.GrowthPrices())
	svc := NewService(conflictingPortfolios{store.Portfolios()}, store.Holdings(), quotes, nil, 4, zerolog.Nop())
	ctx := context.Background()

	p, err := svc.CreatePortfolio(ctx, alice, "Growth")
	require.NoError(t, err)

	h, err := svc.AddHolding(ctx, alice, p.ID, HoldingInput{Symbol: "AAPL", Shares: d("50"), AvgPrice: d("155.20")})
	require.NoError(t, err, "the holding is stored, so the add succeeds")
	stored, err := store.Holdings().GetByID(ctx, h.ID)
	require.NoError(t, err)
	assert.True(t, d("50").Equal(stored.Shares))

	shares := d("60")
	updated, err := svc.UpdateHolding(ctx, alice, h.ID, HoldingPatch{Shares: &shares})
	require.NoError(t, err)
	assert.True(t, d("60").Equal(updated.Shares))

	require.NoError(t, svc.DeleteHolding(ctx, alice, h.ID))
	_, err = store.Holdings().GetByID(ctx, h.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_RefreshAll(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	testingpkg.NewPortfolioFixture(t, store.Portfolios(), store.Holdings(), alice, "A", testingpkg.GrowthHoldings())
	testingpkg.NewPortfolioFixture(t, store.Portfolios(), store.Holdings(), bob, "B", testingpkg.GrowthHoldings()[:2])

	n, err := svc.RefreshAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, _ := store.Portfolios().ListAll(ctx)
	for _, p := range all {
		assert.True(t, p.TotalValue.IsPositive(), p.Name)
	}
}
