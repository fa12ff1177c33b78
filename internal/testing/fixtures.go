package testing

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
)

// DefaultUser is the identity used by fixtures.
var DefaultUser = domain.Identity{UserID: "1"}

// HoldingSpec describes a fixture holding.
type HoldingSpec struct {
	Symbol   string
	Name     string
	Shares   string
	AvgPrice string
}

// GrowthHoldings mirrors the seeded demo portfolio.
func GrowthHoldings() []HoldingSpec {
	return []HoldingSpec{
		{"AAPL", "Apple Inc.", "50", "155.20"},
		{"MSFT", "Microsoft Corporation", "30", "310.50"},
		{"GOOGL", "Alphabet Inc.", "20", "128.40"},
		{"NVDA", "NVIDIA Corporation", "15", "420.00"},
		{"TSLA", "Tesla, Inc.", "25", "210.75"},
	}
}

// GrowthPrices are stub prices matching GrowthHoldings.
func GrowthPrices() map[string]string {
	return map[string]string{
		"AAPL":  "160.00",
		"MSFT":  "320.00",
		"GOOGL": "125.00",
		"NVDA":  "500.00",
		"TSLA":  "200.00",
	}
}

// NewPortfolioFixture creates a portfolio for user with the given holdings
// valued at a zero current price, as if no quote had been seen yet.
func NewPortfolioFixture(
	t *testing.T,
	portfolios domain.PortfolioStore,
	holdings domain.HoldingStore,
	user domain.Identity,
	name string,
	specs []HoldingSpec,
) (*domain.Portfolio, []domain.Holding) {
	t.Helper()
	ctx := context.Background()

	p := &domain.Portfolio{UserID: user.UserID, Name: name, TotalValue: decimal.Zero, TotalGainLoss: decimal.Zero}
	if err := portfolios.Create(ctx, p); err != nil {
		t.Fatalf("Failed to create portfolio fixture: %v", err)
	}

	created := make([]domain.Holding, 0, len(specs))
	for _, spec := range specs {
		shares := decimal.RequireFromString(spec.Shares)
		avg := decimal.RequireFromString(spec.AvgPrice)
		h := &domain.Holding{
			PortfolioID:     p.ID,
			Symbol:          spec.Symbol,
			Name:            spec.Name,
			Shares:          shares,
			AvgPrice:        avg,
			CurrentPrice:    decimal.Zero,
			TotalValue:      decimal.Zero,
			GainLoss:        avg.Mul(shares).Neg(),
			GainLossPercent: decimal.Zero,
		}
		if avg.IsPositive() {
			h.GainLossPercent = decimal.NewFromInt(-100)
		}
		if err := holdings.Create(ctx, h); err != nil {
			t.Fatalf("Failed to create holding fixture %s: %v", spec.Symbol, err)
		}
		created = append(created, *h)
	}
	return p, created
}
