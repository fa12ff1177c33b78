package portfolio

import (
	"github.com/shopspring/decimal"

	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
)

// PercentPrecision is the number of decimal places kept for gain/loss percent.
const PercentPrecision = 4

var hundred = decimal.NewFromInt(100)

// Valuation is the derived state of a holding at a given price.
type Valuation struct {
	TotalValue      decimal.Decimal
	GainLoss        decimal.Decimal
	GainLossPercent decimal.Decimal
}

// Valuate computes a holding's market value and gain/loss.
//
//	totalValue      = currentPrice × shares
//	gainLoss        = totalValue − avgPrice × shares
//	gainLossPercent = (currentPrice − avgPrice) / avgPrice × 100
//
// Value and gain/loss are exact. The percent is rounded to PercentPrecision
// places and is zero when avgPrice ≤ 0, where it is undefined.
func Valuate(shares, avgPrice, currentPrice decimal.Decimal) Valuation {
	totalValue := currentPrice.Mul(shares)
	gainLoss := totalValue.Sub(avgPrice.Mul(shares))

	pct := decimal.Zero
	if avgPrice.IsPositive() {
		pct = currentPrice.Sub(avgPrice).Div(avgPrice).Mul(hundred).Round(PercentPrecision)
	}

	return Valuation{
		TotalValue:      totalValue,
		GainLoss:        gainLoss,
		GainLossPercent: pct,
	}
}

// ApplyPrice revalues h at price and reports whether any derived field
// changed.
func ApplyPrice(h *domain.Holding, price decimal.Decimal) bool {
	v := Valuate(h.Shares, h.AvgPrice, price)
	changed := !h.CurrentPrice.Equal(price) ||
		!h.TotalValue.Equal(v.TotalValue) ||
		!h.GainLoss.Equal(v.GainLoss) ||
		!h.GainLossPercent.Equal(v.GainLossPercent)

	h.CurrentPrice = price
	h.TotalValue = v.TotalValue
	h.GainLoss = v.GainLoss
	h.GainLossPercent = v.GainLossPercent
	return changed
}

// Revalue recomputes h's derived fields from its stored current price. Used
// after shares or cost basis change without a fresh quote.
func Revalue(h *domain.Holding) {
	ApplyPrice(h, h.CurrentPrice)
}

// Totals sums the holdings' value and gain/loss.
func Totals(holdings []domain.Holding) (totalValue, totalGainLoss decimal.Decimal) {
	totalValue, totalGainLoss = decimal.Zero, decimal.Zero
	for i := range holdings {
		totalValue = totalValue.Add(holdings[i].TotalValue)
		totalGainLoss = totalGainLoss.Add(holdings[i].GainLoss)
	}
	return totalValue, totalGainLoss
}
