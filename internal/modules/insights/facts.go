package insights

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/portfolio"
)

// Facts are the portfolio figures rules are evaluated against. Weights are
// fractions; performer and gain figures are percentages.
type Facts struct {
	Name              string
	HoldingCount      int
	TotalValue        float64
	GainLossPercent   float64
	TopHolding        string
	MaxWeight         float64
	TopSector         string
	TopSectorWeight   float64
	BestPerformer     string
	BestPerformerPct  float64
	WorstPerformer    string
	WorstPerformerPct float64
}

// Variables exposes the facts under their rule names.
func (f *Facts) Variables() map[string]interface{} {
	return map[string]interface{}{
		"holdingCount":      float64(f.HoldingCount),
		"totalValue":        f.TotalValue,
		"gainLossPercent":   f.GainLossPercent,
		"maxWeight":         f.MaxWeight,
		"topSector":         f.TopSector,
		"topSectorWeight":   f.TopSectorWeight,
		"bestPerformerPct":  f.BestPerformerPct,
		"worstPerformerPct": f.WorstPerformerPct,
	}
}

// BuildFacts summarises a portfolio. HoldingCount counts distinct symbols.
// Symbols unknown to directory are grouped under "Other".
func BuildFacts(p *domain.Portfolio, holdings []domain.Holding, directory portfolio.SymbolDirectory) *Facts {
	f := &Facts{Name: p.Name}

	type agg struct {
		value, cost decimal.Decimal
	}
	bySymbol := make(map[string]*agg)
	var symbols []string
	total, cost := decimal.Zero, decimal.Zero
	for _, h := range holdings {
		a, ok := bySymbol[h.Symbol]
		if !ok {
			a = &agg{}
			bySymbol[h.Symbol] = a
			symbols = append(symbols, h.Symbol)
		}
		a.value = a.value.Add(h.TotalValue)
		a.cost = a.cost.Add(h.CostBasis())
		total = total.Add(h.TotalValue)
		cost = cost.Add(h.CostBasis())
	}
	sort.Strings(symbols)

	f.HoldingCount = len(symbols)
	f.TotalValue = total.Round(2).InexactFloat64()
	if cost.IsPositive() {
		f.GainLossPercent = total.Sub(cost).Div(cost).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
	}
	if len(symbols) == 0 {
		return f
	}

	sectors := make(map[string]decimal.Decimal)
	first := true
	for _, sym := range symbols {
		a := bySymbol[sym]
		if total.IsPositive() {
			if w := a.value.Div(total).InexactFloat64(); w > f.MaxWeight {
				f.MaxWeight, f.TopHolding = w, sym
			}
		}

		sector := "Other"
		if directory != nil {
			if sec, ok := directory.Lookup(sym); ok && sec.Sector != "" {
				sector = sec.Sector
			}
		}
		sectors[sector] = sectors[sector].Add(a.value)

		if !a.cost.IsPositive() {
			continue
		}
		pct := a.value.Sub(a.cost).Div(a.cost).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
		if first || pct > f.BestPerformerPct {
			f.BestPerformer, f.BestPerformerPct = sym, pct
		}
		if first || pct < f.WorstPerformerPct {
			f.WorstPerformer, f.WorstPerformerPct = sym, pct
		}
		first = false
	}

	if total.IsPositive() {
		names := make([]string, 0, len(sectors))
		for s := range sectors {
			names = append(names, s)
		}
		sort.Strings(names)
		for _, s := range names {
			if w := sectors[s].Div(total).InexactFloat64(); w > f.TopSectorWeight {
				f.TopSector, f.TopSectorWeight = s, w
			}
		}
	}
	return f
}
