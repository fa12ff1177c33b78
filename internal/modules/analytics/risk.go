package analytics

import (
	"context"
	"math"

	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
	"github.com/ANGELCJR/stock-vision-sub000/pkg/formulas"
)

// RiskFreeRate is the annual rate used in Sharpe ratios.
const RiskFreeRate = 0.04

// Weight is one symbol's share of portfolio value.
type Weight struct {
	Symbol string  `json:"symbol"`
	Weight float64 `json:"weight"`
}

// RiskReport summarises portfolio risk over the last three months of daily
// data. Return and volatility figures are annualised fractions.
type RiskReport struct {
	PortfolioID      int64    `json:"portfolioId"`
	Volatility       float64  `json:"volatility"`
	AnnualReturn     float64  `json:"annualReturn"`
	SharpeRatio      float64  `json:"sharpeRatio"`
	VaR95            float64  `json:"var95"`
	VaR99            float64  `json:"var99"`
	MaxDrawdown      float64  `json:"maxDrawdown"`
	MaxWeight        float64  `json:"maxWeight"`
	Weights          []Weight `json:"weights"`
	RiskScore        float64  `json:"riskScore"`
	ObservationCount int      `json:"observationCount"`
}

// Risk computes the risk report and stores its score on the portfolio.
func (s *Service) Risk(ctx context.Context, id domain.Identity, portfolioID int64) (*RiskReport, error) {
	snap, err := s.load(ctx, id, portfolioID, riskPeriod)
	if err != nil {
		return nil, err
	}

	report := &RiskReport{PortfolioID: portfolioID, Weights: weights(snap)}
	for _, w := range report.Weights {
		report.MaxWeight = math.Max(report.MaxWeight, w.Weight)
	}

	values := snap.values()
	returns := formulas.Returns(values)
	report.ObservationCount = len(returns)
	report.Volatility = round4(formulas.AnnualizedVolatility(returns))
	report.AnnualReturn = round4(formulas.AnnualizedReturn(returns))
	report.SharpeRatio = round4(formulas.Sharpe(report.AnnualReturn, report.Volatility, RiskFreeRate))
	report.VaR95 = round4(formulas.HistoricalVaR(returns, 0.95))
	report.VaR99 = round4(formulas.HistoricalVaR(returns, 0.99))
	report.MaxDrawdown = round4(formulas.MaxDrawdown(values))
	report.RiskScore = RiskScore(report.Volatility, report.MaxWeight, len(snap.positions))

	if err := s.store.UpdateRiskScore(ctx, portfolioID, report.RiskScore); err != nil {
		return nil, err
	}
	return report, nil
}

// RiskScore maps volatility and concentration onto 0-10. Volatility
// contributes up to 6 points at 40% a year, the largest weight up to 3
// points at 50%, and holding fewer than five symbols adds one.
func RiskScore(volatility, maxWeight float64, positions int) float64 {
	if positions == 0 {
		return 0
	}
	score := volatility/0.40*6 + maxWeight/0.5*3
	if positions < 5 {
		score++
	}
	return math.Round(math.Min(score, 10)*100) / 100
}

func weights(snap *snapshot) []Weight {
	total := snap.totalValue()
	out := make([]Weight, len(snap.positions))
	for i, p := range snap.positions {
		out[i] = Weight{Symbol: p.Symbol}
		if total > 0 {
			out[i].Weight = round4(p.Value / total)
		}
	}
	return out
}

func round4(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*10000) / 10000
}
