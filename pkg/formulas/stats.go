package formulas

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is the annualisation factor for daily series.
const TradingDaysPerYear = 252.0

// Mean calculates the arithmetic mean of data
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation of data
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Returns converts a price series into simple period returns.
// A zero price yields a zero return for the following period.
func Returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}
	out := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			out[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
		}
	}
	return out
}

// AnnualizedVolatility scales the standard deviation of daily returns by
// sqrt(252).
func AnnualizedVolatility(dailyReturns []float64) float64 {
	return StdDev(dailyReturns) * math.Sqrt(TradingDaysPerYear)
}

// AnnualizedReturn compounds daily returns and annualises the result.
//
//	((1+r1)*(1+r2)*...*(1+rN))^(252/N) - 1
//
// Series shorter than three periods return the plain cumulative return.
func AnnualizedReturn(dailyReturns []float64) float64 {
	if len(dailyReturns) == 0 {
		return 0
	}
	cumulative := 1.0
	for _, r := range dailyReturns {
		cumulative *= 1 + r
	}
	if len(dailyReturns) < 3 || cumulative <= 0 {
		return cumulative - 1
	}
	years := float64(len(dailyReturns)) / TradingDaysPerYear
	return math.Pow(cumulative, 1/years) - 1
}

// Sharpe returns (annualReturn - riskFree) / volatility, or 0 when volatility
// is zero.
func Sharpe(annualReturn, volatility, riskFree float64) float64 {
	if volatility == 0 {
		return 0
	}
	return (annualReturn - riskFree) / volatility
}

// HistoricalVaR returns the loss not exceeded with the given confidence,
// as a positive fraction. 95% confidence reads the 5th percentile return.
func HistoricalVaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	data := stats.Float64Data(returns)
	p, err := stats.Percentile(data, (1-confidence)*100)
	if err != nil {
		// Too few observations for the requested tail; use the worst one.
		if p, err = stats.Min(data); err != nil {
			return 0
		}
	}
	if p > 0 {
		return 0
	}
	return -p
}

// MaxDrawdown returns the largest peak-to-trough decline of a value series
// as a positive fraction.
func MaxDrawdown(values []float64) float64 {
	peak := math.Inf(-1)
	worst := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}
