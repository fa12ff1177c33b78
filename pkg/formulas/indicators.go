// Package formulas holds the technical indicator and return statistics used
// by the market and analytics modules.
package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// BollingerBands holds the last upper, middle and lower band values.
type BollingerBands struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// SMA returns the last simple moving average over length closes, or nil if
// there is not enough data.
func SMA(closes []float64, length int) *float64 {
	if length < 1 || len(closes) < length {
		return nil
	}
	return last(talib.Sma(closes, length))
}

// EMA returns the last exponential moving average over length closes.
// With fewer than length closes it falls back to the mean of what is there.
func EMA(closes []float64, length int) *float64 {
	if len(closes) == 0 || length < 1 {
		return nil
	}
	if len(closes) < length {
		m := Mean(closes)
		return &m
	}
	if v := last(talib.Ema(closes, length)); v != nil {
		return v
	}
	m := Mean(closes[len(closes)-length:])
	return &m
}

// RSI returns the last relative strength index (0-100), or nil if there are
// fewer than length+1 closes.
func RSI(closes []float64, length int) *float64 {
	if length < 1 || len(closes) < length+1 {
		return nil
	}
	return last(talib.Rsi(closes, length))
}

// Bollinger returns the last Bollinger bands over an SMA of length closes.
func Bollinger(closes []float64, length int, stdDevs float64) *BollingerBands {
	if length < 2 || len(closes) < length {
		return nil
	}
	// MAType 0 is SMA.
	upper, middle, lower := talib.BBands(closes, length, stdDevs, stdDevs, 0)
	u, m, l := last(upper), last(middle), last(lower)
	if u == nil || m == nil || l == nil {
		return nil
	}
	return &BollingerBands{Upper: *u, Middle: *m, Lower: *l}
}

func last(series []float64) *float64 {
	if len(series) == 0 {
		return nil
	}
	v := series[len(series)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
