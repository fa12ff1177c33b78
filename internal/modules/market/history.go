package market

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
)

// Period describes a history window as a number of evenly spaced points.
type Period struct {
	Name   string
	Points int
	Step   time.Duration
}

const day = 24 * time.Hour

// DefaultPeriod is used when no period is requested.
const DefaultPeriod = "1M"

var periods = map[string]Period{
	"1D": {Name: "1D", Points: 48, Step: 30 * time.Minute},
	"1W": {Name: "1W", Points: 56, Step: 3 * time.Hour},
	"1M": {Name: "1M", Points: 30, Step: day},
	"3M": {Name: "3M", Points: 90, Step: day},
	"6M": {Name: "6M", Points: 26, Step: 7 * day},
	"1Y": {Name: "1Y", Points: 52, Step: 7 * day},
	"5Y": {Name: "5Y", Points: 60, Step: 30 * day},
}

// ParsePeriod resolves a period name case-insensitively. A blank name
// yields DefaultPeriod; an unknown one fails with domain.ErrInvalidInput.
func ParsePeriod(name string) (Period, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		name = DefaultPeriod
	}
	p, ok := periods[name]
	if !ok {
		return Period{}, fmt.Errorf("%w: unknown period %q", domain.ErrInvalidInput, name)
	}
	return p, nil
}

// dailyVolatility is the standard deviation of a one-day step of the walk.
const dailyVolatility = 0.018

// GenerateHistory builds a deterministic OHLCV series that ends at price.
// The walk runs backwards from the last close, seeded by symbol, period
// and the end date, so repeated calls on one day agree and every symbol
// shares the same timestamps for a given period.
func GenerateHistory(symbol string, price float64, period Period, end time.Time) []domain.HistoryPoint {
	end = end.UTC().Truncate(period.Step)
	rng := seededRand(symbol+"|"+period.Name, end.Truncate(day).Unix(), 2)

	stepVol := dailyVolatility * math.Sqrt(float64(period.Step)/float64(day))
	closes := make([]float64, period.Points)
	closes[len(closes)-1] = price
	for i := len(closes) - 2; i >= 0; i-- {
		// A slight upward drift forward in time means a downward one here.
		r := rng.NormFloat64()*stepVol + 0.0003*float64(period.Step)/float64(day)
		closes[i] = closes[i+1] / (1 + r)
		if closes[i] <= 0.01 {
			closes[i] = 0.01
		}
	}

	points := make([]domain.HistoryPoint, period.Points)
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		wick := math.Abs(rng.NormFloat64()) * stepVol * 0.5
		points[i] = domain.HistoryPoint{
			Timestamp: end.Add(-time.Duration(period.Points-1-i) * period.Step),
			Open:      round2(open),
			High:      round2(math.Max(open, c) * (1 + wick)),
			Low:       round2(math.Min(open, c) * (1 - wick)),
			Close:     round2(c),
			Volume:    500_000 + rng.Int64N(5_000_000),
		}
	}
	// The last close is the quote itself, unrounded.
	points[len(points)-1].Close = price
	return points
}

// Closes extracts the close prices of a series.
func Closes(points []domain.HistoryPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Close
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
