package analytics

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
	"github.com/ANGELCJR/stock-vision-sub000/pkg/formulas"
)

const (
	// DefaultFrontierSamples is the Monte Carlo sample count when none is given.
	DefaultFrontierSamples = 500
	// MaxFrontierSamples caps the sample count.
	MaxFrontierSamples = 5000
)

// CorrelationMatrix holds pairwise return correlations. Matrix[i][j]
// relates Symbols[i] and Symbols[j].
type CorrelationMatrix struct {
	Symbols []string    `json:"symbols"`
	Matrix  [][]float64 `json:"matrix"`
}

// FrontierPoint is one allocation on the risk/return plane.
type FrontierPoint struct {
	Return     float64  `json:"return"`
	Volatility float64  `json:"volatility"`
	Sharpe     float64  `json:"sharpe"`
	Weights    []Weight `json:"weights,omitempty"`
}

// Frontier is a sampled efficient frontier.
type Frontier struct {
	Symbols   []string        `json:"symbols"`
	Points    []FrontierPoint `json:"points"`
	Current   FrontierPoint   `json:"current"`
	MaxSharpe FrontierPoint   `json:"maxSharpe"`
}

// Correlation returns the correlation of daily returns between the
// portfolio's symbols over period (default 3M).
func (s *Service) Correlation(ctx context.Context, id domain.Identity, portfolioID int64, period string) (*CorrelationMatrix, error) {
	if strings.TrimSpace(period) == "" {
		period = riskPeriod
	}
	snap, err := s.load(ctx, id, portfolioID, period)
	if err != nil {
		return nil, err
	}

	out := &CorrelationMatrix{Symbols: symbols(snap), Matrix: [][]float64{}}
	returns := returnsMatrix(snap)
	if returns == nil {
		for i := range out.Symbols {
			row := make([]float64, len(out.Symbols))
			row[i] = 1
			out.Matrix = append(out.Matrix, row)
		}
		return out, nil
	}

	var corr mat.SymDense
	stat.CorrelationMatrix(&corr, returns, nil)
	n := len(out.Symbols)
	for i := 0; i < n; i++ {
		row := make([]float64, n)
		for j := 0; j < n; j++ {
			v := corr.At(i, j)
			if i == j {
				v = 1
			}
			row[j] = round4(v)
		}
		out.Matrix = append(out.Matrix, row)
	}
	return out, nil
}

// EfficientFrontier samples random long-only allocations of the portfolio's
// symbols. The sampling is seeded by portfolio id and sample count, so a
// request is reproducible for the same day's data.
func (s *Service) EfficientFrontier(ctx context.Context, id domain.Identity, portfolioID int64, samples int) (*Frontier, error) {
	if samples <= 0 {
		samples = DefaultFrontierSamples
	}
	if samples > MaxFrontierSamples {
		return nil, fmt.Errorf("%w: samples must be at most %d", domain.ErrInvalidInput, MaxFrontierSamples)
	}

	snap, err := s.load(ctx, id, portfolioID, riskPeriod)
	if err != nil {
		return nil, err
	}
	if len(snap.positions) < 2 {
		return nil, fmt.Errorf("%w: efficient frontier needs at least two symbols", domain.ErrInvalidInput)
	}
	returns := returnsMatrix(snap)
	if returns == nil {
		return nil, fmt.Errorf("%w: not enough price history", domain.ErrInvalidInput)
	}

	n := len(snap.positions)
	rows, _ := returns.Dims()
	mu := make([]float64, n)
	col := make([]float64, rows)
	for j := 0; j < n; j++ {
		mat.Col(col, j, returns)
		mu[j] = formulas.Mean(col) * formulas.TradingDaysPerYear
	}
	cov := &mat.SymDense{}
	stat.CovarianceMatrix(cov, returns, nil)
	cov.ScaleSym(formulas.TradingDaysPerYear, cov)

	evaluate := func(w []float64) FrontierPoint {
		wv := mat.NewVecDense(n, w)
		ret := mat.Dot(mat.NewVecDense(n, mu), wv)
		vol := math.Sqrt(math.Max(mat.Inner(wv, cov, wv), 0))
		return FrontierPoint{
			Return:     round4(ret),
			Volatility: round4(vol),
			Sharpe:     round4(formulas.Sharpe(ret, vol, RiskFreeRate)),
		}
	}
	withWeights := func(p FrontierPoint, w []float64) FrontierPoint {
		p.Weights = make([]Weight, n)
		for i, pos := range snap.positions {
			p.Weights[i] = Weight{Symbol: pos.Symbol, Weight: round4(w[i])}
		}
		return p
	}

	out := &Frontier{Symbols: symbols(snap), Points: make([]FrontierPoint, 0, samples)}

	current := make([]float64, n)
	for i, w := range weights(snap) {
		current[i] = w.Weight
	}
	out.Current = withWeights(evaluate(current), current)

	rng := rand.New(rand.NewPCG(uint64(portfolioID), uint64(samples)))
	best := math.Inf(-1)
	for k := 0; k < samples; k++ {
		w := randomWeights(rng, n)
		p := evaluate(w)
		out.Points = append(out.Points, p)
		if p.Sharpe > best {
			best = p.Sharpe
			out.MaxSharpe = withWeights(p, w)
		}
	}
	return out, nil
}

// randomWeights draws a uniform point on the simplex.
func randomWeights(rng *rand.Rand, n int) []float64 {
	w := make([]float64, n)
	sum := 0.0
	for i := range w {
		w[i] = rng.ExpFloat64()
		sum += w[i]
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}

// returnsMatrix lays out daily returns with one column per symbol, or nil
// when there are fewer than three observations.
func returnsMatrix(snap *snapshot) *mat.Dense {
	if len(snap.positions) == 0 || len(snap.axis) < 4 {
		return nil
	}
	rows := len(snap.axis) - 1
	m := mat.NewDense(rows, len(snap.positions), nil)
	for j := range snap.positions {
		for i, r := range formulas.Returns(snap.closes[j]) {
			m.Set(i, j, r)
		}
	}
	return m
}

func symbols(snap *snapshot) []string {
	out := make([]string, len(snap.positions))
	for i, p := range snap.positions {
		out[i] = p.Symbol
	}
	return out
}
