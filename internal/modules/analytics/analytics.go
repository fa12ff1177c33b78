// Package analytics derives portfolio-level series and risk statistics from
// holdings and the synthetic price history of their symbols.
package analytics

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/market"
	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/portfolio"
)

// HistorySource supplies price history per symbol.
type HistorySource interface {
	History(ctx context.Context, symbol, period string) ([]domain.HistoryPoint, error)
}

// riskPeriod is the window used for risk, correlation and frontier figures.
const riskPeriod = "3M"

// Service computes portfolio analytics for an identity.
type Service struct {
	portfolios *portfolio.Service
	store      domain.PortfolioStore
	history    HistorySource
	log        zerolog.Logger
}

// NewService creates a new analytics service. store receives computed risk
// scores.
func NewService(portfolios *portfolio.Service, store domain.PortfolioStore, history HistorySource, log zerolog.Logger) *Service {
	return &Service{
		portfolios: portfolios,
		store:      store,
		history:    history,
		log:        log.With().Str("service", "analytics").Logger(),
	}
}

// position is a holding collapsed per symbol.
type position struct {
	Symbol string
	Shares float64
	Value  float64
	Price  float64
}

// snapshot is a refreshed portfolio with aligned close series per symbol.
type snapshot struct {
	portfolio *domain.Portfolio
	positions []position
	// closes[i] is aligned with positions[i]; every series has the same
	// length and timestamps.
	closes [][]float64
	// axis is the longest fetched series; it supplies the timestamps.
	axis []domain.HistoryPoint
}

func (s *snapshot) totalValue() float64 {
	total := 0.0
	for _, p := range s.positions {
		total += p.Value
	}
	return total
}

// values returns the portfolio value at every history point.
func (s *snapshot) values() []float64 {
	out := make([]float64, len(s.axis))
	for i := range out {
		for j, p := range s.positions {
			out[i] += p.Shares * s.closes[j][i]
		}
	}
	return out
}

// load refreshes an owned portfolio and fetches its symbols' history.
// Symbols without history are held flat at their current price.
func (s *Service) load(ctx context.Context, id domain.Identity, portfolioID int64, period string) (*snapshot, error) {
	if _, err := market.ParsePeriod(period); err != nil {
		return nil, err
	}
	res, err := s.portfolios.Holdings(ctx, id, portfolioID)
	if err != nil {
		return nil, err
	}

	bySymbol := make(map[string]*position)
	for _, h := range res.Holdings {
		p, ok := bySymbol[h.Symbol]
		if !ok {
			p = &position{Symbol: h.Symbol, Price: h.CurrentPrice.InexactFloat64()}
			bySymbol[h.Symbol] = p
		}
		p.Shares += h.Shares.InexactFloat64()
		p.Value += h.TotalValue.InexactFloat64()
	}
	positions := make([]position, 0, len(bySymbol))
	for _, p := range bySymbol {
		positions = append(positions, *p)
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Symbol < positions[j].Symbol })

	snap := &snapshot{portfolio: res.Portfolio, positions: positions, closes: make([][]float64, len(positions))}
	if len(positions) == 0 {
		return snap, nil
	}

	series := make([][]domain.HistoryPoint, len(positions))
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(8)
	for i, p := range positions {
		g.Go(func() error {
			points, err := s.history.History(ctx, p.Symbol, period)
			if err != nil {
				s.log.Warn().Err(err).Str("symbol", p.Symbol).Msg("History unavailable, holding price flat")
				return nil
			}
			mu.Lock()
			series[i] = points
			if len(points) > len(snap.axis) {
				snap.axis = points
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	n := len(snap.axis)
	for i, p := range positions {
		closes := make([]float64, n)
		pts := series[i]
		for k := range closes {
			// Right-align shorter series; pad the front with their first close.
			switch {
			case len(pts) == 0:
				closes[k] = p.Price
			case k < n-len(pts):
				closes[k] = pts[0].Close
			default:
				closes[k] = pts[k-(n-len(pts))].Close
			}
		}
		snap.closes[i] = closes
	}
	return snap, nil
}

// Performance returns the portfolio value over period. The last point is
// the stored portfolio value.
func (s *Service) Performance(ctx context.Context, id domain.Identity, portfolioID int64, period string) ([]domain.PerformancePoint, error) {
	snap, err := s.load(ctx, id, portfolioID, period)
	if err != nil {
		return nil, err
	}
	values := snap.values()
	out := make([]domain.PerformancePoint, len(values))
	for i, v := range values {
		out[i] = domain.PerformancePoint{
			Timestamp: snap.axis[i].Timestamp,
			Value:     decimal.NewFromFloat(v).Round(2),
		}
	}
	if len(out) > 0 {
		out[len(out)-1].Value = snap.portfolio.TotalValue
	}
	return out, nil
}
