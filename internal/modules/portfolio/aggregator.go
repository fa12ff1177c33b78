package portfolio

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
)

// DefaultAggregateAttempts bounds compare-and-swap retries per aggregation.
const DefaultAggregateAttempts = 3

// Aggregator re-sums a portfolio's holdings into its stored totals.
//
// The write is a compare-and-swap on the portfolio version. The version is
// read before the holdings, so any aggregation that commits after this
// read invalidates it and forces a re-read. The last successful write
// therefore always reflects holdings at least as new as every earlier write.
type Aggregator struct {
	portfolios  domain.PortfolioStore
	holdings    domain.HoldingStore
	maxAttempts int
	log         zerolog.Logger
}

// NewAggregator creates a new portfolio aggregator
func NewAggregator(portfolios domain.PortfolioStore, holdings domain.HoldingStore, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		portfolios:  portfolios,
		holdings:    holdings,
		maxAttempts: DefaultAggregateAttempts,
		log:         log.With().Str("component", "aggregator").Logger(),
	}
}

// Aggregate recomputes and persists the totals of one portfolio, returning
// the updated record. It fails with domain.ErrConflict if every attempt
// lost the race to a concurrent writer.
func (a *Aggregator) Aggregate(ctx context.Context, portfolioID int64) (*domain.Portfolio, error) {
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		p, err := a.portfolios.GetByID(ctx, portfolioID)
		if err != nil {
			return nil, err
		}

		holdings, err := a.holdings.ListByPortfolio(ctx, portfolioID)
		if err != nil {
			return nil, err
		}

		totalValue, totalGainLoss := Totals(holdings)
		err = a.portfolios.UpdateTotals(ctx, portfolioID, p.Version, totalValue, totalGainLoss)
		if err == nil {
			p.TotalValue = totalValue
			p.TotalGainLoss = totalGainLoss
			p.Version++
			return p, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return nil, err
		}

		a.log.Debug().
			Int64("portfolio_id", portfolioID).
			Int("attempt", attempt).
			Msg("Portfolio totals changed concurrently, retrying")
	}

	a.log.Warn().Int64("portfolio_id", portfolioID).Msg("Giving up on portfolio aggregation after repeated conflicts")
	return nil, fmt.Errorf("portfolio %d totals: %w", portfolioID, domain.ErrConflict)
}
