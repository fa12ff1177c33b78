package portfolio

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
)

// DefaultConcurrency is the quote fan-out used when none is configured.
const DefaultConcurrency = 8

// RefreshResult is the outcome of one valuation pass.
type RefreshResult struct {
	Portfolio *domain.Portfolio
	// Holdings holds every holding in the portfolio. Those listed in
	// Failed keep their previously stored valuation. When a holding was
	// edited during the pass this is re-read from the store.
	Holdings []domain.Holding
	// Failed lists symbols whose quote fetch or write failed.
	Failed []string
	// Updated counts holdings whose stored valuation changed.
	Updated int
}

// Pipeline runs the holdings valuation pass:
// fetch holdings, fetch quotes per unique symbol in parallel, revalue and
// persist each symbol's holdings, then aggregate portfolio totals.
//
// Per-symbol failures are logged and skipped; they never fail the pass.
// Cancelling ctx does: Refresh then returns ctx.Err() without aggregating.
// Holdings whose valuation is unchanged are not rewritten, so repeating a
// pass with the same quotes changes nothing. A holding whose shares or
// average price are edited while its quote is in flight keeps the edit;
// the pass skips it.
type Pipeline struct {
	holdings    domain.HoldingStore
	quotes      domain.QuoteProvider
	aggregator  *Aggregator
	concurrency int
	log         zerolog.Logger
}

// NewPipeline creates a valuation pipeline. concurrency bounds the number
// of symbols processed at once.
func NewPipeline(
	holdings domain.HoldingStore,
	quotes domain.QuoteProvider,
	aggregator *Aggregator,
	concurrency int,
	log zerolog.Logger,
) *Pipeline {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Pipeline{
		holdings:    holdings,
		quotes:      quotes,
		aggregator:  aggregator,
		concurrency: concurrency,
		log:         log.With().Str("component", "valuation_pipeline").Logger(),
	}
}

// Refresh revalues every holding of portfolioID against fresh quotes.
func (p *Pipeline) Refresh(ctx context.Context, portfolioID int64) (*RefreshResult, error) {
	holdings, err := p.holdings.ListByPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	bySymbol := make(map[string][]int)
	for i := range holdings {
		bySymbol[holdings[i].Symbol] = append(bySymbol[holdings[i].Symbol], i)
	}

	var (
		mu      sync.Mutex
		failed  []string
		updated int
		edited  bool
	)
	markFailed := func(symbol string) {
		mu.Lock()
		failed = append(failed, symbol)
		mu.Unlock()
	}

	// Each goroutine owns the indices of its symbol, so writes into
	// holdings never overlap.
	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for symbol, indices := range bySymbol {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			quote, err := p.quotes.GetQuote(ctx, symbol)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				p.log.Warn().
					Err(err).
					Str("symbol", symbol).
					Int64("portfolio_id", portfolioID).
					Msg("Quote fetch failed, keeping stored valuation")
				markFailed(symbol)
				return nil
			}

			symbolFailed := false
			for _, i := range indices {
				next := holdings[i]
				if !ApplyPrice(&next, quote.Price) {
					continue
				}
				written, err := p.holdings.UpdateValuation(ctx, &next)
				if err != nil {
					p.log.Error().
						Err(err).
						Str("symbol", symbol).
						Int64("holding_id", next.ID).
						Int64("portfolio_id", portfolioID).
						Msg("Failed to persist holding valuation")
					symbolFailed = true
					continue
				}
				if !written {
					p.log.Debug().
						Str("symbol", symbol).
						Int64("holding_id", next.ID).
						Msg("Holding changed during valuation, skipping")
					mu.Lock()
					edited = true
					mu.Unlock()
					continue
				}
				holdings[i] = next
				mu.Lock()
				updated++
				mu.Unlock()
			}
			if symbolFailed {
				markFailed(symbol)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if edited {
		if holdings, err = p.holdings.ListByPortfolio(ctx, portfolioID); err != nil {
			return nil, err
		}
	}

	portfolio, err := p.aggregator.Aggregate(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	sort.Strings(failed)
	p.log.Debug().
		Int64("portfolio_id", portfolioID).
		Int("holdings", len(holdings)).
		Int("symbols", len(bySymbol)).
		Int("updated", updated).
		Strs("failed", failed).
		Msg("Valuation pass complete")

	return &RefreshResult{
		Portfolio: portfolio,
		Holdings:  holdings,
		Failed:    failed,
		Updated:   updated,
	}, nil
}
