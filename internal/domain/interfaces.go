package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// QuoteProvider supplies current market quotes.
// GetQuote returns ErrQuoteNotFound when the symbol is unknown to the source.
type QuoteProvider interface {
	GetQuote(ctx context.Context, symbol string) (*Quote, error)
}

// PortfolioStore persists portfolios.
// Implementations: database-backed PortfolioRepository and memory.Store.
type PortfolioStore interface {
	Create(ctx context.Context, p *Portfolio) error
	GetByID(ctx context.Context, id int64) (*Portfolio, error)
	ListByUser(ctx context.Context, userID string) ([]Portfolio, error)
	ListAll(ctx context.Context) ([]Portfolio, error)

	// UpdateTotals writes the aggregate totals only if the stored version
	// still equals expectedVersion, bumping the version on success.
	// Returns ErrConflict on a version mismatch and ErrNotFound if absent.
	UpdateTotals(ctx context.Context, id, expectedVersion int64, totalValue, totalGainLoss decimal.Decimal) error

	UpdateRiskScore(ctx context.Context, id int64, score float64) error
}

// HoldingStore persists holdings keyed by portfolio.
type HoldingStore interface {
	Create(ctx context.Context, h *Holding) error
	GetByID(ctx context.Context, id int64) (*Holding, error)
	ListByPortfolio(ctx context.Context, portfolioID int64) ([]Holding, error)
	Update(ctx context.Context, h *Holding) error
	// UpdateValuation writes only the price-derived fields of h, and only
	// while the stored shares and avgPrice still equal h's. It reports
	// false, without error, when the holding was edited or removed since h
	// was read.
	UpdateValuation(ctx context.Context, h *Holding) (bool, error)
	// Delete returns ErrNotFound when no holding has the id.
	Delete(ctx context.Context, id int64) error
}

// NewsStore is an append-only article log.
type NewsStore interface {
	Append(ctx context.Context, articles []NewsArticle) error
	List(ctx context.Context, filter NewsFilter) ([]NewsArticle, error)
	Count(ctx context.Context) (int, error)
}

// InsightStore keeps the latest insight batch per portfolio.
type InsightStore interface {
	// Replace atomically swaps the portfolio's insights for the given batch.
	Replace(ctx context.Context, portfolioID int64, insights []Insight) error
	ListByPortfolio(ctx context.Context, portfolioID int64) ([]Insight, error)
}

// QuoteCache is a TTL cache of quotes keyed by symbol.
type QuoteCache interface {
	Get(ctx context.Context, symbol string) (*Quote, bool, error)
	Set(ctx context.Context, q *Quote, ttl time.Duration) error
	// Purge drops expired entries and reports how many were removed.
	Purge(ctx context.Context) (int64, error)
}
