package portfolio

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
)

var symbolPattern = regexp.MustCompile(`^[A-Z][A-Z0-9.\-]{0,9}$`)

const maxNameLength = 200

// SymbolDirectory resolves display names for symbols.
// Defined here to avoid an import cycle with the market package.
type SymbolDirectory interface {
	Lookup(symbol string) (domain.Security, bool)
}

// HoldingInput is the body of a create-holding request.
type HoldingInput struct {
	Symbol   string          `json:"symbol"`
	Name     string          `json:"name"`
	Shares   decimal.Decimal `json:"shares"`
	AvgPrice decimal.Decimal `json:"avgPrice"`
}

// HoldingPatch is the body of an update-holding request. Nil fields are
// left unchanged.
type HoldingPatch struct {
	Name     *string          `json:"name,omitempty"`
	Shares   *decimal.Decimal `json:"shares,omitempty"`
	AvgPrice *decimal.Decimal `json:"avgPrice,omitempty"`
}

// Service coordinates portfolio reads and writes on behalf of an identity.
type Service struct {
	portfolios domain.PortfolioStore
	holdings   domain.HoldingStore
	quotes     domain.QuoteProvider
	directory  SymbolDirectory
	pipeline   *Pipeline
	aggregator *Aggregator
	log        zerolog.Logger
}

// NewService creates a new portfolio service
func NewService(
	portfolios domain.PortfolioStore,
	holdings domain.HoldingStore,
	quotes domain.QuoteProvider,
	directory SymbolDirectory,
	concurrency int,
	log zerolog.Logger,
) *Service {
	aggregator := NewAggregator(portfolios, holdings, log)
	return &Service{
		portfolios: portfolios,
		holdings:   holdings,
		quotes:     quotes,
		directory:  directory,
		pipeline:   NewPipeline(holdings, quotes, aggregator, concurrency, log),
		aggregator: aggregator,
		log:        log.With().Str("service", "portfolio").Logger(),
	}
}

// ListPortfolios returns the identity's portfolios.
func (s *Service) ListPortfolios(ctx context.Context, id domain.Identity) ([]domain.Portfolio, error) {
	return s.portfolios.ListByUser(ctx, id.UserID)
}

// GetPortfolio returns a portfolio owned by id. Portfolios owned by other
// users are reported as not found.
func (s *Service) GetPortfolio(ctx context.Context, id domain.Identity, portfolioID int64) (*domain.Portfolio, error) {
	p, err := s.portfolios.GetByID(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	if p.UserID != id.UserID {
		return nil, fmt.Errorf("portfolio %d: %w", portfolioID, domain.ErrNotFound)
	}
	return p, nil
}

// CreatePortfolio creates an empty portfolio for id.
func (s *Service) CreatePortfolio(ctx context.Context, id domain.Identity, name string) (*domain.Portfolio, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if len(name) > maxNameLength {
		return nil, fmt.Errorf("%w: name is too long", domain.ErrInvalidInput)
	}

	p := &domain.Portfolio{
		UserID:        id.UserID,
		Name:          name,
		TotalValue:    decimal.Zero,
		TotalGainLoss: decimal.Zero,
	}
	if err := s.portfolios.Create(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info().Int64("portfolio_id", p.ID).Str("user_id", id.UserID).Msg("Portfolio created")
	return p, nil
}

// Holdings runs the valuation pipeline for an owned portfolio and returns
// its holdings.
func (s *Service) Holdings(ctx context.Context, id domain.Identity, portfolioID int64) (*RefreshResult, error) {
	if _, err := s.GetPortfolio(ctx, id, portfolioID); err != nil {
		return nil, err
	}
	return s.pipeline.Refresh(ctx, portfolioID)
}

// Refresh runs the valuation pipeline without an ownership check. It is
// meant for background jobs and other modules.
func (s *Service) Refresh(ctx context.Context, portfolioID int64) (*RefreshResult, error) {
	return s.pipeline.Refresh(ctx, portfolioID)
}

// RefreshAll runs the pipeline for every portfolio. A failing portfolio is
// logged and skipped. It returns the number refreshed successfully.
func (s *Service) RefreshAll(ctx context.Context) (int, error) {
	portfolios, err := s.portfolios.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	refreshed := 0
	for _, p := range portfolios {
		if err := ctx.Err(); err != nil {
			return refreshed, err
		}
		if _, err := s.pipeline.Refresh(ctx, p.ID); err != nil {
			s.log.Error().Err(err).Int64("portfolio_id", p.ID).Msg("Portfolio refresh failed")
			continue
		}
		refreshed++
	}
	return refreshed, nil
}

// AddHolding validates input, prices it with a fresh quote, stores it and
// re-aggregates the portfolio. An unrecognized symbol fails with
// domain.ErrInvalidInput before anything is written. Once stored, the
// holding is returned even if aggregation fails.
func (s *Service) AddHolding(ctx context.Context, id domain.Identity, portfolioID int64, in HoldingInput) (*domain.Holding, error) {
	if _, err := s.GetPortfolio(ctx, id, portfolioID); err != nil {
		return nil, err
	}

	symbol, err := normalizeSymbol(in.Symbol)
	if err != nil {
		return nil, err
	}
	if err := validateAmounts(in.Shares, in.AvgPrice); err != nil {
		return nil, err
	}

	quote, err := s.quotes.GetQuote(ctx, symbol)
	if err != nil {
		if errors.Is(err, domain.ErrQuoteNotFound) {
			return nil, fmt.Errorf("%w: unrecognized symbol %s: %w", domain.ErrInvalidInput, symbol, err)
		}
		return nil, fmt.Errorf("quote for %s: %w", symbol, err)
	}

	name := strings.TrimSpace(in.Name)
	if name == "" && s.directory != nil {
		if sec, ok := s.directory.Lookup(symbol); ok {
			name = sec.Name
		}
	}
	if name == "" {
		name = symbol
	}
	if len(name) > maxNameLength {
		return nil, fmt.Errorf("%w: name is too long", domain.ErrInvalidInput)
	}

	h := &domain.Holding{
		PortfolioID: portfolioID,
		Symbol:      symbol,
		Name:        name,
		Shares:      in.Shares.Round(domain.SharePrecision),
		AvgPrice:    in.AvgPrice,
	}
	ApplyPrice(h, quote.Price)

	if err := s.holdings.Create(ctx, h); err != nil {
		return nil, err
	}
	s.reaggregate(ctx, portfolioID)

	s.log.Info().
		Int64("portfolio_id", portfolioID).
		Int64("holding_id", h.ID).
		Str("symbol", symbol).
		Msg("Holding added")
	return h, nil
}

// GetHolding returns a holding whose portfolio is owned by id.
func (s *Service) GetHolding(ctx context.Context, id domain.Identity, holdingID int64) (*domain.Holding, error) {
	h, err := s.holdings.GetByID(ctx, holdingID)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetPortfolio(ctx, id, h.PortfolioID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("holding %d: %w", holdingID, domain.ErrNotFound)
		}
		return nil, err
	}
	return h, nil
}

// UpdateHolding applies patch, revalues the holding with a fresh quote when
// one is available, and re-aggregates the portfolio.
func (s *Service) UpdateHolding(ctx context.Context, id domain.Identity, holdingID int64, patch HoldingPatch) (*domain.Holding, error) {
	h, err := s.GetHolding(ctx, id, holdingID)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" || len(name) > maxNameLength {
			return nil, fmt.Errorf("%w: name must be 1-%d characters", domain.ErrInvalidInput, maxNameLength)
		}
		h.Name = name
	}
	if patch.Shares != nil {
		h.Shares = patch.Shares.Round(domain.SharePrecision)
	}
	if patch.AvgPrice != nil {
		h.AvgPrice = *patch.AvgPrice
	}
	if err := validateAmounts(h.Shares, h.AvgPrice); err != nil {
		return nil, err
	}

	if quote, err := s.quotes.GetQuote(ctx, h.Symbol); err == nil {
		ApplyPrice(h, quote.Price)
	} else {
		s.log.Warn().Err(err).Str("symbol", h.Symbol).Msg("Quote unavailable, revaluing at stored price")
		Revalue(h)
	}

	if err := s.holdings.Update(ctx, h); err != nil {
		return nil, err
	}
	s.reaggregate(ctx, h.PortfolioID)
	return h, nil
}

// DeleteHolding removes a holding and re-aggregates its portfolio.
func (s *Service) DeleteHolding(ctx context.Context, id domain.Identity, holdingID int64) error {
	h, err := s.GetHolding(ctx, id, holdingID)
	if err != nil {
		return err
	}
	if err := s.holdings.Delete(ctx, holdingID); err != nil {
		return err
	}
	s.reaggregate(ctx, h.PortfolioID)
	s.log.Info().Int64("holding_id", holdingID).Int64("portfolio_id", h.PortfolioID).Msg("Holding deleted")
	return nil
}

// reaggregate updates portfolio totals after a committed holding write.
// A failure is logged, not returned; the next valuation pass corrects the
// totals.
func (s *Service) reaggregate(ctx context.Context, portfolioID int64) {
	if _, err := s.aggregator.Aggregate(ctx, portfolioID); err != nil {
		s.log.Warn().Err(err).Int64("portfolio_id", portfolioID).Msg("Portfolio totals not updated after holding change")
	}
}

func normalizeSymbol(raw string) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(raw))
	if symbol == "" {
		return "", fmt.Errorf("%w: symbol is required", domain.ErrInvalidInput)
	}
	if !symbolPattern.MatchString(symbol) {
		return "", fmt.Errorf("%w: malformed symbol %q", domain.ErrInvalidInput, raw)
	}
	return symbol, nil
}

func validateAmounts(shares, avgPrice decimal.Decimal) error {
	if !shares.Round(domain.SharePrecision).IsPositive() {
		return fmt.Errorf("%w: shares must be positive", domain.ErrInvalidInput)
	}
	if avgPrice.IsNegative() {
		return fmt.Errorf("%w: avgPrice must not be negative", domain.ErrInvalidInput)
	}
	return nil
}
