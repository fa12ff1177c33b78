package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
	"github.com/ANGELCJR/stock-vision-sub000/pkg/formulas"
)

// Indicators are the latest technical indicator values over a history
// window. Fields are nil when the window is too short.
type Indicators struct {
	Symbol    string                   `json:"symbol"`
	Period    string                   `json:"period"`
	Price     float64                  `json:"price"`
	SMA20     *float64                 `json:"sma20"`
	EMA20     *float64                 `json:"ema20"`
	RSI14     *float64                 `json:"rsi14"`
	Bollinger *formulas.BollingerBands `json:"bollinger"`
}

// MaxStreamSymbols caps the symbols one quote stream may follow.
const MaxStreamSymbols = 20

// Service answers market data queries.
type Service struct {
	quotes   domain.QuoteProvider
	universe *Universe
	now      func() time.Time
	log      zerolog.Logger
}

// NewService creates a new market service
func NewService(quotes domain.QuoteProvider, universe *Universe, log zerolog.Logger) *Service {
	return &Service{
		quotes:   quotes,
		universe: universe,
		now:      time.Now,
		log:      log.With().Str("service", "market").Logger(),
	}
}

// Universe returns the searchable universe.
func (s *Service) Universe() *Universe {
	return s.universe
}

// Quote returns the current quote for symbol.
func (s *Service) Quote(ctx context.Context, symbol string) (*domain.Quote, error) {
	symbol, err := cleanSymbol(symbol)
	if err != nil {
		return nil, err
	}
	return s.quotes.GetQuote(ctx, symbol)
}

// Quotes fetches several quotes in parallel. Failed symbols are logged and
// left out of the result, which keeps the request order.
func (s *Service) Quotes(ctx context.Context, symbols []string) []domain.Quote {
	results := make([]*domain.Quote, len(symbols))
	var g errgroup.Group
	g.SetLimit(8)
	for i, symbol := range symbols {
		g.Go(func() error {
			q, err := s.quotes.GetQuote(ctx, symbol)
			if err != nil {
				s.log.Warn().Err(err).Str("symbol", symbol).Msg("Quote fetch failed")
				return nil
			}
			results[i] = q
			return nil
		})
	}
	_ = g.Wait()

	out := make([]domain.Quote, 0, len(results))
	for _, q := range results {
		if q != nil {
			out = append(out, *q)
		}
	}
	return out
}

// Indices returns quotes for the market index funds.
func (s *Service) Indices(ctx context.Context) []domain.Quote {
	return s.Quotes(ctx, IndexSymbols)
}

// History returns the synthetic price series of symbol over periodName.
func (s *Service) History(ctx context.Context, symbol, periodName string) ([]domain.HistoryPoint, error) {
	period, err := ParsePeriod(periodName)
	if err != nil {
		return nil, err
	}
	symbol, err = cleanSymbol(symbol)
	if err != nil {
		return nil, err
	}
	q, err := s.quotes.GetQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return GenerateHistory(symbol, q.Price.InexactFloat64(), period, s.now()), nil
}

// Indicators computes SMA(20), EMA(20), RSI(14) and Bollinger(20, 2) over
// the closes of the requested history window.
func (s *Service) Indicators(ctx context.Context, symbol, periodName string) (*Indicators, error) {
	if strings.TrimSpace(periodName) == "" {
		periodName = "3M"
	}
	points, err := s.History(ctx, symbol, periodName)
	if err != nil {
		return nil, err
	}
	closes := Closes(points)
	period, _ := ParsePeriod(periodName)
	return &Indicators{
		Symbol:    strings.ToUpper(strings.TrimSpace(symbol)),
		Period:    period.Name,
		Price:     closes[len(closes)-1],
		SMA20:     formulas.SMA(closes, 20),
		EMA20:     formulas.EMA(closes, 20),
		RSI14:     formulas.RSI(closes, 14),
		Bollinger: formulas.Bollinger(closes, 20, 2),
	}, nil
}

// Search matches query against the universe.
func (s *Service) Search(query string) []domain.SearchResult {
	return s.universe.Search(query)
}

// ParseStreamSymbols validates a comma separated symbol list for the
// quote stream.
func ParseStreamSymbols(raw string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		symbol := strings.ToUpper(strings.TrimSpace(part))
		if symbol == "" || seen[symbol] {
			continue
		}
		seen[symbol] = true
		out = append(out, symbol)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: symbols is required", domain.ErrInvalidInput)
	}
	if len(out) > MaxStreamSymbols {
		return nil, fmt.Errorf("%w: at most %d symbols per stream", domain.ErrInvalidInput, MaxStreamSymbols)
	}
	return out, nil
}

func cleanSymbol(raw string) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(raw))
	if symbol == "" {
		return "", fmt.Errorf("%w: symbol is required", domain.ErrInvalidInput)
	}
	return symbol, nil
}
