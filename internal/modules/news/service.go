package news

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
)

const (
	// DefaultLimit is the page size when none is requested.
	DefaultLimit = 20
	// MaxLimit caps the page size.
	MaxLimit = 100
	// DefaultBatchSize is the number of articles appended per refresh.
	DefaultBatchSize = 10
)

// Service lists and refreshes the news feed.
type Service struct {
	store      domain.NewsStore
	generator  *Generator
	portfolios domain.PortfolioStore
	holdings   domain.HoldingStore
	batchSize  int
	log        zerolog.Logger
}

// NewService creates a new news service. The portfolio and holding stores
// are used to bias generated headlines towards an identity's holdings.
func NewService(
	store domain.NewsStore,
	generator *Generator,
	portfolios domain.PortfolioStore,
	holdings domain.HoldingStore,
	batchSize int,
	log zerolog.Logger,
) *Service {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &Service{
		store:      store,
		generator:  generator,
		portfolios: portfolios,
		holdings:   holdings,
		batchSize:  batchSize,
		log:        log.With().Str("service", "news").Logger(),
	}
}

// List returns articles matching any of symbols, newest first. An empty
// feed is seeded with one batch first. limit 0 means DefaultLimit and
// values above MaxLimit are clamped.
func (s *Service) List(ctx context.Context, id domain.Identity, symbols []string, limit int) ([]domain.NewsArticle, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", domain.ErrInvalidInput)
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	n, err := s.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		if _, err := s.Refresh(ctx, id); err != nil {
			return nil, err
		}
	}

	normalized := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		if sym = strings.ToUpper(strings.TrimSpace(sym)); sym != "" {
			normalized = append(normalized, sym)
		}
	}
	return s.store.List(ctx, domain.NewsFilter{Symbols: normalized, Limit: limit})
}

// Refresh appends a generated batch. When id is set, its held symbols are
// favoured as subjects.
func (s *Service) Refresh(ctx context.Context, id domain.Identity) ([]domain.NewsArticle, error) {
	var focus []string
	if id.UserID != "" {
		held, err := s.heldSymbols(ctx, id)
		if err != nil {
			s.log.Warn().Err(err).Str("user_id", id.UserID).Msg("Could not resolve held symbols for news")
		}
		focus = held
	}

	batch := s.generator.Generate(s.batchSize, focus)
	if err := s.store.Append(ctx, batch); err != nil {
		return nil, err
	}
	s.log.Info().Int("articles", len(batch)).Msg("News batch appended")
	return batch, nil
}

func (s *Service) heldSymbols(ctx context.Context, id domain.Identity) ([]string, error) {
	portfolios, err := s.portfolios.ListByUser(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	for _, p := range portfolios {
		holdings, err := s.holdings.ListByPortfolio(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		for _, h := range holdings {
			seen[h.Symbol] = true
		}
	}
	out := make([]string, 0, len(seen))
	for sym := range seen {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out, nil
}
