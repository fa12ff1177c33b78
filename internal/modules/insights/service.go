package insights

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/portfolio"
)

// Service generates and serves portfolio insights.
type Service struct {
	portfolios *portfolio.Service
	all        domain.PortfolioStore
	store      domain.InsightStore
	engine     *Engine
	directory  portfolio.SymbolDirectory
	now        func() time.Time
	log        zerolog.Logger
}

// NewService creates a new insights service
func NewService(
	portfolios *portfolio.Service,
	all domain.PortfolioStore,
	store domain.InsightStore,
	engine *Engine,
	directory portfolio.SymbolDirectory,
	log zerolog.Logger,
) *Service {
	return &Service{
		portfolios: portfolios,
		all:        all,
		store:      store,
		engine:     engine,
		directory:  directory,
		now:        time.Now,
		log:        log.With().Str("service", "insights").Logger(),
	}
}

// List returns the stored insights of an owned portfolio, generating a
// batch first if there is none.
func (s *Service) List(ctx context.Context, id domain.Identity, portfolioID int64) ([]domain.Insight, error) {
	if _, err := s.portfolios.GetPortfolio(ctx, id, portfolioID); err != nil {
		return nil, err
	}
	stored, err := s.store.ListByPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	if len(stored) > 0 {
		return stored, nil
	}
	return s.Generate(ctx, id, portfolioID)
}

// Generate refreshes valuations, evaluates the rules and replaces the
// portfolio's insights with the new batch.
func (s *Service) Generate(ctx context.Context, id domain.Identity, portfolioID int64) ([]domain.Insight, error) {
	res, err := s.portfolios.Holdings(ctx, id, portfolioID)
	if err != nil {
		return nil, err
	}
	return s.generate(ctx, res)
}

// GenerateAll regenerates insights for every portfolio. Failures are logged
// and skipped; it returns how many portfolios were processed.
func (s *Service) GenerateAll(ctx context.Context) (int, error) {
	all, err := s.all.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	done := 0
	for _, p := range all {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		res, err := s.portfolios.Refresh(ctx, p.ID)
		if err == nil {
			_, err = s.generate(ctx, res)
		}
		if err != nil {
			s.log.Error().Err(err).Int64("portfolio_id", p.ID).Msg("Insight generation failed")
			continue
		}
		done++
	}
	return done, nil
}

func (s *Service) generate(ctx context.Context, res *portfolio.RefreshResult) ([]domain.Insight, error) {
	facts := BuildFacts(res.Portfolio, res.Holdings, s.directory)
	batch, err := s.engine.Evaluate(facts)
	if err != nil {
		return nil, err
	}

	batchID := uuid.NewString()
	now := s.now().UTC().Truncate(time.Millisecond)
	for i := range batch {
		batch[i].BatchID = batchID
		batch[i].PortfolioID = res.Portfolio.ID
		batch[i].CreatedAt = now
	}
	if err := s.store.Replace(ctx, res.Portfolio.ID, batch); err != nil {
		return nil, err
	}

	s.log.Debug().
		Int64("portfolio_id", res.Portfolio.ID).
		Str("batch_id", batchID).
		Int("insights", len(batch)).
		Msg("Insights generated")
	return s.store.ListByPortfolio(ctx, res.Portfolio.ID)
}
