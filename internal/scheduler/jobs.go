package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
)

const defaultJobTimeout = 5 * time.Minute

// ValuationRefresher revalues every portfolio
type ValuationRefresher interface {
	RefreshAll(ctx context.Context) (int, error)
}

// NewsRefresher appends a batch of news
type NewsRefresher interface {
	Refresh(ctx context.Context, id domain.Identity) ([]domain.NewsArticle, error)
}

// InsightGenerator regenerates insights for every portfolio
type InsightGenerator interface {
	GenerateAll(ctx context.Context) (int, error)
}

// CachePurger drops expired cache entries
type CachePurger interface {
	Purge(ctx context.Context) (int64, error)
}

// RefreshValuationsJob runs the valuation pipeline for every portfolio
type RefreshValuationsJob struct {
	service ValuationRefresher
	timeout time.Duration
	log     zerolog.Logger
}

// NewRefreshValuationsJob creates a new RefreshValuationsJob
func NewRefreshValuationsJob(service ValuationRefresher, log zerolog.Logger) *RefreshValuationsJob {
	return &RefreshValuationsJob{
		service: service,
		timeout: defaultJobTimeout,
		log:     log.With().Str("job", "refresh_valuations").Logger(),
	}
}

// Name returns the job name
func (j *RefreshValuationsJob) Name() string {
	return "refresh_valuations"
}

// Run executes the refresh valuations job
func (j *RefreshValuationsJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	n, err := j.service.RefreshAll(ctx)
	if err != nil {
		return err
	}
	j.log.Info().Int("portfolios", n).Msg("Valuations refreshed")
	return nil
}

// AppendNewsJob appends a general news batch
type AppendNewsJob struct {
	service NewsRefresher
	timeout time.Duration
	log     zerolog.Logger
}

// NewAppendNewsJob creates a new AppendNewsJob
func NewAppendNewsJob(service NewsRefresher, log zerolog.Logger) *AppendNewsJob {
	return &AppendNewsJob{
		service: service,
		timeout: time.Minute,
		log:     log.With().Str("job", "append_news").Logger(),
	}
}

// Name returns the job name
func (j *AppendNewsJob) Name() string {
	return "append_news"
}

// Run executes the append news job
func (j *AppendNewsJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	_, err := j.service.Refresh(ctx, domain.Identity{})
	return err
}

// GenerateInsightsJob regenerates insights for every portfolio
type GenerateInsightsJob struct {
	service InsightGenerator
	timeout time.Duration
	log     zerolog.Logger
}

// NewGenerateInsightsJob creates a new GenerateInsightsJob
func NewGenerateInsightsJob(service InsightGenerator, log zerolog.Logger) *GenerateInsightsJob {
	return &GenerateInsightsJob{
		service: service,
		timeout: defaultJobTimeout,
		log:     log.With().Str("job", "generate_insights").Logger(),
	}
}

// Name returns the job name
func (j *GenerateInsightsJob) Name() string {
	return "generate_insights"
}

// Run executes the generate insights job
func (j *GenerateInsightsJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	n, err := j.service.GenerateAll(ctx)
	if err != nil {
		return err
	}
	j.log.Info().Int("portfolios", n).Msg("Insights regenerated")
	return nil
}

// PurgeQuoteCacheJob drops expired quote cache rows
type PurgeQuoteCacheJob struct {
	cache   CachePurger
	timeout time.Duration
	log     zerolog.Logger
}

// NewPurgeQuoteCacheJob creates a new PurgeQuoteCacheJob
func NewPurgeQuoteCacheJob(cache CachePurger, log zerolog.Logger) *PurgeQuoteCacheJob {
	return &PurgeQuoteCacheJob{
		cache:   cache,
		timeout: 30 * time.Second,
		log:     log.With().Str("job", "purge_quote_cache").Logger(),
	}
}

// Name returns the job name
func (j *PurgeQuoteCacheJob) Name() string {
	return "purge_quote_cache"
}

// Run executes the purge job
func (j *PurgeQuoteCacheJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	n, err := j.cache.Purge(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		j.log.Debug().Int64("purged", n).Msg("Expired quotes purged")
	}
	return nil
}
