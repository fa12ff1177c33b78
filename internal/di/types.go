/**
 * Package di provides dependency injection type definitions.
 *
 * The Container holds every long-lived dependency. It is built by Wire()
 * and handed to the HTTP server and the CLI commands.
 */
package di

import (
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ANGELCJR/stock-vision-sub000/internal/config"
	"github.com/ANGELCJR/stock-vision-sub000/internal/database"
	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
	"github.com/ANGELCJR/stock-vision-sub000/internal/memory"
	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/analytics"
	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/export"
	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/insights"
	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/market"
	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/news"
	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/portfolio"
	"github.com/ANGELCJR/stock-vision-sub000/internal/reliability"
	"github.com/ANGELCJR/stock-vision-sub000/internal/scheduler"
	"github.com/ANGELCJR/stock-vision-sub000/internal/seed"
)

// Container holds all dependencies for the application.
type Container struct {
	Config *config.Config

	// Storage. DB is nil for the memory driver, Memory is nil otherwise.
	DB     *database.DB
	Memory *memory.Store
	Redis  *redis.Client // set only for the redis quote cache

	// Repositories
	PortfolioStore domain.PortfolioStore
	HoldingStore   domain.HoldingStore
	NewsStore      domain.NewsStore
	InsightStore   domain.InsightStore

	// Market data
	Universe   *market.Universe
	Quotes     domain.QuoteProvider        // the provider every service uses, cached when configured
	QuoteCache *market.CachedQuoteProvider // nil when the cache backend is "none"

	// Services
	PortfolioService *portfolio.Service
	MarketService    *market.Service
	AnalyticsService *analytics.Service
	NewsService      *news.Service
	InsightsService  *insights.Service
	ExportService    *export.Service
	Seeder           *seed.Seeder
	BackupService    *reliability.BackupService

	Scheduler *scheduler.Scheduler

	log zerolog.Logger
}

// Close releases the storage connections. It is safe to call on a
// partially initialized container.
func (c *Container) Close() error {
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}
	var firstErr error
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			firstErr = err
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
