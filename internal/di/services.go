package di

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/ANGELCJR/stock-vision-sub000/internal/config"
	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/analytics"
	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/export"
	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/insights"
	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/market"
	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/news"
	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/portfolio"
	"github.com/ANGELCJR/stock-vision-sub000/internal/reliability"
	"github.com/ANGELCJR/stock-vision-sub000/internal/seed"
)

// InitializeServices builds the market data chain and every domain service.
// Order matters: portfolio feeds analytics, news, insights, export and seed.
func InitializeServices(ctx context.Context, container *Container, log zerolog.Logger) error {
	cfg := container.Config

	container.Universe = market.NewUniverse()
	if err := initializeQuotes(ctx, container, log); err != nil {
		return err
	}

	container.PortfolioService = portfolio.NewService(
		container.PortfolioStore,
		container.HoldingStore,
		container.Quotes,
		container.Universe,
		cfg.Pipeline.Concurrency,
		log,
	)

	container.MarketService = market.NewService(container.Quotes, container.Universe, log)

	container.AnalyticsService = analytics.NewService(
		container.PortfolioService,
		container.PortfolioStore,
		container.MarketService,
		log,
	)

	container.NewsService = news.NewService(
		container.NewsStore,
		news.NewGenerator(container.Universe, uint64(time.Now().UnixNano())),
		container.PortfolioStore,
		container.HoldingStore,
		cfg.News.BatchSize,
		log,
	)

	engine, err := insights.NewEngine(insights.DefaultRules)
	if err != nil {
		return fmt.Errorf("failed to build insight rules: %w", err)
	}
	container.InsightsService = insights.NewService(
		container.PortfolioService,
		container.PortfolioStore,
		container.InsightStore,
		engine,
		container.Universe,
		log,
	)

	container.ExportService = export.NewService(container.PortfolioService, log)
	container.Seeder = seed.NewSeeder(container.PortfolioService, seed.Default(), log)

	if err := initializeBackups(ctx, container, log); err != nil {
		return err
	}

	log.Debug().Msg("Services initialized")
	return nil
}

// initializeQuotes picks the quote source and wraps it in the configured
// cache.
func initializeQuotes(ctx context.Context, container *Container, log zerolog.Logger) error {
	qc := container.Config.Quotes

	var source domain.QuoteProvider
	switch qc.Source {
	case "mock":
		source = market.NewMockQuoteProvider(container.Universe)
	case "http":
		source = market.NewHTTPQuoteProvider(market.HTTPProviderConfig{
			BaseURL:           qc.BaseURL,
			PathTemplate:      qc.PathTemplate,
			APIKey:            qc.APIKey,
			Timeout:           qc.Timeout.D(),
			PricePath:         qc.PricePath,
			ChangePath:        qc.ChangePath,
			ChangePercentPath: qc.ChangePercentPath,
			VolumePath:        qc.VolumePath,
		}, log)
	default:
		return fmt.Errorf("unknown quote source %q", qc.Source)
	}

	var cache domain.QuoteCache
	switch qc.CacheBackend {
	case "", "none":
	case "sqlite":
		if container.DB == nil {
			return fmt.Errorf("sqlite quote cache needs a sql database")
		}
		cache = market.NewSQLiteQuoteCache(container.DB.Conn())
	case "redis":
		rdb, err := market.NewRedisClient(ctx, qc.RedisAddr, qc.RedisPassword, qc.RedisDB)
		if err != nil {
			return err
		}
		container.Redis = rdb
		cache = market.NewRedisQuoteCache(rdb)
	default:
		return fmt.Errorf("unknown quote cache backend %q", qc.CacheBackend)
	}

	if cache == nil {
		container.Quotes = source
	} else {
		container.QuoteCache = market.NewCachedQuoteProvider(source, cache, qc.CacheTTL.D(), log)
		container.Quotes = container.QuoteCache
	}

	log.Info().
		Str("source", qc.Source).
		Str("cache", qc.CacheBackend).
		Msg("Quote provider initialized")
	return nil
}

// initializeBackups always creates the backup service so callers can ask
// Enabled(); the object store is attached only when backups are on.
func initializeBackups(ctx context.Context, container *Container, log zerolog.Logger) error {
	bc := container.Config.Backup

	var store reliability.ObjectStore
	if bc.Enabled {
		s3, err := reliability.NewS3Store(ctx, backupStoreConfig(bc))
		if err != nil {
			return fmt.Errorf("failed to create backup store: %w", err)
		}
		store = s3
	}

	container.BackupService = reliability.NewBackupService(
		container.DB,
		store,
		bc.Prefix,
		bc.RetentionDays,
		filepath.Join(container.Config.Server.DataDir, "tmp"),
		log,
	)
	return nil
}

func backupStoreConfig(bc config.BackupConfig) reliability.S3Config {
	return reliability.S3Config{
		Bucket:          bc.Bucket,
		Region:          bc.Region,
		Endpoint:        bc.Endpoint,
		AccessKeyID:     bc.AccessKeyID,
		SecretAccessKey: bc.SecretAccessKey,
	}
}
