package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ANGELCJR/stock-vision-sub000/internal/config"
	"github.com/ANGELCJR/stock-vision-sub000/internal/database"
	"github.com/ANGELCJR/stock-vision-sub000/internal/memory"
)

// InitializeDatabase opens the configured backend and applies its schema.
// The memory driver gets an in-process store instead of a connection.
func InitializeDatabase(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{
		Config: cfg,
		log:    log.With().Str("component", "di").Logger(),
	}

	if cfg.Database.Driver == "memory" {
		container.Memory = memory.NewStore()
		container.log.Info().Msg("Using in-memory storage")
		return container, nil
	}

	db, err := OpenDatabase(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	container.DB = db

	container.log.Info().
		Str("driver", string(db.Driver())).
		Str("path", db.Path()).
		Msg("Database initialized")
	return container, nil
}

// OpenDatabase opens the SQL database named by cfg without migrating it.
func OpenDatabase(cfg *config.Config) (*database.DB, error) {
	var dbCfg database.Config
	switch cfg.Database.Driver {
	case "sqlite":
		dbCfg = database.Config{
			Driver:  database.DriverSQLite,
			Path:    cfg.Database.Path,
			Profile: database.ProfileDurable,
		}
	case "postgres":
		dbCfg = database.Config{
			Driver: database.DriverPostgres,
			DSN:    cfg.Database.DSN,
		}
	default:
		return nil, fmt.Errorf("driver %q has no sql database", cfg.Database.Driver)
	}

	db, err := database.New(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, nil
}
