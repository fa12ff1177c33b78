// Package config provides configuration management functionality.
//
// Values are resolved in layers: built-in defaults, then an optional TOML
// file (CONFIG_FILE or --config), then a .env file, then process
// environment variables. Later layers override earlier ones.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration that decodes from strings like "5s" in both
// TOML and environment variables.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration {
	return time.Duration(d)
}

// Config holds application configuration
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Auth      AuthConfig      `toml:"auth"`
	Quotes    QuotesConfig    `toml:"quotes"`
	Pipeline  PipelineConfig  `toml:"pipeline"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	News      NewsConfig      `toml:"news"`
	Backup    BackupConfig    `toml:"backup"`
}

// ServerConfig holds HTTP and process settings
type ServerConfig struct {
	Port           int      `toml:"port" env:"PORT"`
	LogLevel       string   `toml:"log_level" env:"LOG_LEVEL"`
	PrettyLogs     bool     `toml:"pretty_logs" env:"LOG_PRETTY"`
	DevMode        bool     `toml:"dev_mode" env:"DEV_MODE"`
	DataDir        string   `toml:"data_dir" env:"DATA_DIR"`
	AllowedOrigins []string `toml:"allowed_origins" env:"CORS_ORIGINS" envSeparator:","`
}

// DatabaseConfig selects the persistence backend
type DatabaseConfig struct {
	Driver string `toml:"driver" env:"DB_DRIVER"` // sqlite, postgres, memory
	Path   string `toml:"path" env:"DB_PATH"`     // sqlite file, defaults to <data_dir>/stockvision.db
	DSN    string `toml:"dsn" env:"DB_DSN"`       // postgres connection string
	Seed   bool   `toml:"seed" env:"DB_SEED"`     // seed the default portfolio on first start
}

// AuthConfig controls request identity
type AuthConfig struct {
	Required      bool   `toml:"required" env:"AUTH_REQUIRED"`
	JWTSecret     string `toml:"jwt_secret" env:"JWT_SECRET"`
	DefaultUserID string `toml:"default_user_id" env:"DEFAULT_USER_ID"`
}

// QuotesConfig selects and tunes the market data source
type QuotesConfig struct {
	Source            string   `toml:"source" env:"QUOTE_SOURCE"` // mock, http
	BaseURL           string   `toml:"base_url" env:"QUOTE_BASE_URL"`
	PathTemplate      string   `toml:"path_template" env:"QUOTE_PATH"`
	APIKey            string   `toml:"api_key" env:"QUOTE_API_KEY"`
	Timeout           Duration `toml:"timeout" env:"QUOTE_TIMEOUT"`
	PricePath         string   `toml:"price_path" env:"QUOTE_JSONPATH_PRICE"`
	ChangePath        string   `toml:"change_path" env:"QUOTE_JSONPATH_CHANGE"`
	ChangePercentPath string   `toml:"change_percent_path" env:"QUOTE_JSONPATH_CHANGE_PERCENT"`
	VolumePath        string   `toml:"volume_path" env:"QUOTE_JSONPATH_VOLUME"`
	CacheTTL          Duration `toml:"cache_ttl" env:"QUOTE_CACHE_TTL"`
	CacheBackend      string   `toml:"cache_backend" env:"QUOTE_CACHE_BACKEND"` // none, sqlite, redis
	RedisAddr         string   `toml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword     string   `toml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB           int      `toml:"redis_db" env:"REDIS_DB"`
}

// PipelineConfig bounds the valuation fan-out
type PipelineConfig struct {
	Concurrency int `toml:"concurrency" env:"PIPELINE_CONCURRENCY"`
}

// SchedulerConfig holds background job switches. Specs use the six-field
// cron format with seconds.
type SchedulerConfig struct {
	Enabled         bool   `toml:"enabled" env:"SCHEDULER_ENABLED"`
	RefreshSpec     string `toml:"refresh" env:"SCHEDULE_REFRESH"`
	NewsSpec        string `toml:"news" env:"SCHEDULE_NEWS"`
	InsightsSpec    string `toml:"insights" env:"SCHEDULE_INSIGHTS"`
	CachePurgeSpec  string `toml:"cache_purge" env:"SCHEDULE_CACHE_PURGE"`
	BackupSpec      string `toml:"backup" env:"SCHEDULE_BACKUP"`
	MaintenanceSpec string `toml:"maintenance" env:"SCHEDULE_MAINTENANCE"`
}

// NewsConfig tunes the news generator
type NewsConfig struct {
	BatchSize int `toml:"batch_size" env:"NEWS_BATCH_SIZE"`
}

// BackupConfig holds S3-compatible backup settings
type BackupConfig struct {
	Enabled         bool   `toml:"enabled" env:"BACKUP_ENABLED"`
	Bucket          string `toml:"bucket" env:"BACKUP_BUCKET"`
	Region          string `toml:"region" env:"BACKUP_REGION"`
	Endpoint        string `toml:"endpoint" env:"BACKUP_ENDPOINT"`
	AccessKeyID     string `toml:"access_key_id" env:"BACKUP_ACCESS_KEY_ID"`
	SecretAccessKey string `toml:"secret_access_key" env:"BACKUP_SECRET_ACCESS_KEY"`
	Prefix          string `toml:"prefix" env:"BACKUP_PREFIX"`
	RetentionDays   int    `toml:"retention_days" env:"BACKUP_RETENTION_DAYS"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			LogLevel:       "info",
			DataDir:        "./data",
			AllowedOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Seed:   true,
		},
		Auth: AuthConfig{
			DefaultUserID: "1",
		},
		Quotes: QuotesConfig{
			Source:            "mock",
			PathTemplate:      "/quote/{symbol}",
			Timeout:           Duration(5 * time.Second),
			PricePath:         "$.price",
			ChangePath:        "$.change",
			ChangePercentPath: "$.changePercent",
			VolumePath:        "$.volume",
			CacheTTL:          Duration(30 * time.Second),
			CacheBackend:      "sqlite",
			RedisAddr:         "localhost:6379",
		},
		Pipeline: PipelineConfig{
			Concurrency: 8,
		},
		Scheduler: SchedulerConfig{
			Enabled:         true,
			RefreshSpec:     "0 */5 * * * *",
			NewsSpec:        "0 */15 * * * *",
			InsightsSpec:    "0 0 * * * *",
			CachePurgeSpec:  "0 */10 * * * *",
			BackupSpec:      "0 30 2 * * *",
			MaintenanceSpec: "0 0 3 * * *",
		},
		News: NewsConfig{
			BatchSize: 10,
		},
		Backup: BackupConfig{
			Region:        "auto",
			Prefix:        "stock-vision/",
			RetentionDays: 14,
		},
	}
}

// Load resolves the configuration. path names an optional TOML file; when
// empty, CONFIG_FILE is consulted.
func Load(path string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) resolvePaths() error {
	absDataDir, err := filepath.Abs(c.Server.DataDir)
	if err != nil {
		return fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	c.Server.DataDir = absDataDir

	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = filepath.Join(absDataDir, "stockvision.db")
	}
	return nil
}

// Validate rejects unknown backends and incoherent combinations.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}

	switch c.Database.Driver {
	case "sqlite", "memory":
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("DB_DSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	if c.Auth.Required && c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when AUTH_REQUIRED is set")
	}
	if !c.Auth.Required && c.Auth.DefaultUserID == "" {
		return fmt.Errorf("DEFAULT_USER_ID is required when auth is optional")
	}

	switch c.Quotes.Source {
	case "mock":
	case "http":
		if c.Quotes.BaseURL == "" {
			return fmt.Errorf("QUOTE_BASE_URL is required for the http quote source")
		}
		if !strings.Contains(c.Quotes.PathTemplate, "{symbol}") {
			return fmt.Errorf("quote path template must contain {symbol}")
		}
	default:
		return fmt.Errorf("unknown quote source %q", c.Quotes.Source)
	}

	switch c.Quotes.CacheBackend {
	case "none", "":
	case "sqlite":
		if c.Database.Driver == "memory" {
			return fmt.Errorf("sqlite quote cache needs a sql database driver")
		}
	case "redis":
		if c.Quotes.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis quote cache")
		}
	default:
		return fmt.Errorf("unknown quote cache backend %q", c.Quotes.CacheBackend)
	}

	if c.Pipeline.Concurrency < 1 {
		return fmt.Errorf("pipeline concurrency must be at least 1")
	}

	if c.Backup.Enabled {
		if c.Database.Driver != "sqlite" {
			return fmt.Errorf("backups are only supported for the sqlite driver")
		}
		if c.Backup.Bucket == "" || c.Backup.AccessKeyID == "" || c.Backup.SecretAccessKey == "" {
			return fmt.Errorf("backup bucket and credentials are required when backups are enabled")
		}
	}

	return nil
}
