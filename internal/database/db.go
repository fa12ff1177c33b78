// Package database provides database connection and initialization functionality.
package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Postgres driver registered as "pgx"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

//go:embed schemas/*.sql
var schemaFS embed.FS

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Driver names the SQL backend.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// DatabaseProfile tunes SQLite durability versus speed.
type DatabaseProfile string

const (
	// ProfileStandard - balanced, used for the main store
	ProfileStandard DatabaseProfile = "standard"
	// ProfileCache - maximum speed for ephemeral data
	ProfileCache DatabaseProfile = "cache"
	// ProfileDurable - fsync on every commit
	ProfileDurable DatabaseProfile = "durable"
)

// DB wraps an sqlx connection pool with driver-aware helpers.
type DB struct {
	conn    *sqlx.DB
	driver  Driver
	path    string
	profile DatabaseProfile
	name    string // Database name for logging
}

// Config holds database configuration
type Config struct {
	Driver  Driver
	Path    string // SQLite file path or file: URI
	DSN     string // Postgres connection string
	Profile DatabaseProfile
	Name    string
}

// New opens and pings a database connection.
func New(cfg Config) (*DB, error) {
	if cfg.Driver == "" {
		cfg.Driver = DriverSQLite
	}
	if cfg.Profile == "" {
		cfg.Profile = ProfileStandard
	}
	if cfg.Name == "" {
		cfg.Name = "stockvision"
	}

	var (
		conn *sqlx.DB
		err  error
	)
	switch cfg.Driver {
	case DriverSQLite:
		if !strings.HasPrefix(cfg.Path, "file:") {
			absPath, err := filepath.Abs(cfg.Path)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve database path to absolute: %w", err)
			}
			if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
			cfg.Path = absPath
		}
		conn, err = sqlx.Open("sqlite", buildConnectionString(cfg.Path, cfg.Profile))
	case DriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres driver requires a DSN")
		}
		conn, err = sqlx.Open("pgx", cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.Name, err)
	}

	configureConnectionPool(conn, cfg.Driver, cfg.Profile)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", cfg.Name, err)
	}

	return &DB{
		conn:    conn,
		driver:  cfg.Driver,
		path:    cfg.Path,
		profile: cfg.Profile,
		name:    cfg.Name,
	}, nil
}

// buildConnectionString creates SQLite connection string with profile-specific PRAGMAs
func buildConnectionString(path string, profile DatabaseProfile) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	connStr := path + sep + "_pragma=journal_mode(WAL)"

	switch profile {
	case ProfileDurable:
		connStr += "&_pragma=synchronous(FULL)"
	case ProfileCache:
		connStr += "&_pragma=synchronous(OFF)"
		connStr += "&_pragma=temp_store(MEMORY)"
	default:
		connStr += "&_pragma=synchronous(NORMAL)"
		connStr += "&_pragma=temp_store(MEMORY)"
	}

	connStr += "&_pragma=foreign_keys(1)"
	connStr += "&_pragma=busy_timeout(5000)"
	connStr += "&_pragma=cache_size(-16000)"

	return connStr
}

// configureConnectionPool sets up the pool for a long-running server.
func configureConnectionPool(conn *sqlx.DB, driver Driver, profile DatabaseProfile) {
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(time.Hour)
	conn.SetConnMaxIdleTime(15 * time.Minute)

	// SQLite has a single writer; a small pool avoids lock churn.
	if driver == DriverSQLite {
		conn.SetMaxOpenConns(8)
		if profile == ProfileCache {
			conn.SetMaxOpenConns(4)
			conn.SetMaxIdleConns(2)
		}
	}
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying sqlx handle used by repositories.
func (db *DB) Conn() *sqlx.DB {
	return db.conn
}

// Driver returns the SQL backend in use.
func (db *DB) Driver() Driver {
	return db.driver
}

// Name returns the database name for logging
func (db *DB) Name() string {
	return db.name
}

// Path returns the SQLite file path (empty for Postgres).
func (db *DB) Path() string {
	return db.path
}

// Rebind converts ? placeholders to the driver's bind style.
func (db *DB) Rebind(query string) string {
	return db.conn.Rebind(query)
}

// SchemaStatements returns the embedded DDL for driver, one statement per
// element.
func SchemaStatements(driver Driver) ([]string, error) {
	schemaFile := "schemas/sqlite.sql"
	if driver == DriverPostgres {
		schemaFile = "schemas/postgres.sql"
	}
	content, err := schemaFS.ReadFile(schemaFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema %s: %w", schemaFile, err)
	}
	return splitStatements(string(content)), nil
}

// Migrate applies the embedded schema for the active driver. Every statement
// is idempotent (CREATE ... IF NOT EXISTS), so Migrate may run on each start.
func (db *DB) Migrate() error {
	stmts, err := SchemaStatements(db.driver)
	if err != nil {
		return err
	}

	return WithTransaction(context.Background(), db.conn, func(tx *sqlx.Tx) error {
		for _, stmt := range stmts {
			if _, err := tx.Exec(stmt); err != nil {
				return fmt.Errorf("failed to migrate %s: %w", db.name, err)
			}
		}
		return nil
	})
}

// splitStatements splits a schema file on semicolons, dropping comments.
func splitStatements(content string) []string {
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		lines = append(lines, line)
	}

	var stmts []string
	for _, stmt := range strings.Split(strings.Join(lines, "\n"), ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}

// WithTransaction executes fn within a database transaction.
// It handles begin, commit, rollback, panic recovery, and error wrapping.
func WithTransaction(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) (err error) {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			err = fmt.Errorf("panic in transaction: %v", p)
		} else if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				err = fmt.Errorf("transaction failed: %w (rollback also failed: %v)", err, rollbackErr)
			} else {
				err = fmt.Errorf("transaction failed: %w", err)
			}
		} else if commitErr := tx.Commit(); commitErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", commitErr)
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck pings the database and, for SQLite, runs a quick integrity check.
func (db *DB) HealthCheck(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed for %s: %w", db.name, err)
	}
	if db.driver != DriverSQLite {
		return nil
	}

	var result string
	if err := db.conn.QueryRowContext(ctx, "PRAGMA quick_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check query failed for %s: %w", db.name, err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed for %s: %s", db.name, result)
	}
	return nil
}

// Snapshot writes a consistent copy of a SQLite database to dest using
// VACUUM INTO. dest must not already exist.
func (db *DB) Snapshot(ctx context.Context, dest string) error {
	if db.driver != DriverSQLite {
		return fmt.Errorf("snapshot is only supported for sqlite, not %s", db.driver)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	if _, err := db.conn.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return fmt.Errorf("vacuum into %s failed: %w", dest, err)
	}
	return nil
}

// Stats returns database statistics
type Stats struct {
	Driver        Driver `json:"driver"`
	SizeBytes     int64  `json:"sizeBytes"`
	WALSizeBytes  int64  `json:"walSizeBytes"`
	OpenConns     int    `json:"openConnections"`
	InUse         int    `json:"inUse"`
	WaitCount     int64  `json:"waitCount"`
	PageCount     int64  `json:"pageCount,omitempty"`
	FreelistCount int64  `json:"freelistCount,omitempty"`
}

// GetStats retrieves pool and file statistics.
func (db *DB) GetStats(ctx context.Context) (*Stats, error) {
	pool := db.conn.Stats()
	stats := &Stats{
		Driver:    db.driver,
		OpenConns: pool.OpenConnections,
		InUse:     pool.InUse,
		WaitCount: pool.WaitCount,
	}
	if db.driver != DriverSQLite {
		return stats, nil
	}

	if fileInfo, err := os.Stat(db.path); err == nil {
		stats.SizeBytes = fileInfo.Size()
	}
	if fileInfo, err := os.Stat(db.path + "-wal"); err == nil {
		stats.WALSizeBytes = fileInfo.Size()
	}
	if err := db.conn.QueryRowContext(ctx, "PRAGMA page_count").Scan(&stats.PageCount); err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}
	if err := db.conn.QueryRowContext(ctx, "PRAGMA freelist_count").Scan(&stats.FreelistCount); err != nil {
		return nil, fmt.Errorf("failed to get freelist count: %w", err)
	}
	return stats, nil
}

// IsNoRows reports whether err is sql.ErrNoRows.
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
