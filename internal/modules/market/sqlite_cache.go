package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ANGELCJR/stock-vision-sub000/internal/database"
	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
)

// SQLiteQuoteCache stores msgpack-encoded quotes in the quote_cache table.
// The statements are portable, so it also runs against the postgres schema.
type SQLiteQuoteCache struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ domain.QuoteCache = (*SQLiteQuoteCache)(nil)

// NewSQLiteQuoteCache creates a table-backed quote cache
func NewSQLiteQuoteCache(db *sqlx.DB) *SQLiteQuoteCache {
	return &SQLiteQuoteCache{db: db, now: time.Now}
}

// Get returns an unexpired cached quote.
func (c *SQLiteQuoteCache) Get(ctx context.Context, symbol string) (*domain.Quote, bool, error) {
	var row struct {
		Payload   []byte `db:"payload"`
		ExpiresAt int64  `db:"expires_at"`
	}
	err := c.db.GetContext(ctx, &row,
		c.db.Rebind(`SELECT payload, expires_at FROM quote_cache WHERE symbol = ?`),
		strings.ToUpper(symbol))
	if database.IsNoRows(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read quote cache: %w", err)
	}
	if row.ExpiresAt <= c.now().UnixMilli() {
		return nil, false, nil
	}

	q, err := decodeQuote(row.Payload)
	if err != nil {
		return nil, false, err
	}
	return q, true, nil
}

// Set stores q until ttl elapses.
func (c *SQLiteQuoteCache) Set(ctx context.Context, q *domain.Quote, ttl time.Duration) error {
	payload, err := encodeQuote(q)
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, c.db.Rebind(`INSERT INTO quote_cache (symbol, payload, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT (symbol) DO UPDATE SET payload = excluded.payload, expires_at = excluded.expires_at`),
		q.Symbol, payload, c.now().Add(ttl).UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to write quote cache for %s: %w", q.Symbol, err)
	}
	return nil
}

// Purge deletes expired rows.
func (c *SQLiteQuoteCache) Purge(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, c.db.Rebind(`DELETE FROM quote_cache WHERE expires_at <= ?`), c.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to purge quote cache: %w", err)
	}
	return res.RowsAffected()
}
