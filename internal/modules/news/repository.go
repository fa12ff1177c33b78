package news

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/ANGELCJR/stock-vision-sub000/internal/database"
	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
)

type articleRow struct {
	ID          string `db:"id"`
	Title       string `db:"title"`
	Summary     string `db:"summary"`
	Sentiment   string `db:"sentiment"`
	Symbols     string `db:"symbols"`
	Source      string `db:"source"`
	URL         string `db:"url"`
	PublishedAt int64  `db:"published_at"`
}

func (r articleRow) toDomain() domain.NewsArticle {
	return domain.NewsArticle{
		ID:          r.ID,
		Title:       r.Title,
		Summary:     r.Summary,
		Sentiment:   domain.Sentiment(r.Sentiment),
		Symbols:     decodeSymbols(r.Symbols),
		Source:      r.Source,
		URL:         r.URL,
		PublishedAt: time.UnixMilli(r.PublishedAt).UTC(),
	}
}

// Symbols are stored as ",AAPL,MSFT," so a LIKE '%,AAPL,%' test matches
// whole tickers only.
func encodeSymbols(symbols []string) string {
	if len(symbols) == 0 {
		return ","
	}
	upper := make([]string, len(symbols))
	for i, s := range symbols {
		upper[i] = strings.ToUpper(s)
	}
	return "," + strings.Join(upper, ",") + ","
}

func decodeSymbols(raw string) []string {
	out := []string{}
	for _, s := range strings.Split(raw, ",") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Repository is the SQL domain.NewsStore
type Repository struct {
	db  *sqlx.DB
	now func() time.Time
	log zerolog.Logger
}

var _ domain.NewsStore = (*Repository)(nil)

// NewRepository creates a new news repository
func NewRepository(db *sqlx.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		now: time.Now,
		log: log.With().Str("repo", "news").Logger(),
	}
}

// Append inserts articles in one transaction.
func (r *Repository) Append(ctx context.Context, articles []domain.NewsArticle) error {
	if len(articles) == 0 {
		return nil
	}
	created := r.now().UnixMilli()
	query := r.db.Rebind(`INSERT INTO news_articles
		(id, title, summary, sentiment, symbols, source, url, published_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	return database.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		for _, a := range articles {
			_, err := tx.ExecContext(ctx, query,
				a.ID, a.Title, a.Summary, string(a.Sentiment), encodeSymbols(a.Symbols),
				a.Source, a.URL, a.PublishedAt.UnixMilli(), created)
			if err != nil {
				return fmt.Errorf("failed to insert article %s: %w", a.ID, err)
			}
		}
		return nil
	})
}

// List returns matching articles newest first.
func (r *Repository) List(ctx context.Context, filter domain.NewsFilter) ([]domain.NewsArticle, error) {
	query := `SELECT id, title, summary, sentiment, symbols, source, url, published_at FROM news_articles`
	var args []interface{}
	if len(filter.Symbols) > 0 {
		clauses := make([]string, len(filter.Symbols))
		for i, s := range filter.Symbols {
			clauses[i] = "symbols LIKE ?"
			args = append(args, "%,"+strings.ToUpper(s)+",%")
		}
		query += " WHERE " + strings.Join(clauses, " OR ")
	}
	query += " ORDER BY published_at DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	var rows []articleRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list news: %w", err)
	}
	out := make([]domain.NewsArticle, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// Count returns the number of stored articles.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM news_articles`); err != nil {
		return 0, fmt.Errorf("failed to count news: %w", err)
	}
	return n, nil
}
