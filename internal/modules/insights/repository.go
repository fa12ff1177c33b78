package insights

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/ANGELCJR/stock-vision-sub000/internal/database"
	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
)

type insightRow struct {
	ID          int64   `db:"id"`
	PortfolioID int64   `db:"portfolio_id"`
	BatchID     string  `db:"batch_id"`
	Category    string  `db:"category"`
	Title       string  `db:"title"`
	Description string  `db:"description"`
	Confidence  float64 `db:"confidence"`
	CreatedAt   int64   `db:"created_at"`
}

func (r insightRow) toDomain() domain.Insight {
	return domain.Insight{
		ID:          r.ID,
		PortfolioID: r.PortfolioID,
		BatchID:     r.BatchID,
		Category:    domain.InsightCategory(r.Category),
		Title:       r.Title,
		Description: r.Description,
		Confidence:  r.Confidence,
		CreatedAt:   time.UnixMilli(r.CreatedAt).UTC(),
	}
}

// Repository is the SQL domain.InsightStore
type Repository struct {
	db  *sqlx.DB
	log zerolog.Logger
}

var _ domain.InsightStore = (*Repository)(nil)

// NewRepository creates a new insight repository
func NewRepository(db *sqlx.DB, log zerolog.Logger) *Repository {
	return &Repository{db: db, log: log.With().Str("repo", "insight").Logger()}
}

// Replace deletes the portfolio's insights and inserts the new batch in a
// single transaction.
func (r *Repository) Replace(ctx context.Context, portfolioID int64, insights []domain.Insight) error {
	insert := r.db.Rebind(`INSERT INTO insights
		(portfolio_id, batch_id, category, title, description, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)

	return database.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, r.db.Rebind(`DELETE FROM insights WHERE portfolio_id = ?`), portfolioID); err != nil {
			return fmt.Errorf("failed to clear insights for portfolio %d: %w", portfolioID, err)
		}
		for _, in := range insights {
			_, err := tx.ExecContext(ctx, insert,
				portfolioID, in.BatchID, string(in.Category), in.Title, in.Description,
				in.Confidence, in.CreatedAt.UnixMilli())
			if err != nil {
				return fmt.Errorf("failed to insert insight for portfolio %d: %w", portfolioID, err)
			}
		}
		return nil
	})
}

// ListByPortfolio returns the stored batch in insertion order.
func (r *Repository) ListByPortfolio(ctx context.Context, portfolioID int64) ([]domain.Insight, error) {
	var rows []insightRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`SELECT id, portfolio_id, batch_id, category, title,
		description, confidence, created_at FROM insights WHERE portfolio_id = ? ORDER BY id`), portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to list insights for portfolio %d: %w", portfolioID, err)
	}
	out := make([]domain.Insight, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
