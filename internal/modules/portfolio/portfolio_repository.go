// Package portfolio provides portfolio and holding persistence, the holdings
// valuation pipeline, and the portfolio service used by the HTTP handlers.
package portfolio

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ANGELCJR/stock-vision-sub000/internal/database"
	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
)

type portfolioRow struct {
	ID            int64           `db:"id"`
	UserID        string          `db:"user_id"`
	Name          string          `db:"name"`
	TotalValue    decimal.Decimal `db:"total_value"`
	TotalGainLoss decimal.Decimal `db:"total_gain_loss"`
	RiskScore     sql.NullFloat64 `db:"risk_score"`
	Version       int64           `db:"version"`
	CreatedAt     int64           `db:"created_at"`
	UpdatedAt     int64           `db:"updated_at"`
}

func (r portfolioRow) toDomain() domain.Portfolio {
	p := domain.Portfolio{
		ID:            r.ID,
		UserID:        r.UserID,
		Name:          r.Name,
		TotalValue:    r.TotalValue,
		TotalGainLoss: r.TotalGainLoss,
		Version:       r.Version,
		CreatedAt:     time.UnixMilli(r.CreatedAt).UTC(),
		UpdatedAt:     time.UnixMilli(r.UpdatedAt).UTC(),
	}
	if r.RiskScore.Valid {
		score := r.RiskScore.Float64
		p.RiskScore = &score
	}
	return p
}

const portfolioColumns = `id, user_id, name, total_value, total_gain_loss, risk_score, version, created_at, updated_at`

// PortfolioRepository is the SQL domain.PortfolioStore
type PortfolioRepository struct {
	db  *sqlx.DB
	now func() time.Time
	log zerolog.Logger
}

var _ domain.PortfolioStore = (*PortfolioRepository)(nil)

// NewPortfolioRepository creates a new portfolio repository
func NewPortfolioRepository(db *sqlx.DB, log zerolog.Logger) *PortfolioRepository {
	return &PortfolioRepository{
		db:  db,
		now: time.Now,
		log: log.With().Str("repo", "portfolio").Logger(),
	}
}

// Create inserts p and fills its ID, version and timestamps.
func (r *PortfolioRepository) Create(ctx context.Context, p *domain.Portfolio) error {
	now := r.now().UTC().Truncate(time.Millisecond)
	query := r.db.Rebind(`INSERT INTO portfolios (user_id, name, total_value, total_gain_loss, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, ?) RETURNING id`)

	var id int64
	err := r.db.QueryRowxContext(ctx, query,
		p.UserID, p.Name, p.TotalValue, p.TotalGainLoss, now.UnixMilli(), now.UnixMilli(),
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to insert portfolio: %w", err)
	}

	p.ID = id
	p.Version = 0
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

// GetByID returns a portfolio or domain.ErrNotFound.
func (r *PortfolioRepository) GetByID(ctx context.Context, id int64) (*domain.Portfolio, error) {
	var row portfolioRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT `+portfolioColumns+` FROM portfolios WHERE id = ?`), id)
	if database.IsNoRows(err) {
		return nil, fmt.Errorf("portfolio %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio %d: %w", id, err)
	}
	p := row.toDomain()
	return &p, nil
}

// ListByUser returns a user's portfolios ordered by id.
func (r *PortfolioRepository) ListByUser(ctx context.Context, userID string) ([]domain.Portfolio, error) {
	return r.list(ctx, `SELECT `+portfolioColumns+` FROM portfolios WHERE user_id = ? ORDER BY id`, userID)
}

// ListAll returns every portfolio ordered by id.
func (r *PortfolioRepository) ListAll(ctx context.Context) ([]domain.Portfolio, error) {
	return r.list(ctx, `SELECT `+portfolioColumns+` FROM portfolios ORDER BY id`)
}

func (r *PortfolioRepository) list(ctx context.Context, query string, args ...interface{}) ([]domain.Portfolio, error) {
	var rows []portfolioRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	out := make([]domain.Portfolio, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// UpdateTotals performs the compare-and-swap write of aggregate totals.
func (r *PortfolioRepository) UpdateTotals(ctx context.Context, id, expectedVersion int64, totalValue, totalGainLoss decimal.Decimal) error {
	query := r.db.Rebind(`UPDATE portfolios
		SET total_value = ?, total_gain_loss = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`)

	res, err := r.db.ExecContext(ctx, query,
		totalValue, totalGainLoss, r.now().UTC().UnixMilli(), id, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update portfolio %d totals: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists int
	if err := r.db.GetContext(ctx, &exists, r.db.Rebind(`SELECT COUNT(*) FROM portfolios WHERE id = ?`), id); err != nil {
		return fmt.Errorf("failed to check portfolio %d: %w", id, err)
	}
	if exists == 0 {
		return fmt.Errorf("portfolio %d: %w", id, domain.ErrNotFound)
	}
	return fmt.Errorf("portfolio %d version moved past %d: %w", id, expectedVersion, domain.ErrConflict)
}

// UpdateRiskScore stores the latest computed risk score.
func (r *PortfolioRepository) UpdateRiskScore(ctx context.Context, id int64, score float64) error {
	res, err := r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE portfolios SET risk_score = ?, updated_at = ? WHERE id = ?`),
		score, r.now().UTC().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to update portfolio %d risk score: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("portfolio %d: %w", id, domain.ErrNotFound)
	}
	return nil
}
