package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ANGELCJR/stock-vision-sub000/internal/database"
	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
)

type holdingRow struct {
	ID              int64           `db:"id"`
	PortfolioID     int64           `db:"portfolio_id"`
	Symbol          string          `db:"symbol"`
	Name            string          `db:"name"`
	Shares          decimal.Decimal `db:"shares"`
	AvgPrice        decimal.Decimal `db:"avg_price"`
	CurrentPrice    decimal.Decimal `db:"current_price"`
	TotalValue      decimal.Decimal `db:"total_value"`
	GainLoss        decimal.Decimal `db:"gain_loss"`
	GainLossPercent decimal.Decimal `db:"gain_loss_percent"`
	CreatedAt       int64           `db:"created_at"`
	UpdatedAt       int64           `db:"updated_at"`
}

func (r holdingRow) toDomain() domain.Holding {
	return domain.Holding{
		ID:              r.ID,
		PortfolioID:     r.PortfolioID,
		Symbol:          r.Symbol,
		Name:            r.Name,
		Shares:          r.Shares,
		AvgPrice:        r.AvgPrice,
		CurrentPrice:    r.CurrentPrice,
		TotalValue:      r.TotalValue,
		GainLoss:        r.GainLoss,
		GainLossPercent: r.GainLossPercent,
		CreatedAt:       time.UnixMilli(r.CreatedAt).UTC(),
		UpdatedAt:       time.UnixMilli(r.UpdatedAt).UTC(),
	}
}

const holdingColumns = `id, portfolio_id, symbol, name, shares, avg_price, current_price,
	total_value, gain_loss, gain_loss_percent, created_at, updated_at`

// HoldingRepository is the SQL domain.HoldingStore
type HoldingRepository struct {
	db  *sqlx.DB
	now func() time.Time
	log zerolog.Logger
}

var _ domain.HoldingStore = (*HoldingRepository)(nil)

// NewHoldingRepository creates a new holding repository
func NewHoldingRepository(db *sqlx.DB, log zerolog.Logger) *HoldingRepository {
	return &HoldingRepository{
		db:  db,
		now: time.Now,
		log: log.With().Str("repo", "holding").Logger(),
	}
}

// Create inserts h and fills its ID and timestamps.
func (r *HoldingRepository) Create(ctx context.Context, h *domain.Holding) error {
	now := r.now().UTC().Truncate(time.Millisecond)
	query := r.db.Rebind(`INSERT INTO holdings (portfolio_id, symbol, name, shares, avg_price, current_price,
		total_value, gain_loss, gain_loss_percent, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)

	var id int64
	err := r.db.QueryRowxContext(ctx, query,
		h.PortfolioID, h.Symbol, h.Name, h.Shares, h.AvgPrice, h.CurrentPrice,
		h.TotalValue, h.GainLoss, h.GainLossPercent, now.UnixMilli(), now.UnixMilli(),
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to insert holding %s: %w", h.Symbol, err)
	}

	h.ID = id
	h.CreatedAt = now
	h.UpdatedAt = now
	return nil
}

// GetByID returns a holding or domain.ErrNotFound.
func (r *HoldingRepository) GetByID(ctx context.Context, id int64) (*domain.Holding, error) {
	var row holdingRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT `+holdingColumns+` FROM holdings WHERE id = ?`), id)
	if database.IsNoRows(err) {
		return nil, fmt.Errorf("holding %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get holding %d: %w", id, err)
	}
	h := row.toDomain()
	return &h, nil
}

// ListByPortfolio returns the holdings of a portfolio ordered by id.
func (r *HoldingRepository) ListByPortfolio(ctx context.Context, portfolioID int64) ([]domain.Holding, error) {
	var rows []holdingRow
	err := r.db.SelectContext(ctx, &rows,
		r.db.Rebind(`SELECT `+holdingColumns+` FROM holdings WHERE portfolio_id = ? ORDER BY id`), portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings for portfolio %d: %w", portfolioID, err)
	}
	out := make([]domain.Holding, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// Update writes the mutable and derived fields of h.
func (r *HoldingRepository) Update(ctx context.Context, h *domain.Holding) error {
	now := r.now().UTC().Truncate(time.Millisecond)
	query := r.db.Rebind(`UPDATE holdings SET name = ?, shares = ?, avg_price = ?, current_price = ?,
		total_value = ?, gain_loss = ?, gain_loss_percent = ?, updated_at = ?
		WHERE id = ?`)

	res, err := r.db.ExecContext(ctx, query,
		h.Name, h.Shares, h.AvgPrice, h.CurrentPrice,
		h.TotalValue, h.GainLoss, h.GainLossPercent, now.UnixMilli(), h.ID)
	if err != nil {
		return fmt.Errorf("failed to update holding %d: %w", h.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("holding %d: %w", h.ID, domain.ErrNotFound)
	}
	h.UpdatedAt = now
	return nil
}

// UpdateValuation writes the derived fields of h guarded by its shares and
// avg_price, so a concurrent edit of either wins over a stale revaluation.
func (r *HoldingRepository) UpdateValuation(ctx context.Context, h *domain.Holding) (bool, error) {
	now := r.now().UTC().Truncate(time.Millisecond)
	query := r.db.Rebind(`UPDATE holdings SET current_price = ?, total_value = ?, gain_loss = ?,
		gain_loss_percent = ?, updated_at = ?
		WHERE id = ? AND shares = ? AND avg_price = ?`)

	res, err := r.db.ExecContext(ctx, query,
		h.CurrentPrice, h.TotalValue, h.GainLoss, h.GainLossPercent, now.UnixMilli(),
		h.ID, h.Shares, h.AvgPrice)
	if err != nil {
		return false, fmt.Errorf("failed to update valuation of holding %d: %w", h.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update valuation of holding %d: %w", h.ID, err)
	}
	if n == 0 {
		return false, nil
	}
	h.UpdatedAt = now
	return true, nil
}

// Delete removes a holding, returning domain.ErrNotFound when absent.
func (r *HoldingRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM holdings WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete holding %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("holding %d: %w", id, domain.ErrNotFound)
	}
	return nil
}
