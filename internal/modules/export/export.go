// Package export renders refreshed portfolio holdings as CSV, XLSX and an
// HTML report.
package export

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/portfolio"
)

// Snapshot is the data every export format is rendered from.
type Snapshot struct {
	Portfolio   domain.Portfolio
	Holdings    []domain.Holding
	Stale       []string
	GeneratedAt time.Time
}

// CostBasis sums avgPrice × shares across holdings.
func (s *Snapshot) CostBasis() decimal.Decimal {
	total := decimal.Zero
	for i := range s.Holdings {
		total = total.Add(s.Holdings[i].CostBasis())
	}
	return total
}

// GainLossPercent is the portfolio return against its cost basis, or zero
// for an empty cost basis.
func (s *Snapshot) GainLossPercent() decimal.Decimal {
	cost := s.CostBasis()
	if !cost.IsPositive() {
		return decimal.Zero
	}
	return s.Portfolio.TotalGainLoss.Div(cost).Mul(decimal.NewFromInt(100)).Round(portfolio.PercentPrecision)
}

// Filename returns a download name such as "growth-portfolio-2026-10-16.csv".
func (s *Snapshot) Filename(ext string) string {
	return fmt.Sprintf("%s-%s.%s", slug(s.Portfolio.Name), s.GeneratedAt.Format("2006-01-02"), ext)
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slug(name string) string {
	s := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if s == "" {
		return "portfolio"
	}
	return s
}

// Service loads export snapshots on behalf of an identity.
type Service struct {
	portfolios *portfolio.Service
	now        func() time.Time
	log        zerolog.Logger
}

// NewService creates a new export service
func NewService(portfolios *portfolio.Service, log zerolog.Logger) *Service {
	return &Service{
		portfolios: portfolios,
		now:        time.Now,
		log:        log.With().Str("service", "export").Logger(),
	}
}

// Snapshot revalues an owned portfolio and captures it for rendering.
func (s *Service) Snapshot(ctx context.Context, id domain.Identity, portfolioID int64) (*Snapshot, error) {
	res, err := s.portfolios.Holdings(ctx, id, portfolioID)
	if err != nil {
		return nil, err
	}
	if len(res.Failed) > 0 {
		s.log.Warn().Int64("portfolio_id", portfolioID).Strs("stale", res.Failed).Msg("Exporting with stale prices")
	}
	return &Snapshot{
		Portfolio:   *res.Portfolio,
		Holdings:    res.Holdings,
		Stale:       res.Failed,
		GeneratedAt: s.now().UTC(),
	}, nil
}
