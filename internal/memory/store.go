// Package memory provides in-process implementations of the domain store
// interfaces. It backs DB_DRIVER=memory and most service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
)

// Store holds every table behind one mutex. Values are copied on the way in
// and out so callers never share memory with the store.
type Store struct {
	mu sync.RWMutex

	portfolios    map[int64]domain.Portfolio
	holdings      map[int64]domain.Holding
	news          []domain.NewsArticle
	insights      map[int64][]domain.Insight
	nextPortfolio int64
	nextHolding   int64
	nextInsight   int64

	now func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		portfolios: make(map[int64]domain.Portfolio),
		holdings:   make(map[int64]domain.Holding),
		insights:   make(map[int64][]domain.Insight),
		now:        time.Now,
	}
}

// Portfolios returns the domain.PortfolioStore view.
func (s *Store) Portfolios() *PortfolioStore { return &PortfolioStore{s: s} }

// Holdings returns the domain.HoldingStore view.
func (s *Store) Holdings() *HoldingStore { return &HoldingStore{s: s} }

// News returns the domain.NewsStore view.
func (s *Store) News() *NewsStore { return &NewsStore{s: s} }

// Insights returns the domain.InsightStore view.
func (s *Store) Insights() *InsightStore { return &InsightStore{s: s} }

var (
	_ domain.PortfolioStore = (*PortfolioStore)(nil)
	_ domain.HoldingStore   = (*HoldingStore)(nil)
	_ domain.NewsStore      = (*NewsStore)(nil)
	_ domain.InsightStore   = (*InsightStore)(nil)
)

// PortfolioStore is the in-memory domain.PortfolioStore
type PortfolioStore struct{ s *Store }

func (p *PortfolioStore) Create(_ context.Context, portfolio *domain.Portfolio) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	p.s.nextPortfolio++
	now := p.s.now().UTC().Truncate(time.Millisecond)
	portfolio.ID = p.s.nextPortfolio
	portfolio.Version = 0
	portfolio.CreatedAt = now
	portfolio.UpdatedAt = now
	p.s.portfolios[portfolio.ID] = *portfolio
	return nil
}

func (p *PortfolioStore) GetByID(_ context.Context, id int64) (*domain.Portfolio, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	portfolio, ok := p.s.portfolios[id]
	if !ok {
		return nil, fmt.Errorf("portfolio %d: %w", id, domain.ErrNotFound)
	}
	return &portfolio, nil
}

func (p *PortfolioStore) ListByUser(_ context.Context, userID string) ([]domain.Portfolio, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	out := make([]domain.Portfolio, 0)
	for _, portfolio := range p.s.portfolios {
		if portfolio.UserID == userID {
			out = append(out, portfolio)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (p *PortfolioStore) ListAll(_ context.Context) ([]domain.Portfolio, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	out := make([]domain.Portfolio, 0, len(p.s.portfolios))
	for _, portfolio := range p.s.portfolios {
		out = append(out, portfolio)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (p *PortfolioStore) UpdateTotals(_ context.Context, id, expectedVersion int64, totalValue, totalGainLoss decimal.Decimal) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	portfolio, ok := p.s.portfolios[id]
	if !ok {
		return fmt.Errorf("portfolio %d: %w", id, domain.ErrNotFound)
	}
	if portfolio.Version != expectedVersion {
		return fmt.Errorf("portfolio %d at version %d, expected %d: %w", id, portfolio.Version, expectedVersion, domain.ErrConflict)
	}
	portfolio.TotalValue = totalValue
	portfolio.TotalGainLoss = totalGainLoss
	portfolio.Version++
	portfolio.UpdatedAt = p.s.now().UTC().Truncate(time.Millisecond)
	p.s.portfolios[id] = portfolio
	return nil
}

func (p *PortfolioStore) UpdateRiskScore(_ context.Context, id int64, score float64) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	portfolio, ok := p.s.portfolios[id]
	if !ok {
		return fmt.Errorf("portfolio %d: %w", id, domain.ErrNotFound)
	}
	portfolio.RiskScore = &score
	portfolio.UpdatedAt = p.s.now().UTC().Truncate(time.Millisecond)
	p.s.portfolios[id] = portfolio
	return nil
}

// HoldingStore is the in-memory domain.HoldingStore
type HoldingStore struct{ s *Store }

func (h *HoldingStore) Create(_ context.Context, holding *domain.Holding) error {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()

	if _, ok := h.s.portfolios[holding.PortfolioID]; !ok {
		return fmt.Errorf("portfolio %d: %w", holding.PortfolioID, domain.ErrNotFound)
	}
	h.s.nextHolding++
	now := h.s.now().UTC().Truncate(time.Millisecond)
	holding.ID = h.s.nextHolding
	holding.CreatedAt = now
	holding.UpdatedAt = now
	h.s.holdings[holding.ID] = *holding
	return nil
}

func (h *HoldingStore) GetByID(_ context.Context, id int64) (*domain.Holding, error) {
	h.s.mu.RLock()
	defer h.s.mu.RUnlock()

	holding, ok := h.s.holdings[id]
	if !ok {
		return nil, fmt.Errorf("holding %d: %w", id, domain.ErrNotFound)
	}
	return &holding, nil
}

func (h *HoldingStore) ListByPortfolio(_ context.Context, portfolioID int64) ([]domain.Holding, error) {
	h.s.mu.RLock()
	defer h.s.mu.RUnlock()

	out := make([]domain.Holding, 0)
	for _, holding := range h.s.holdings {
		if holding.PortfolioID == portfolioID {
			out = append(out, holding)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (h *HoldingStore) Update(_ context.Context, holding *domain.Holding) error {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()

	existing, ok := h.s.holdings[holding.ID]
	if !ok {
		return fmt.Errorf("holding %d: %w", holding.ID, domain.ErrNotFound)
	}
	holding.PortfolioID = existing.PortfolioID
	holding.CreatedAt = existing.CreatedAt
	holding.UpdatedAt = h.s.now().UTC().Truncate(time.Millisecond)
	h.s.holdings[holding.ID] = *holding
	return nil
}

func (h *HoldingStore) UpdateValuation(_ context.Context, holding *domain.Holding) (bool, error) {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()

	existing, ok := h.s.holdings[holding.ID]
	if !ok || !existing.Shares.Equal(holding.Shares) || !existing.AvgPrice.Equal(holding.AvgPrice) {
		return false, nil
	}
	existing.CurrentPrice = holding.CurrentPrice
	existing.TotalValue = holding.TotalValue
	existing.GainLoss = holding.GainLoss
	existing.GainLossPercent = holding.GainLossPercent
	existing.UpdatedAt = h.s.now().UTC().Truncate(time.Millisecond)
	h.s.holdings[holding.ID] = existing
	holding.UpdatedAt = existing.UpdatedAt
	return true, nil
}

func (h *HoldingStore) Delete(_ context.Context, id int64) error {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()

	if _, ok := h.s.holdings[id]; !ok {
		return fmt.Errorf("holding %d: %w", id, domain.ErrNotFound)
	}
	delete(h.s.holdings, id)
	return nil
}

// NewsStore is the in-memory domain.NewsStore
type NewsStore struct{ s *Store }

func (n *NewsStore) Append(_ context.Context, articles []domain.NewsArticle) error {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()

	for _, a := range articles {
		a.Symbols = append([]string(nil), a.Symbols...)
		n.s.news = append(n.s.news, a)
	}
	return nil
}

func (n *NewsStore) List(_ context.Context, filter domain.NewsFilter) ([]domain.NewsArticle, error) {
	n.s.mu.RLock()
	defer n.s.mu.RUnlock()

	wanted := make(map[string]bool, len(filter.Symbols))
	for _, sym := range filter.Symbols {
		wanted[strings.ToUpper(sym)] = true
	}

	out := make([]domain.NewsArticle, 0)
	for _, a := range n.s.news {
		if len(wanted) > 0 && !anySymbol(a.Symbols, wanted) {
			continue
		}
		a.Symbols = append([]string(nil), a.Symbols...)
		out = append(out, a)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].PublishedAt.After(out[j].PublishedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (n *NewsStore) Count(_ context.Context) (int, error) {
	n.s.mu.RLock()
	defer n.s.mu.RUnlock()
	return len(n.s.news), nil
}

func anySymbol(symbols []string, wanted map[string]bool) bool {
	for _, s := range symbols {
		if wanted[strings.ToUpper(s)] {
			return true
		}
	}
	return false
}

// InsightStore is the in-memory domain.InsightStore
type InsightStore struct{ s *Store }

func (i *InsightStore) Replace(_ context.Context, portfolioID int64, insights []domain.Insight) error {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()

	batch := make([]domain.Insight, len(insights))
	for k, in := range insights {
		i.s.nextInsight++
		in.ID = i.s.nextInsight
		in.PortfolioID = portfolioID
		batch[k] = in
	}
	i.s.insights[portfolioID] = batch
	return nil
}

func (i *InsightStore) ListByPortfolio(_ context.Context, portfolioID int64) ([]domain.Insight, error) {
	i.s.mu.RLock()
	defer i.s.mu.RUnlock()

	out := make([]domain.Insight, len(i.s.insights[portfolioID]))
	copy(out, i.s.insights[portfolioID])
	return out, nil
}
