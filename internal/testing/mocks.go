package testing

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
)

// StubQuoteProvider is a domain.QuoteProvider with fixed prices.
// Symbols without a price return domain.ErrQuoteNotFound.
type StubQuoteProvider struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
	errs   map[string]error
	calls  map[string]int
	delay  time.Duration
}

// NewStubQuoteProvider creates a stub seeded with prices ("AAPL": "160").
func NewStubQuoteProvider(prices map[string]string) *StubQuoteProvider {
	s := &StubQuoteProvider{
		prices: make(map[string]decimal.Decimal),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
	for sym, p := range prices {
		s.prices[sym] = decimal.RequireFromString(p)
	}
	return s
}

// SetPrice sets the price returned for symbol
func (s *StubQuoteProvider) SetPrice(symbol, price string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[symbol] = decimal.RequireFromString(price)
}

// SetError makes symbol fail with err
func (s *StubQuoteProvider) SetError(symbol string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[symbol] = err
}

// SetDelay makes every call sleep first, honoring cancellation
func (s *StubQuoteProvider) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Calls reports how many times symbol was requested
func (s *StubQuoteProvider) Calls(symbol string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[symbol]
}

// GetQuote implements domain.QuoteProvider
func (s *StubQuoteProvider) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	symbol = strings.ToUpper(symbol)

	s.mu.Lock()
	s.calls[symbol]++
	delay := s.delay
	err := s.errs[symbol]
	price, ok := s.prices[symbol]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", symbol, domain.ErrQuoteNotFound)
	}
	return &domain.Quote{
		Symbol:        symbol,
		Price:         price,
		Change:        decimal.Zero,
		ChangePercent: decimal.Zero,
		Volume:        1_000_000,
		Timestamp:     time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC),
	}, nil
}

// FlakyHoldingStore wraps a domain.HoldingStore and fails Update and
// UpdateValuation for selected symbols.
type FlakyHoldingStore struct {
	domain.HoldingStore

	mu       sync.RWMutex
	failures map[string]error
}

// NewFlakyHoldingStore wraps inner
func NewFlakyHoldingStore(inner domain.HoldingStore) *FlakyHoldingStore {
	return &FlakyHoldingStore{HoldingStore: inner, failures: make(map[string]error)}
}

// FailUpdates makes Update and UpdateValuation fail with err for holdings
// of symbol
func (f *FlakyHoldingStore) FailUpdates(symbol string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[symbol] = err
}

// Update implements domain.HoldingStore
func (f *FlakyHoldingStore) Update(ctx context.Context, h *domain.Holding) error {
	if err := f.failure(h.Symbol); err != nil {
		return err
	}
	return f.HoldingStore.Update(ctx, h)
}

// UpdateValuation implements domain.HoldingStore
func (f *FlakyHoldingStore) UpdateValuation(ctx context.Context, h *domain.Holding) (bool, error) {
	if err := f.failure(h.Symbol); err != nil {
		return false, err
	}
	return f.HoldingStore.UpdateValuation(ctx, h)
}

func (f *FlakyHoldingStore) failure(symbol string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.failures[symbol]
}
