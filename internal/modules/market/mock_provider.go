package market

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
)

// MockQuoteProvider produces deterministic quotes for the symbols of a
// universe. A symbol's base price comes from its first letter and a hash of
// the symbol; the daily level is seeded by symbol and UTC date, so every
// read within one day returns the same quote.
type MockQuoteProvider struct {
	universe *Universe
	now      func() time.Time
}

var _ domain.QuoteProvider = (*MockQuoteProvider)(nil)

// NewMockQuoteProvider creates a mock provider over universe
func NewMockQuoteProvider(universe *Universe) *MockQuoteProvider {
	return &MockQuoteProvider{universe: universe, now: time.Now}
}

// WithClock replaces the time source. It is meant for tests.
func (p *MockQuoteProvider) WithClock(now func() time.Time) *MockQuoteProvider {
	p.now = now
	return p
}

// GetQuote implements domain.QuoteProvider
func (p *MockQuoteProvider) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sec, ok := p.universe.Lookup(symbol)
	if !ok {
		return nil, fmt.Errorf("%s: %w", strings.ToUpper(symbol), domain.ErrQuoteNotFound)
	}

	now := p.now().UTC()
	today := now.Truncate(24 * time.Hour)
	price := dailyPrice(sec.Symbol, today)
	prev := dailyPrice(sec.Symbol, today.AddDate(0, 0, -1))

	change := price.Sub(prev)
	changePct := decimal.Zero
	if prev.IsPositive() {
		changePct = change.Div(prev).Mul(decimal.NewFromInt(100)).Round(2)
	}

	rng := seededRand(sec.Symbol, today.Unix(), 1)
	return &domain.Quote{
		Symbol:        sec.Symbol,
		Price:         price,
		Change:        change,
		ChangePercent: changePct,
		Volume:        1_000_000 + rng.Int64N(9_000_000),
		Timestamp:     now,
	}, nil
}

// BasePrice is the anchor price a symbol's quotes drift around.
func BasePrice(symbol string) float64 {
	symbol = strings.ToUpper(symbol)
	if symbol == "" {
		return 50
	}
	letter := symbol[0]
	if letter < 'A' || letter > 'Z' {
		letter = 'A'
	}
	return 50 + float64(letter-'A')*15 + float64(hash64(symbol)%5000)/100
}

// dailyPrice moves the base price by up to ±10% for the given day.
func dailyPrice(symbol string, day time.Time) decimal.Decimal {
	rng := seededRand(symbol, day.Unix(), 0)
	drift := rng.Float64()*0.2 - 0.1
	return decimal.NewFromFloat(BasePrice(symbol) * (1 + drift)).Round(2)
}

func hash64(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

func seededRand(symbol string, salt int64, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(hash64(symbol)^uint64(salt), stream))
}
