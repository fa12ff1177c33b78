package market

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
)

// CachedQuoteProvider is a read-through TTL cache in front of another
// provider. Cache failures are logged and bypassed; they never fail a quote.
type CachedQuoteProvider struct {
	inner domain.QuoteProvider
	cache domain.QuoteCache
	ttl   time.Duration
	log   zerolog.Logger
}

var _ domain.QuoteProvider = (*CachedQuoteProvider)(nil)

// NewCachedQuoteProvider wraps inner with cache
func NewCachedQuoteProvider(inner domain.QuoteProvider, cache domain.QuoteCache, ttl time.Duration, log zerolog.Logger) *CachedQuoteProvider {
	return &CachedQuoteProvider{
		inner: inner,
		cache: cache,
		ttl:   ttl,
		log:   log.With().Str("component", "quote_cache").Logger(),
	}
}

// GetQuote implements domain.QuoteProvider
func (p *CachedQuoteProvider) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	q, hit, err := p.cache.Get(ctx, symbol)
	if err != nil {
		p.log.Warn().Err(err).Str("symbol", symbol).Msg("Quote cache read failed")
	} else if hit {
		return q, nil
	}

	q, err = p.inner.GetQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if err := p.cache.Set(ctx, q, p.ttl); err != nil {
		p.log.Warn().Err(err).Str("symbol", symbol).Msg("Quote cache write failed")
	}
	return q, nil
}

// Purge drops expired cache entries.
func (p *CachedQuoteProvider) Purge(ctx context.Context) (int64, error) {
	return p.cache.Purge(ctx)
}

// cachedQuote is the msgpack wire form of a quote. Decimals travel as
// strings so no precision is lost.
type cachedQuote struct {
	Symbol        string `msgpack:"s"`
	Price         string `msgpack:"p"`
	Change        string `msgpack:"c"`
	ChangePercent string `msgpack:"cp"`
	Volume        int64  `msgpack:"v"`
	Timestamp     int64  `msgpack:"t"`
}

func encodeQuote(q *domain.Quote) ([]byte, error) {
	b, err := msgpack.Marshal(cachedQuote{
		Symbol:        q.Symbol,
		Price:         q.Price.String(),
		Change:        q.Change.String(),
		ChangePercent: q.ChangePercent.String(),
		Volume:        q.Volume,
		Timestamp:     q.Timestamp.UnixMilli(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode quote %s: %w", q.Symbol, err)
	}
	return b, nil
}

func decodeQuote(b []byte) (*domain.Quote, error) {
	var c cachedQuote
	if err := msgpack.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("failed to decode cached quote: %w", err)
	}
	price, err := decimal.NewFromString(c.Price)
	if err != nil {
		return nil, fmt.Errorf("cached quote %s price: %w", c.Symbol, err)
	}
	change, _ := decimal.NewFromString(c.Change)
	changePct, _ := decimal.NewFromString(c.ChangePercent)
	return &domain.Quote{
		Symbol:        c.Symbol,
		Price:         price,
		Change:        change,
		ChangePercent: changePct,
		Volume:        c.Volume,
		Timestamp:     time.UnixMilli(c.Timestamp).UTC(),
	}, nil
}
