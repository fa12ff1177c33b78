// Package market provides the symbol universe, quote providers and caches,
// synthetic price history and technical indicators.
package market

import (
	"sort"
	"strings"

	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
)

// MaxSearchResults caps the number of search hits returned.
const MaxSearchResults = 10

// IndexSymbols are the funds reported by the market overview.
var IndexSymbols = []string{"SPY", "QQQ", "DIA"}

var defaultSecurities = []domain.Security{
	{Symbol: "AAPL", Name: "Apple Inc.", Sector: "Technology", Exchange: "NASDAQ", Kind: domain.KindStock},
	{Symbol: "MSFT", Name: "Microsoft Corporation", Sector: "Technology", Exchange: "NASDAQ", Kind: domain.KindStock},
	{Symbol: "GOOGL", Name: "Alphabet Inc.", Sector: "Communication Services", Exchange: "NASDAQ", Kind: domain.KindStock},
	{Symbol: "AMZN", Name: "Amazon.com, Inc.", Sector: "Consumer Discretionary", Exchange: "NASDAQ", Kind: domain.KindStock},
	{Symbol: "NVDA", Name: "NVIDIA Corporation", Sector: "Technology", Exchange: "NASDAQ", Kind: domain.KindStock},
	{Symbol: "META", Name: "Meta Platforms, Inc.", Sector: "Communication Services", Exchange: "NASDAQ", Kind: domain.KindStock},
	{Symbol: "TSLA", Name: "Tesla, Inc.", Sector: "Consumer Discretionary", Exchange: "NASDAQ", Kind: domain.KindStock},
	{Symbol: "NFLX", Name: "Netflix, Inc.", Sector: "Communication Services", Exchange: "NASDAQ", Kind: domain.KindStock},
	{Symbol: "AMD", Name: "Advanced Micro Devices, Inc.", Sector: "Technology", Exchange: "NASDAQ", Kind: domain.KindStock},
	{Symbol: "INTC", Name: "Intel Corporation", Sector: "Technology", Exchange: "NASDAQ", Kind: domain.KindStock},
	{Symbol: "JPM", Name: "JPMorgan Chase & Co.", Sector: "Financials", Exchange: "NYSE", Kind: domain.KindStock},
	{Symbol: "BAC", Name: "Bank of America Corporation", Sector: "Financials", Exchange: "NYSE", Kind: domain.KindStock},
	{Symbol: "V", Name: "Visa Inc.", Sector: "Financials", Exchange: "NYSE", Kind: domain.KindStock},
	{Symbol: "MA", Name: "Mastercard Incorporated", Sector: "Financials", Exchange: "NYSE", Kind: domain.KindStock},
	{Symbol: "JNJ", Name: "Johnson & Johnson", Sector: "Health Care", Exchange: "NYSE", Kind: domain.KindStock},
	{Symbol: "PFE", Name: "Pfizer Inc.", Sector: "Health Care", Exchange: "NYSE", Kind: domain.KindStock},
	{Symbol: "UNH", Name: "UnitedHealth Group Incorporated", Sector: "Health Care", Exchange: "NYSE", Kind: domain.KindStock},
	{Symbol: "XOM", Name: "Exxon Mobil Corporation", Sector: "Energy", Exchange: "NYSE", Kind: domain.KindStock},
	{Symbol: "CVX", Name: "Chevron Corporation", Sector: "Energy", Exchange: "NYSE", Kind: domain.KindStock},
	{Symbol: "WMT", Name: "Walmart Inc.", Sector: "Consumer Staples", Exchange: "NYSE", Kind: domain.KindStock},
	{Symbol: "KO", Name: "The Coca-Cola Company", Sector: "Consumer Staples", Exchange: "NYSE", Kind: domain.KindStock},
	{Symbol: "DIS", Name: "The Walt Disney Company", Sector: "Communication Services", Exchange: "NYSE", Kind: domain.KindStock},
	{Symbol: "SPY", Name: "SPDR S&P 500 ETF Trust", Sector: "Index Fund", Exchange: "NYSE Arca", Kind: domain.KindETF},
	{Symbol: "QQQ", Name: "Invesco QQQ Trust", Sector: "Index Fund", Exchange: "NASDAQ", Kind: domain.KindETF},
	{Symbol: "DIA", Name: "SPDR Dow Jones Industrial Average ETF Trust", Sector: "Index Fund", Exchange: "NYSE Arca", Kind: domain.KindETF},
}

// Universe is the static, read-only set of known securities.
type Universe struct {
	securities []domain.Security
	bySymbol   map[string]domain.Security
}

// NewUniverse builds a universe from securities. With none given it uses
// the built-in list.
func NewUniverse(securities ...domain.Security) *Universe {
	if len(securities) == 0 {
		securities = defaultSecurities
	}
	u := &Universe{
		securities: make([]domain.Security, len(securities)),
		bySymbol:   make(map[string]domain.Security, len(securities)),
	}
	copy(u.securities, securities)
	for _, s := range u.securities {
		u.bySymbol[s.Symbol] = s
	}
	return u
}

// All returns every security in symbol order.
func (u *Universe) All() []domain.Security {
	out := make([]domain.Security, len(u.securities))
	copy(out, u.securities)
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Symbols returns every symbol in symbol order.
func (u *Universe) Symbols() []string {
	all := u.All()
	out := make([]string, len(all))
	for i, s := range all {
		out[i] = s.Symbol
	}
	return out
}

// Lookup finds a security by symbol, case-insensitively.
func (u *Universe) Lookup(symbol string) (domain.Security, bool) {
	s, ok := u.bySymbol[strings.ToUpper(strings.TrimSpace(symbol))]
	return s, ok
}

// Search matches query as a case-insensitive substring of symbol or name.
// Exact symbol matches rank first, then symbol prefixes, then the rest in
// symbol order. A blank query matches nothing.
func (u *Universe) Search(query string) []domain.SearchResult {
	q := strings.ToUpper(strings.TrimSpace(query))
	if q == "" {
		return []domain.SearchResult{}
	}

	type hit struct {
		sec  domain.Security
		rank int
	}
	var hits []hit
	for _, s := range u.securities {
		switch {
		case s.Symbol == q:
			hits = append(hits, hit{s, 0})
		case strings.HasPrefix(s.Symbol, q):
			hits = append(hits, hit{s, 1})
		case strings.Contains(s.Symbol, q), strings.Contains(strings.ToUpper(s.Name), q):
			hits = append(hits, hit{s, 2})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].rank != hits[j].rank {
			return hits[i].rank < hits[j].rank
		}
		return hits[i].sec.Symbol < hits[j].sec.Symbol
	})

	if len(hits) > MaxSearchResults {
		hits = hits[:MaxSearchResults]
	}
	out := make([]domain.SearchResult, len(hits))
	for i, h := range hits {
		out[i] = domain.SearchResult{Symbol: h.sec.Symbol, Name: h.sec.Name}
	}
	return out
}
