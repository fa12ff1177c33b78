package news

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/market"
)

type headline struct {
	title   string
	summary string
}

// Placeholders: {name} is the company name, {sym} the ticker.
var headlines = []headline{
	{"{name} shares surge after earnings beat estimates", "{sym} traded higher on volume as quarterly revenue came in ahead of forecasts."},
	{"Analysts upgrade {name} on strong demand outlook", "Brokers lifted price targets on {sym}, citing record orders."},
	{"{name} hits record high as rally broadens", "{sym} extended its run alongside the broader market."},
	{"{name} falls after revenue misses expectations", "{sym} slid as the company guided to slowing growth."},
	{"Regulators open probe into {name}", "{sym} moved lower after news of a federal probe and a pending lawsuit."},
	{"Analysts downgrade {name} on weak guidance", "Brokers trimmed targets on {sym}, pointing to softer margins."},
	{"{name} to present at industry conference next week", "{sym} investors await further details from management."},
	{"{name} announces date for quarterly results", "{sym} will report after the close, the company said."},
	{"{name} names new chief financial officer", "{sym} said the appointment takes effect next month."},
	{"{name} completes previously announced acquisition", "{sym} expects the deal to close without changes to guidance."},
}

var sources = []string{"MarketWire", "Finance Daily", "Ticker Times", "Street Ledger"}

// Generator synthesises headlines about a universe of symbols. Sentiment is
// always assigned by Classify, so the label agrees with the text.
type Generator struct {
	universe *market.Universe
	mu       sync.Mutex
	rng      *rand.Rand
	now      func() time.Time
}

// NewGenerator creates a headline generator. The same seed yields the same
// headline choices.
func NewGenerator(universe *market.Universe, seed uint64) *Generator {
	return &Generator{
		universe: universe,
		rng:      rand.New(rand.NewPCG(seed, 0x9e3779b97f4a7c15)),
		now:      time.Now,
	}
}

// Generate returns n articles, newest first, published over the last 12
// hours. focus symbols are preferred when picking subjects.
func (g *Generator) Generate(n int, focus []string) []domain.NewsArticle {
	g.mu.Lock()
	defer g.mu.Unlock()

	pool := g.universe.Symbols()
	now := g.now().UTC().Truncate(time.Second)
	out := make([]domain.NewsArticle, 0, n)
	for i := 0; i < n; i++ {
		symbol := g.pick(pool, focus)
		name := symbol
		if sec, ok := g.universe.Lookup(symbol); ok {
			name = sec.Name
		}

		h := headlines[g.rng.IntN(len(headlines))]
		title := fill(h.title, name, symbol)
		summary := fill(h.summary, name, symbol)

		symbols := []string{symbol}
		if g.rng.IntN(4) == 0 {
			if peer := pool[g.rng.IntN(len(pool))]; peer != symbol {
				symbols = append(symbols, peer)
			}
		}

		id := uuid.New()
		out = append(out, domain.NewsArticle{
			ID:          id.String(),
			Title:       title,
			Summary:     summary,
			Sentiment:   Classify(title, summary),
			Symbols:     symbols,
			Source:      sources[g.rng.IntN(len(sources))],
			URL:         fmt.Sprintf("https://news.stockvision.local/%s/%s", strings.ToLower(symbol), id.String()[:8]),
			PublishedAt: now.Add(-time.Duration(i) * 12 * time.Hour / time.Duration(max(n, 1))),
		})
	}
	return out
}

// pick chooses a focus symbol two times in three when any are given.
func (g *Generator) pick(pool, focus []string) string {
	if len(focus) > 0 && g.rng.IntN(3) < 2 {
		return strings.ToUpper(focus[g.rng.IntN(len(focus))])
	}
	return pool[g.rng.IntN(len(pool))]
}

func fill(s, name, symbol string) string {
	return strings.NewReplacer("{name}", name, "{sym}", symbol).Replace(s)
}
