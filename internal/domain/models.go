// Package domain provides the core models, errors and store contracts shared
// by every stock-vision module.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Money travels as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// SharePrecision is the number of decimal places kept for share counts.
const SharePrecision = 4

// Portfolio is a named collection of holdings owned by one user.
// TotalValue and TotalGainLoss are derived: they are written only by the
// aggregator and always equal the sums over the portfolio's holdings.
type Portfolio struct {
	ID            int64           `json:"id"`
	UserID        string          `json:"userId"`
	Name          string          `json:"name"`
	TotalValue    decimal.Decimal `json:"totalValue"`
	TotalGainLoss decimal.Decimal `json:"totalGainLoss"`
	RiskScore     *float64        `json:"riskScore"`
	Version       int64           `json:"version"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Holding is a position in a single symbol within a portfolio.
// Duplicate symbols within one portfolio are allowed and never merged.
type Holding struct {
	ID              int64           `json:"id"`
	PortfolioID     int64           `json:"portfolioId"`
	Symbol          string          `json:"symbol"`
	Name            string          `json:"name"`
	Shares          decimal.Decimal `json:"shares"`
	AvgPrice        decimal.Decimal `json:"avgPrice"`
	CurrentPrice    decimal.Decimal `json:"currentPrice"`
	TotalValue      decimal.Decimal `json:"totalValue"`
	GainLoss        decimal.Decimal `json:"gainLoss"`
	GainLossPercent decimal.Decimal `json:"gainLossPercent"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// CostBasis returns avgPrice × shares.
func (h *Holding) CostBasis() decimal.Decimal {
	return h.AvgPrice.Mul(h.Shares)
}

// Quote is a point-in-time market snapshot for a symbol. It is never
// authoritative state and may be served from a cache.
type Quote struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"changePercent"`
	Volume        int64           `json:"volume"`
	Timestamp     time.Time       `json:"timestamp"`
}

// HistoryPoint is one OHLCV bar.
type HistoryPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// PerformancePoint is the portfolio market value at one instant.
type PerformancePoint struct {
	Timestamp time.Time       `json:"timestamp"`
	Value     decimal.Decimal `json:"value"`
}

// SecurityKind distinguishes single stocks from index funds.
type SecurityKind string

const (
	KindStock SecurityKind = "stock"
	KindETF   SecurityKind = "etf"
)

// Security is an entry of the searchable symbol universe.
type Security struct {
	Symbol   string       `json:"symbol"`
	Name     string       `json:"name"`
	Sector   string       `json:"sector"`
	Exchange string       `json:"exchange"`
	Kind     SecurityKind `json:"kind"`
}

// SearchResult is the public shape of a symbol search hit.
type SearchResult struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// InsightCategory classifies an insight.
type InsightCategory string

const (
	InsightOpportunity InsightCategory = "opportunity"
	InsightRisk        InsightCategory = "risk"
	InsightTrend       InsightCategory = "trend"
)

// Insight is a generated observation about a portfolio. Insights are
// produced in batches; a new batch supersedes the previous one entirely.
type Insight struct {
	ID          int64           `json:"id"`
	PortfolioID int64           `json:"portfolioId"`
	BatchID     string          `json:"batchId"`
	Category    InsightCategory `json:"category"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Confidence  float64         `json:"confidence"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Sentiment is the coarse tone of a news article.
type Sentiment string

const (
	SentimentBullish Sentiment = "bullish"
	SentimentBearish Sentiment = "bearish"
	SentimentNeutral Sentiment = "neutral"
)

// NewsArticle is a market news item. Articles are append-only.
type NewsArticle struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Sentiment   Sentiment `json:"sentiment"`
	Symbols     []string  `json:"symbols"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
}

// NewsFilter narrows a news listing. An empty Symbols slice matches all
// articles; otherwise an article matches when it shares any symbol.
type NewsFilter struct {
	Symbols []string
	Limit   int
}
