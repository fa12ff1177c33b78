package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
)

// HTTPProviderConfig describes a JSON quote endpoint
type HTTPProviderConfig struct {
	BaseURL      string
	PathTemplate string // must contain {symbol}
	APIKey       string
	Timeout      time.Duration

	// JSONPath expressions into the response body. Only PricePath is
	// required; the others default to zero when empty or absent.
	PricePath         string
	ChangePath        string
	ChangePercentPath string
	VolumePath        string
}

// HTTPQuoteProvider fetches quotes from a remote JSON API.
type HTTPQuoteProvider struct {
	client *resty.Client
	cfg    HTTPProviderConfig
	now    func() time.Time
	log    zerolog.Logger
}

var _ domain.QuoteProvider = (*HTTPQuoteProvider)(nil)

// NewHTTPQuoteProvider creates a provider for cfg
func NewHTTPQuoteProvider(cfg HTTPProviderConfig, log zerolog.Logger) *HTTPQuoteProvider {
	if cfg.PathTemplate == "" {
		cfg.PathTemplate = "/quote/{symbol}"
	}
	if cfg.PricePath == "" {
		cfg.PricePath = "$.price"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("X-API-Key", cfg.APIKey)
	}

	return &HTTPQuoteProvider{
		client: client,
		cfg:    cfg,
		now:    time.Now,
		log:    log.With().Str("component", "http_quote_provider").Logger(),
	}
}

// GetQuote implements domain.QuoteProvider
func (p *HTTPQuoteProvider) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	path := strings.ReplaceAll(p.cfg.PathTemplate, "{symbol}", url.PathEscape(symbol))

	resp, err := p.client.R().SetContext(ctx).Get(path)
	if err != nil {
		return nil, fmt.Errorf("quote request for %s: %w", symbol, err)
	}
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", symbol, domain.ErrQuoteNotFound)
	case resp.IsError():
		return nil, fmt.Errorf("quote request for %s: unexpected status %d", symbol, resp.StatusCode())
	}

	var body any
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("quote response for %s is not JSON: %w", symbol, err)
	}

	price, err := extractDecimal(body, p.cfg.PricePath)
	if err != nil {
		return nil, fmt.Errorf("quote response for %s: price: %w", symbol, err)
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("quote response for %s: non-positive price %s", symbol, price)
	}

	q := &domain.Quote{Symbol: symbol, Price: price, Timestamp: p.now().UTC()}
	q.Change = p.optionalDecimal(body, p.cfg.ChangePath, symbol)
	q.ChangePercent = p.optionalDecimal(body, p.cfg.ChangePercentPath, symbol)
	q.Volume = p.optionalDecimal(body, p.cfg.VolumePath, symbol).IntPart()
	return q, nil
}

func (p *HTTPQuoteProvider) optionalDecimal(body any, path, symbol string) decimal.Decimal {
	if path == "" {
		return decimal.Zero
	}
	v, err := extractDecimal(body, path)
	if err != nil {
		p.log.Debug().Err(err).Str("symbol", symbol).Str("path", path).Msg("Optional quote field missing")
		return decimal.Zero
	}
	return v
}

// extractDecimal evaluates a JSONPath expression and converts the result.
// A single-element list result is unwrapped.
func extractDecimal(body any, path string) (decimal.Decimal, error) {
	v, err := jsonpath.Get(path, body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("evaluating %q: %w", path, err)
	}
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return decimal.Zero, fmt.Errorf("%q matched nothing", path)
		}
		v = list[0]
	}

	switch x := v.(type) {
	case float64:
		return decimal.NewFromFloat(x), nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return decimal.Zero, fmt.Errorf("%q: %w", path, err)
		}
		return d, nil
	case json.Number:
		return decimal.NewFromString(x.String())
	default:
		return decimal.Zero, fmt.Errorf("%q: unsupported value %v", path, v)
	}
}
