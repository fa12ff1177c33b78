// Package seed creates demo portfolios from an embedded TOML document.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/portfolio"
)

//go:embed default.toml
var defaultData []byte

// Data is the seed document.
type Data struct {
	Portfolios []Portfolio `toml:"portfolios"`
}

// Portfolio is one seeded portfolio.
type Portfolio struct {
	Name     string    `toml:"name"`
	Holdings []Holding `toml:"holdings"`
}

// Holding is one seeded position.
type Holding struct {
	Symbol   string          `toml:"symbol"`
	Name     string          `toml:"name"`
	Shares   decimal.Decimal `toml:"shares"`
	AvgPrice decimal.Decimal `toml:"avg_price"`
}

// Parse decodes a seed document, rejecting unknown keys.
func Parse(raw []byte) (*Data, error) {
	var data Data
	dec := toml.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse seed data: %w", err)
	}
	return &data, nil
}

// Default returns the embedded demo data.
func Default() *Data {
	data, err := Parse(defaultData)
	if err != nil {
		panic(err)
	}
	return data
}

// Seeder applies seed data through the portfolio service so holdings are
// validated and priced like user input.
type Seeder struct {
	portfolios *portfolio.Service
	data       *Data
	log        zerolog.Logger
}

// NewSeeder creates a new seeder
func NewSeeder(portfolios *portfolio.Service, data *Data, log zerolog.Logger) *Seeder {
	return &Seeder{
		portfolios: portfolios,
		data:       data,
		log:        log.With().Str("component", "seed").Logger(),
	}
}

// Apply creates the seed portfolios for id unless it already owns one.
// It returns the number of portfolios created.
func (s *Seeder) Apply(ctx context.Context, id domain.Identity) (int, error) {
	existing, err := s.portfolios.ListPortfolios(ctx, id)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		s.log.Debug().Str("user_id", id.UserID).Msg("User already has portfolios, skipping seed")
		return 0, nil
	}

	created := 0
	for _, sp := range s.data.Portfolios {
		p, err := s.portfolios.CreatePortfolio(ctx, id, sp.Name)
		if err != nil {
			return created, fmt.Errorf("failed to seed portfolio %q: %w", sp.Name, err)
		}
		created++
		for _, h := range sp.Holdings {
			_, err := s.portfolios.AddHolding(ctx, id, p.ID, portfolio.HoldingInput{
				Symbol:   h.Symbol,
				Name:     h.Name,
				Shares:   h.Shares,
				AvgPrice: h.AvgPrice,
			})
			if err != nil {
				return created, fmt.Errorf("failed to seed holding %s: %w", h.Symbol, err)
			}
		}
		s.log.Info().
			Str("user_id", id.UserID).
			Int64("portfolio_id", p.ID).
			Int("holdings", len(sp.Holdings)).
			Msg("Seeded portfolio")
	}
	return created, nil
}
