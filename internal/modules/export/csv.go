package export

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
)

// TotalLabel marks the summary row appended to tabular exports.
const TotalLabel = "TOTAL"

type holdingRecord struct {
	Symbol          string `csv:"symbol"`
	Name            string `csv:"name"`
	Shares          string `csv:"shares"`
	AvgPrice        string `csv:"avg_price"`
	CurrentPrice    string `csv:"current_price"`
	TotalValue      string `csv:"total_value"`
	GainLoss        string `csv:"gain_loss"`
	GainLossPercent string `csv:"gain_loss_percent"`
}

func records(s *Snapshot) []*holdingRecord {
	out := make([]*holdingRecord, 0, len(s.Holdings)+1)
	for _, h := range s.Holdings {
		out = append(out, &holdingRecord{
			Symbol:          h.Symbol,
			Name:            h.Name,
			Shares:          h.Shares.String(),
			AvgPrice:        h.AvgPrice.StringFixed(2),
			CurrentPrice:    h.CurrentPrice.StringFixed(2),
			TotalValue:      h.TotalValue.StringFixed(2),
			GainLoss:        h.GainLoss.StringFixed(2),
			GainLossPercent: h.GainLossPercent.StringFixed(2),
		})
	}
	out = append(out, &holdingRecord{
		Symbol:          TotalLabel,
		Name:            s.Portfolio.Name,
		TotalValue:      s.Portfolio.TotalValue.StringFixed(2),
		GainLoss:        s.Portfolio.TotalGainLoss.StringFixed(2),
		GainLossPercent: s.GainLossPercent().StringFixed(2),
	})
	return out
}

// WriteCSV writes one row per holding followed by the totals row.
func WriteCSV(w io.Writer, s *Snapshot) error {
	if err := gocsv.Marshal(records(s), w); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}
