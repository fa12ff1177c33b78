package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the export.
const SheetName = "Holdings"

var xlsxHeader = []interface{}{
	"Symbol", "Name", "Shares", "Avg Price", "Current Price", "Total Value", "Gain/Loss", "Gain/Loss %",
}

// WriteXLSX writes the holdings and a totals row to a single-sheet workbook.
// Amounts are stored as numbers so the sheet stays usable for formulas.
func WriteXLSX(w io.Writer, s *Snapshot) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#cfe2f3"}},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	moneyFmt := "#,##0.00"
	amounts, err := f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFmt})
	if err != nil {
		return fmt.Errorf("failed to create amount style: %w", err)
	}

	if err := f.SetSheetRow(SheetName, "A1", &xlsxHeader); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", "H1", header); err != nil {
		return err
	}

	row := 2
	for _, h := range s.Holdings {
		values := []interface{}{
			h.Symbol,
			h.Name,
			h.Shares.InexactFloat64(),
			h.AvgPrice.InexactFloat64(),
			h.CurrentPrice.InexactFloat64(),
			h.TotalValue.InexactFloat64(),
			h.GainLoss.InexactFloat64(),
			h.GainLossPercent.InexactFloat64(),
		}
		if err := f.SetSheetRow(SheetName, fmt.Sprintf("A%d", row), &values); err != nil {
			return err
		}
		row++
	}

	totals := []interface{}{
		TotalLabel,
		s.Portfolio.Name,
		nil, nil, nil,
		s.Portfolio.TotalValue.InexactFloat64(),
		s.Portfolio.TotalGainLoss.InexactFloat64(),
		s.GainLossPercent().InexactFloat64(),
	}
	if err := f.SetSheetRow(SheetName, fmt.Sprintf("A%d", row), &totals); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "C2", fmt.Sprintf("H%d", row), amounts); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "B", "B", 28); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}
