package export

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// Markdown renders the portfolio summary as a markdown document.
func Markdown(s *Snapshot) string {
	var b strings.Builder
	p := s.Portfolio

	fmt.Fprintf(&b, "# %s\n\n", escapeMarkdown(p.Name))
	fmt.Fprintf(&b, "Generated %s\n\n", s.GeneratedAt.Format("2006-01-02 15:04 UTC"))
	fmt.Fprintf(&b, "- **Total value:** %s\n", FormatMoney(p.TotalValue))
	fmt.Fprintf(&b, "- **Cost basis:** %s\n", FormatMoney(s.CostBasis()))
	fmt.Fprintf(&b, "- **Gain/loss:** %s (%s%%)\n", FormatSignedMoney(p.TotalGainLoss), s.GainLossPercent().StringFixed(2))
	fmt.Fprintf(&b, "- **Holdings:** %d\n", len(s.Holdings))
	if p.RiskScore != nil {
		fmt.Fprintf(&b, "- **Risk score:** %.2f / 10\n", *p.RiskScore)
	}
	b.WriteString("\n")

	if len(s.Holdings) == 0 {
		b.WriteString("This portfolio has no holdings.\n")
		return b.String()
	}

	b.WriteString("## Holdings\n\n")
	b.WriteString("| Symbol | Name | Shares | Price | Value | Gain/Loss | Return |\n")
	b.WriteString("| --- | --- | ---: | ---: | ---: | ---: | ---: |\n")
	for _, h := range s.Holdings {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s%% |\n",
			h.Symbol,
			escapeMarkdown(h.Name),
			h.Shares.String(),
			FormatMoney(h.CurrentPrice),
			FormatMoney(h.TotalValue),
			FormatSignedMoney(h.GainLoss),
			h.GainLossPercent.StringFixed(2),
		)
	}

	if len(s.Stale) > 0 {
		fmt.Fprintf(&b, "\n> Prices for %s could not be refreshed and may be out of date.\n", strings.Join(s.Stale, ", "))
	}
	return b.String()
}

// WriteReport renders the summary to a standalone HTML page.
func WriteReport(w io.Writer, s *Snapshot) error {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(Markdown(s)), &body); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	_, err := fmt.Fprintf(w, "<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n%s</body>\n</html>\n",
		html.EscapeString(s.Portfolio.Name), body.String())
	return err
}

var mdEscaper = strings.NewReplacer(
	`\`, `\\`, `|`, `\|`, `*`, `\*`, `_`, `\_`, "`", "\\`",
	`[`, `\[`, `]`, `\]`, `<`, `&lt;`, `>`, `&gt;`, `#`, `\#`,
)

func escapeMarkdown(s string) string {
	return mdEscaper.Replace(s)
}
