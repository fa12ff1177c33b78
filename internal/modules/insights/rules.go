// Package insights evaluates rule expressions over portfolio facts and
// keeps the latest batch of generated insights per portfolio.
package insights

import (
	"bytes"
	"fmt"
	"math"
	"text/template"

	"github.com/maja42/goval"

	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
)

// Rule is a boolean goval expression over Facts.Variables with templated
// text rendered against Facts.
type Rule struct {
	Name        string
	Category    domain.InsightCategory
	Condition   string
	Title       string
	Description string
	Confidence  float64
}

// DefaultRules are evaluated for every portfolio. Numeric literals are
// written as floats because every variable is a float64.
var DefaultRules = []Rule{
	{
		Name:        "empty_portfolio",
		Category:    domain.InsightOpportunity,
		Condition:   `holdingCount == 0.0`,
		Title:       "Start building {{.Name}}",
		Description: "This portfolio has no holdings yet. Add a position to start tracking value and performance.",
		Confidence:  0.9,
	},
	{
		Name:        "single_name_concentration",
		Category:    domain.InsightRisk,
		Condition:   `maxWeight > 0.30`,
		Title:       "Concentrated position in {{.TopHolding}}",
		Description: "{{.TopHolding}} makes up {{pct .MaxWeight}} of the portfolio. A large move in one name would dominate returns.",
		Confidence:  0.85,
	},
	{
		Name:        "few_holdings",
		Category:    domain.InsightRisk,
		Condition:   `holdingCount > 0.0 && holdingCount < 5.0`,
		Title:       "Limited diversification",
		Description: "The portfolio holds {{.HoldingCount}} symbol(s). Spreading value across at least five reduces single-name risk.",
		Confidence:  0.75,
	},
	{
		Name:        "sector_concentration",
		Category:    domain.InsightRisk,
		Condition:   `topSectorWeight > 0.50`,
		Title:       "Heavy exposure to {{.TopSector}}",
		Description: "{{.TopSector}} accounts for {{pct .TopSectorWeight}} of portfolio value.",
		Confidence:  0.8,
	},
	{
		Name:        "take_profits",
		Category:    domain.InsightOpportunity,
		Condition:   `bestPerformerPct > 20.0`,
		Title:       "Consider taking profits on {{.BestPerformer}}",
		Description: "{{.BestPerformer}} is up {{signed .BestPerformerPct}}% from its average cost.",
		Confidence:  0.7,
	},
	{
		Name:        "review_laggard",
		Category:    domain.InsightOpportunity,
		Condition:   `worstPerformerPct < -10.0`,
		Title:       "Review your {{.WorstPerformer}} position",
		Description: "{{.WorstPerformer}} is {{signed .WorstPerformerPct}}% against its average cost.",
		Confidence:  0.65,
	},
	{
		Name:        "portfolio_up",
		Category:    domain.InsightTrend,
		Condition:   `holdingCount > 0.0 && gainLossPercent > 0.0`,
		Title:       "Portfolio is up {{signed .GainLossPercent}}%",
		Description: "Total value of {{money .TotalValue}} is above the amount invested.",
		Confidence:  0.6,
	},
	{
		Name:        "portfolio_down",
		Category:    domain.InsightTrend,
		Condition:   `holdingCount > 0.0 && gainLossPercent < 0.0`,
		Title:       "Portfolio is down {{signed .GainLossPercent}}%",
		Description: "Total value of {{money .TotalValue}} is below the amount invested.",
		Confidence:  0.6,
	},
}

var funcs = template.FuncMap{
	"pct":    func(v float64) string { return fmt.Sprintf("%.1f%%", v*100) },
	"signed": func(v float64) string { return fmt.Sprintf("%+.2f", v) },
	"money":  func(v float64) string { return fmt.Sprintf("$%.2f", v) },
}

type compiledRule struct {
	Rule
	title       *template.Template
	description *template.Template
}

// Engine evaluates a fixed rule set.
type Engine struct {
	rules []compiledRule
	eval  *goval.Evaluator
}

// NewEngine parses every rule template and checks each condition against
// zero-valued facts, so a broken rule fails at startup.
func NewEngine(rules []Rule) (*Engine, error) {
	e := &Engine{eval: goval.NewEvaluator()}
	probe := (&Facts{}).Variables()
	for _, r := range rules {
		title, err := template.New(r.Name + ".title").Funcs(funcs).Parse(r.Title)
		if err != nil {
			return nil, fmt.Errorf("rule %s title: %w", r.Name, err)
		}
		desc, err := template.New(r.Name + ".description").Funcs(funcs).Parse(r.Description)
		if err != nil {
			return nil, fmt.Errorf("rule %s description: %w", r.Name, err)
		}
		if _, err := e.matches(r.Condition, probe); err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.Name, err)
		}
		e.rules = append(e.rules, compiledRule{Rule: r, title: title, description: desc})
	}
	return e, nil
}

// Evaluate returns one insight per matching rule, in rule order.
func (e *Engine) Evaluate(f *Facts) ([]domain.Insight, error) {
	vars := f.Variables()
	var out []domain.Insight
	for _, r := range e.rules {
		ok, err := e.matches(r.Condition, vars)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.Name, err)
		}
		if !ok {
			continue
		}

		var title, desc bytes.Buffer
		if err := r.title.Execute(&title, f); err != nil {
			return nil, fmt.Errorf("rule %s title: %w", r.Name, err)
		}
		if err := r.description.Execute(&desc, f); err != nil {
			return nil, fmt.Errorf("rule %s description: %w", r.Name, err)
		}
		out = append(out, domain.Insight{
			Category:    r.Category,
			Title:       title.String(),
			Description: desc.String(),
			Confidence:  math.Max(0, math.Min(1, r.Confidence)),
		})
	}
	return out, nil
}

func (e *Engine) matches(condition string, vars map[string]interface{}) (bool, error) {
	result, err := e.eval.Evaluate(condition, vars, nil)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate %q: %w", condition, err)
	}
	ok, isBool := result.(bool)
	if !isBool {
		return false, fmt.Errorf("condition %q is not boolean", condition)
	}
	return ok, nil
}
