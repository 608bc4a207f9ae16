package sheets

import (
	"fmt"
	"strings"
	"time"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/model"
)

// Header is the first row of the report sheet.
var Header = []any{
	"Timestamp", "User", "Assets", "Liabilities", "Income", "Expenses",
	"Debt Ratio", "Overview", "Recommendations", "Risks", "Confidence",
	"Source", "Legal Review", "Disclaimer",
}

// reportRow lays out one report in Header order. Lists are numbered one
// item per line so they stay readable in a single cell.
func reportRow(input model.FinancialInput, report model.Report, at time.Time) []any {
	return []any{
		at.UTC().Format(time.RFC3339),
		input.UserID,
		input.Assets.InexactFloat64(),
		input.Liabilities.InexactFloat64(),
		input.Income.InexactFloat64(),
		input.Expenses.InexactFloat64(),
		report.DebtRatio,
		report.Analysis.Overview,
		numbered(report.Analysis.Recommendations),
		numbered(report.Analysis.Risks),
		report.Analysis.Confidence,
		string(report.Analysis.Source),
		report.Analysis.NeedsLegalReview,
		report.Analysis.Disclaimer,
	}
}

func numbered(items []string) string {
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, item)
	}
	return b.String()
}
