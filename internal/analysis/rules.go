package analysis

import (
	"fmt"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/model"
)

const (
	// RuleConfidence is the fixed confidence of a rule-based result.
	RuleConfidence = 0.6
	// HighDebtRatio is the ratio above which debt repayment is prioritized.
	HighDebtRatio = 0.6
)

// Rule-based recommendation texts.
const (
	RecommendRepayDebt = "Prioritize repaying high-interest debt, or adjust the budget to reduce expenses."
	RecommendBudget    = "Keep good budgeting habits and build an emergency fund."
)

// RuleFallback produces a deterministic result from the debt ratio alone.
// It never fails.
func RuleFallback(input model.FinancialInput) model.AnalysisResult {
	ratio := input.DebtRatio()

	rec := RecommendBudget
	if ratio > HighDebtRatio {
		rec = RecommendRepayDebt
	}

	return model.AnalysisResult{
		Overview:        fmt.Sprintf("Current debt ratio is %.2f", ratio),
		Recommendations: []string{rec},
		Risks:           []string{},
		Confidence:      RuleConfidence,
		Source:          model.SourceRule,
	}
}
