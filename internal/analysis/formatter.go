package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/model"
)

// CLIFormatter renders reports for terminal display.
type CLIFormatter struct {
	styles *Styles
}

// NewCLIFormatter creates a new CLI formatter with default styles.
func NewCLIFormatter() *CLIFormatter {
	return &CLIFormatter{
		styles: NewStyles(),
	}
}

// NewCLIFormatterWithWidth creates a formatter sized for the terminal.
func NewCLIFormatterWithWidth(width int) *CLIFormatter {
	return &CLIFormatter{
		styles: NewStyles().WithWidth(width),
	}
}

// FormatSummary creates a human-readable view of a report.
func (f *CLIFormatter) FormatSummary(report *model.Report) string {
	if report == nil {
		return f.styles.Error.Render("No report available")
	}

	sections := []string{
		f.formatHeader(report),
		f.formatDebtRatio(report.DebtRatio),
		f.formatConfidence(report.Analysis.Confidence),
		f.styles.RenderBox(report.Analysis.Overview, "Overview", f.styles.Box),
	}

	if len(report.Analysis.Recommendations) > 0 {
		sections = append(sections, f.styles.RenderBox(
			f.formatList(report.Analysis.Recommendations), "Recommendations", f.styles.AdviceBox))
	}

	if len(report.Analysis.Risks) > 0 {
		sections = append(sections, f.styles.RenderBox(
			f.formatList(report.Analysis.Risks), "Risks", f.styles.RiskBox))
	}

	if report.Analysis.NeedsLegalReview {
		sections = append(sections, f.styles.LegalReview.Render("⚖ Recommendations mention legal action and need review"))
	}

	if report.Analysis.Disclaimer != "" {
		sections = append(sections, f.styles.Disclaimer.Render(report.Analysis.Disclaimer))
	}

	return strings.Join(sections, "\n\n")
}

// FormatJSON renders the report as indented JSON.
func (f *CLIFormatter) FormatJSON(report *model.Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	return string(data), nil
}

func (f *CLIFormatter) formatHeader(report *model.Report) string {
	title := f.styles.Title.Render("📊 Financial Analysis Report")
	summary := f.styles.Subtle.Render(report.Summary)
	if report.Analysis.Source == "" {
		return title + "\n" + summary
	}
	source := f.styles.Subtle.Render(fmt.Sprintf("Source: %s", report.Analysis.Source))
	return fmt.Sprintf("%s\n%s\n%s", title, summary, source)
}

func (f *CLIFormatter) formatDebtRatio(ratio float64) string {
	style := f.styles.ForRatio(ratio)
	return style.Render(fmt.Sprintf("Debt ratio: %.2f", ratio))
}

// formatConfidence shows the confidence with a bar.
func (f *CLIFormatter) formatConfidence(score float64) string {
	style := f.styles.ForScore(score)
	text := style.Render(fmt.Sprintf("Confidence: %.0f%%", score*100))
	bar := style.Render(f.styles.RenderProgressBar(score, 30))
	return text + "\n" + bar
}

func (f *CLIFormatter) formatList(items []string) string {
	formatted := make([]string, 0, len(items))
	for i, item := range items {
		num := f.styles.Info.Render(fmt.Sprintf("%d.", i+1))
		formatted = append(formatted, fmt.Sprintf("%s %s", num, f.styles.Normal.Render(item)))
	}
	return strings.Join(formatted, "\n")
}
