package analysis

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/cli"
)

// elevatedDebtRatio is where the ratio line turns from green to amber.
const elevatedDebtRatio = 0.4

// Styles holds the lipgloss styles used to render a report.
type Styles struct {
	Title   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
	Subtle  lipgloss.Style
	Normal  lipgloss.Style

	Box         lipgloss.Style
	AdviceBox   lipgloss.Style
	RiskBox     lipgloss.Style
	Disclaimer  lipgloss.Style
	LegalReview lipgloss.Style
}

func sectionBox(border lipgloss.TerminalColor) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)
}

// NewStyles builds report styles on top of the shared CLI palette.
func NewStyles() *Styles {
	return &Styles{
		Title:   cli.TitleStyle,
		Success: cli.SuccessStyle,
		Warning: cli.WarningStyle,
		Error:   cli.ErrorStyle,
		Info:    cli.InfoStyle,
		Subtle:  cli.SubtleStyle,
		Normal:  lipgloss.NewStyle(),

		Box:       sectionBox(cli.SubtleColor),
		AdviceBox: sectionBox(cli.SuccessColor).MarginTop(1),
		RiskBox:   sectionBox(cli.WarningColor).MarginTop(1),

		Disclaimer: lipgloss.NewStyle().Italic(true).Foreground(cli.SubtleColor),
		LegalReview: lipgloss.NewStyle().
			Bold(true).
			Foreground(cli.ErrorColor).
			Background(lipgloss.Color("#2D0000")),
	}
}

// WithWidth returns a copy whose section boxes fit a terminal narrower
// than 100 columns. Wider terminals keep natural widths.
func (s *Styles) WithWidth(width int) *Styles {
	out := *s
	if width <= 0 || width >= 100 {
		return &out
	}
	inner := width - 4
	out.Box = s.Box.Width(inner)
	out.AdviceBox = s.AdviceBox.Width(inner)
	out.RiskBox = s.RiskBox.Width(inner)
	return &out
}

// ForRatio colors a debt ratio: healthy, elevated or high.
func (s *Styles) ForRatio(ratio float64) lipgloss.Style {
	if ratio > HighDebtRatio {
		return s.Error
	}
	if ratio > elevatedDebtRatio {
		return s.Warning
	}
	return s.Success
}

// ForScore colors a confidence value.
func (s *Styles) ForScore(score float64) lipgloss.Style {
	if score >= 0.8 {
		return s.Success
	}
	if score >= 0.5 {
		return s.Warning
	}
	return s.Error
}

// RenderProgressBar draws an unstyled bar for a value in [0, 1]; values
// outside the range are clamped. A non-positive width means 30.
func (s *Styles) RenderProgressBar(progress float64, width int) string {
	if width <= 0 {
		width = 30
	}
	filled := max(0, min(width, int(float64(width)*progress)))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// RenderBox wraps content in style, with a bold title line when title is set.
func (s *Styles) RenderBox(content, title string, style lipgloss.Style) string {
	if title == "" {
		return style.Render(content)
	}
	// lipgloss v1.1.0 has no border titles
	heading := s.Info.Bold(true).Render(" " + title + " ")
	return style.Render(heading + "\n" + content)
}
