// Package themes holds the color schemes for the terminal form.
package themes

import "github.com/charmbracelet/lipgloss"

// Theme defines the visual style for the TUI.
type Theme struct {
	Title      lipgloss.Style
	Subtitle   lipgloss.Style
	Label      lipgloss.Style
	Focused    lipgloss.Style
	Normal     lipgloss.Style
	Error      lipgloss.Style
	RoundedBox lipgloss.Style
	Primary    lipgloss.Color
	Muted      lipgloss.Color
	ErrorColor lipgloss.Color
}

func build(primary, secondary, text, muted, border, errColor string) Theme {
	return Theme{
		Primary:    lipgloss.Color(primary),
		Muted:      lipgloss.Color(muted),
		ErrorColor: lipgloss.Color(errColor),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(text)).
			MarginBottom(1),
		Subtitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color(muted)).
			MarginBottom(1),
		Label: lipgloss.NewStyle().
			Width(14).
			Foreground(lipgloss.Color(muted)),
		Focused: lipgloss.NewStyle().
			Width(14).
			Bold(true).
			Foreground(lipgloss.Color(secondary)),
		Normal: lipgloss.NewStyle().
			Foreground(lipgloss.Color(text)),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color(errColor)).
			Bold(true),
		RoundedBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(border)).
			Padding(1, 2),
	}
}

// Default is the default theme.
var Default = build("#7c3aed", "#a78bfa", "#fafafa", "#737373", "#404040", "#ef4444")

// CatppuccinMocha is the Catppuccin Mocha theme.
var CatppuccinMocha = build("#cba6f7", "#f5c2e7", "#cdd6f4", "#6c7086", "#45475a", "#f38ba8")

// ByName returns the named theme, falling back to Default.
func ByName(name string) Theme {
	switch name {
	case "catppuccin", "catppuccin-mocha":
		return CatppuccinMocha
	default:
		return Default
	}
}
