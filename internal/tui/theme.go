package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
	ColorBrowser = lipgloss.Color("#3b82f6")
)

var (
	StyleBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
			Foreground(ColorDimmed)

	StyleFlagged = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorDanger)

	StyleBrowser = lipgloss.NewStyle().
			Foreground(ColorBrowser)
)

// monitorColor is green for exactly one display, amber when unknown and
// red when more than one is attached.
func monitorColor(count int) lipgloss.Color {
	switch {
	case count == 1:
		return ColorHealthy
	case count > 1:
		return ColorDanger
	default:
		return ColorWarning
	}
}
