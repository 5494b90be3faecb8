package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	// Palette borrowed from the site's pink accent.
	neonCyan    = lipgloss.Color("#00FFFF")
	biliPink    = lipgloss.Color("#FB7299")
	neonGreen   = lipgloss.Color("#39FF14")
	neonYellow  = lipgloss.Color("#FFFF00")
	neonOrange  = lipgloss.Color("#FF6700")
	darkBg      = lipgloss.Color("#0A0E27")
	darkBg2     = lipgloss.Color("#1A1E37")
	dimWhite    = lipgloss.Color("#B0B0B0")
	brightWhite = lipgloss.Color("#FFFFFF")

	// Base styles
	baseStyle = lipgloss.NewStyle().
			Background(darkBg).
			Foreground(dimWhite)

	logoStyle = lipgloss.NewStyle().
			Foreground(biliPink).
			Bold(true).
			Padding(1, 0).
			Align(lipgloss.Center)

	// Panel styles
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(biliPink).
			Background(darkBg2).
			Padding(1, 2)

	// Stats styles
	statsLabelStyle = lipgloss.NewStyle().
			Foreground(neonCyan).
			Bold(true)

	statsValueStyle = lipgloss.NewStyle().
			Foreground(neonYellow)

	// Status styles
	successStyle = lipgloss.NewStyle().
			Foreground(neonGreen).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(neonOrange).
			Bold(true)

	// Board row styles
	rowStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	rowActiveStyle = lipgloss.NewStyle().
			Foreground(brightWhite).
			Bold(true).
			PaddingLeft(2)

	rowDoneStyle = lipgloss.NewStyle().
			Foreground(dimWhite).
			Faint(true).
			PaddingLeft(2)

	// Log styles
	logTimestampStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666"))

	logMessageStyle = lipgloss.NewStyle().
			Foreground(dimWhite)

	// Help style
	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Padding(1, 0, 0, 2)

	// Title styles for panels
	titleStyle = lipgloss.NewStyle().
			Background(biliPink).
			Foreground(darkBg).
			Bold(true).
			Padding(0, 1)
)

// stateStyle picks the row style for a creator state.
func stateStyle(s CreatorState) lipgloss.Style {
	switch s {
	case CreatorChecking:
		return rowActiveStyle
	case CreatorUpdated:
		return rowStyle.Foreground(neonGreen)
	case CreatorFailed:
		return rowStyle.Foreground(lipgloss.Color("#FF0000"))
	case CreatorUnchanged:
		return rowDoneStyle
	default:
		return rowStyle
	}
}
