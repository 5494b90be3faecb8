package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// boardRows caps the rows shown per section.
const boardRows = 8

// View renders the entire TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, m.renderLogo())

	width := (m.width - 4) / 2
	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderStatsPanel(width),
		m.renderBoardPanel(width),
	)
	right := m.renderLogsPanel(width)
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right))

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("Press ? for help, q to quit"))
	}

	return baseStyle.Width(m.width).Height(m.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func (m *Model) renderLogo() string {
	logo := `
╔══════════════════════════════════╗
║  ██████╗ ██╗   ██╗██████╗        ║
║  ██╔══██╗██║   ██║██╔══██╗       ║
║  ██████╔╝██║   ██║██████╔╝       ║
║  ██╔══██╗██║   ██║██╔═══╝        ║
║  ██████╔╝╚██████╔╝██║            ║
║  ╚═════╝  ╚═════╝ ╚═╝            ║
║     BILIBILI UPLOAD WATCHER      ║
╚══════════════════════════════════╝`

	return logoStyle.Width(m.width).Render(logo)
}

func (m *Model) renderStatsPanel(width int) string {
	title := titleStyle.Render(" RUN ")

	m.bar.Width = width - 8
	if m.bar.Width < 10 {
		m.bar.Width = 10
	}

	stats := []string{
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Elapsed:"), statsValueStyle.Render(formatDuration(time.Since(m.sessionStartTime)))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Checked:"), statsValueStyle.Render(fmt.Sprintf("%d/%d", m.checked, m.total))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Updated:"), successStyle.Render(fmt.Sprintf("%d", m.updated))),
	}
	if m.failed > 0 {
		stats = append(stats, fmt.Sprintf("%s %s", statsLabelStyle.Render("Failed:"), errorStyle.Render(fmt.Sprintf("%d", m.failed))))
	}
	stats = append(stats, m.bar.ViewAs(m.Percent()))

	if m.done {
		stats = append(stats, successStyle.Render(fmt.Sprintf("✓ %d pages built", len(m.built))))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, stats...)),
	)
}

func (m *Model) renderBoardPanel(width int) string {
	title := titleStyle.Render(" CREATORS ")

	var rows []string
	for _, c := range m.CreatorsIn(CreatorChecking) {
		rows = append(rows, rowActiveStyle.Render(m.spinner.View()+" "+c.UID))
	}

	sections := []struct {
		state CreatorState
		label string
		style lipgloss.Style
	}{
		{CreatorUpdated, "↑ %d updated", successStyle},
		{CreatorFailed, "✗ %d failed", errorStyle},
		{CreatorUnchanged, "= %d unchanged", warningStyle},
	}
	for _, s := range sections {
		items := m.CreatorsIn(s.state)
		if len(items) == 0 {
			continue
		}
		rows = append(rows, s.style.Render(fmt.Sprintf(s.label, len(items))))
		for i, c := range items {
			if i == boardRows {
				rows = append(rows, rowDoneStyle.Render(fmt.Sprintf("... and %d more", len(items)-boardRows)))
				break
			}
			rows = append(rows, stateStyle(c.State).Render(creatorLabel(c)))
		}
	}

	if len(rows) == 0 {
		rows = append(rows, lipgloss.NewStyle().Foreground(dimWhite).Render("Waiting for the first creator..."))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, rows...)),
	)
}

// creatorLabel is "uid(name)" or "uid" when the name is unknown.
func creatorLabel(c *CreatorItem) string {
	if c.Name == "" {
		return c.UID
	}
	return c.UID + "(" + c.Name + ")"
}

func (m *Model) renderLogsPanel(width int) string {
	title := titleStyle.Render(" LOGS ")

	start := len(m.logMessages) - 10
	if start < 0 {
		start = 0
	}

	var logs []string
	for _, log := range m.logMessages[start:] {
		timestamp := logTimestampStyle.Render(log.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(log.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", log.Level))
		logs = append(logs, fmt.Sprintf("%s %s %s", timestamp, level, logMessageStyle.Render(truncate(log.Message, width-25))))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = lipgloss.NewStyle().Foreground(dimWhite).Render("No logs yet...")
	}

	logsHeight := m.height - 16
	if logsHeight < 5 {
		logsHeight = 5
	}

	return panelStyle.Width(width).Height(logsHeight).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if n < 4 || len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func (m *Model) renderHelp() string {
	help := `
  Keys:
    q/Q      - Quit
    ?        - Toggle this help
    ctrl+l   - Clear logs

  Board:
    ` + successStyle.Render("↑") + `        - New upload or new name
    ` + warningStyle.Render("=") + `        - No change
    ` + errorStyle.Render("✗") + `        - Skipped after an error
`

	return panelStyle.Width(m.width).Render(help)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "00:00:00"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
