package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Message types for the TUI

// RunStartMsg announces the number of creators in the run.
type RunStartMsg struct {
	Total int
}

// CreatorStartMsg is sent when a creator check begins.
type CreatorStartMsg struct {
	UID string
}

// CreatorDoneMsg is sent when a creator check completes.
type CreatorDoneMsg struct {
	UID     string
	Name    string
	Updated bool
}

// CreatorErrorMsg is sent when a creator is skipped.
type CreatorErrorMsg struct {
	UID   string
	Error error
}

// RunFinishedMsg carries the creators whose pages were built.
type RunFinishedMsg struct {
	Built []string
}

// LogMsg is sent to add a log message
type LogMsg struct {
	Level   string
	Message string
}

// TickMsg is sent periodically to update the UI
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		if m.done {
			return m, nil
		}
		return m, tickCmd()

	case RunStartMsg:
		m.SetTotal(msg.Total)
		return m, nil

	case CreatorStartMsg:
		m.StartCreator(msg.UID)
		return m, nil

	case CreatorDoneMsg:
		m.CompleteCreator(msg.UID, msg.Name, msg.Updated)
		if msg.Updated {
			m.AddLogMessage("SUCCESS", "Updated: "+msg.UID+"("+msg.Name+")")
		}
		return m, nil

	case CreatorErrorMsg:
		m.FailCreator(msg.UID, msg.Error)
		m.AddLogMessage("ERROR", "Skipped "+msg.UID+": "+msg.Error.Error())
		return m, nil

	case RunFinishedMsg:
		m.Finish(msg.Built)
		return m, nil

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.logMessages = nil
		return m, nil
	}

	return m, nil
}

// tickCmd returns a command that sends a tick message
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
