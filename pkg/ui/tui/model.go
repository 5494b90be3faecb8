package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// CreatorState is where a creator is in the current run.
type CreatorState int

const (
	CreatorPending CreatorState = iota
	CreatorChecking
	CreatorUpdated
	CreatorUnchanged
	CreatorFailed
)

func (s CreatorState) String() string {
	switch s {
	case CreatorPending:
		return "pending"
	case CreatorChecking:
		return "checking"
	case CreatorUpdated:
		return "updated"
	case CreatorUnchanged:
		return "unchanged"
	case CreatorFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CreatorItem is one row on the board.
type CreatorItem struct {
	UID       string
	Name      string
	State     CreatorState
	StartTime time.Time
	Duration  time.Duration
	Error     error
}

// Model represents the TUI model
type Model struct {
	spinner spinner.Model
	bar     progress.Model

	creators map[string]*CreatorItem
	order    []string
	total    int

	checked int
	updated int
	failed  int
	built   []string
	done    bool

	sessionStartTime time.Time

	width          int
	height         int
	showHelp       bool
	logMessages    []LogMessage
	maxLogMessages int
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// NewModel creates a new TUI model
func NewModel() *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(neonCyan)

	return &Model{
		spinner:          s,
		bar:              progress.New(progress.WithDefaultGradient()),
		creators:         make(map[string]*CreatorItem),
		sessionStartTime: time.Now(),
		maxLogMessages:   50,
	}
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// SetTotal sets the number of creators the run will check.
func (m *Model) SetTotal(total int) {
	m.total = total
}

// creator returns the row for uid, adding it in arrival order.
func (m *Model) creator(uid string) *CreatorItem {
	if c, ok := m.creators[uid]; ok {
		return c
	}
	c := &CreatorItem{UID: uid, State: CreatorPending}
	m.creators[uid] = c
	m.order = append(m.order, uid)
	return c
}

// StartCreator marks uid as being checked.
func (m *Model) StartCreator(uid string) {
	c := m.creator(uid)
	c.State = CreatorChecking
	c.StartTime = time.Now()
}

// CompleteCreator records a finished check.
func (m *Model) CompleteCreator(uid, name string, updated bool) {
	c := m.creator(uid)
	c.Name = name
	c.Duration = since(c.StartTime)
	if updated {
		c.State = CreatorUpdated
		m.updated++
	} else {
		c.State = CreatorUnchanged
	}
	m.checked++
}

// FailCreator records a skipped creator.
func (m *Model) FailCreator(uid string, err error) {
	c := m.creator(uid)
	c.State = CreatorFailed
	c.Error = err
	c.Duration = since(c.StartTime)
	m.checked++
	m.failed++
}

// Finish records the creators whose pages were built.
func (m *Model) Finish(built []string) {
	m.built = built
	m.done = true
}

func since(t time.Time) time.Duration {
	if t.IsZero() {
		return 0
	}
	return time.Since(t)
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	color := dimWhite
	switch level {
	case "ERROR":
		color = lipgloss.Color("#FF0000")
	case "WARN":
		color = neonOrange
	case "SUCCESS":
		color = neonGreen
	case "INFO":
		color = neonCyan
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   color,
	})

	// Keep only the last N messages
	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// CreatorsIn returns the rows in state, in arrival order.
func (m *Model) CreatorsIn(state CreatorState) []*CreatorItem {
	var out []*CreatorItem
	for _, uid := range m.order {
		if c := m.creators[uid]; c.State == state {
			out = append(out, c)
		}
	}
	return out
}

// Percent is the share of creators checked, in [0, 1].
func (m *Model) Percent() float64 {
	if m.total <= 0 {
		if m.done {
			return 1
		}
		return 0
	}
	p := float64(m.checked) / float64(m.total)
	if p > 1 {
		p = 1
	}
	return p
}
