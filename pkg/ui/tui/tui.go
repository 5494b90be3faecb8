package tui

import (
	"context"
	"fmt"

	"bup/pkg/ui"

	tea "github.com/charmbracelet/bubbletea"
)

var _ ui.Reporter = (*TUI)(nil)

// TUI represents the terminal user interface. It implements ui.Reporter by
// forwarding every event to the running program.
type TUI struct {
	program *tea.Program
	model   *Model
}

// NewTUI creates a new TUI instance
func NewTUI(opts ...tea.ProgramOption) *TUI {
	model := NewModel()
	if len(opts) == 0 {
		opts = []tea.ProgramOption{tea.WithAltScreen()}
	}
	return &TUI{
		program: tea.NewProgram(model, opts...),
		model:   model,
	}
}

// Run starts the program, runs work against it and returns work's error.
// Quitting the program cancels the context passed to work. The program
// stays up after work returns until the user quits.
func (t *TUI) Run(ctx context.Context, work func(ctx context.Context, r ui.Reporter) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- work(ctx, t)
	}()

	_, runErr := t.program.Run()
	cancel()
	workErr := <-errCh
	if workErr != nil {
		return workErr
	}
	return runErr
}

// Stop stops the TUI gracefully
func (t *TUI) Stop() {
	t.program.Quit()
}

// Send sends a message to the TUI
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

func (t *TUI) StartRun(total int) {
	t.Send(RunStartMsg{Total: total})
}

func (t *TUI) StartCreator(uid string) {
	t.Send(CreatorStartMsg{UID: uid})
}

func (t *TUI) CompleteCreator(uid, name string, updated bool) {
	t.Send(CreatorDoneMsg{UID: uid, Name: name, Updated: updated})
}

func (t *TUI) FailCreator(uid string, err error) {
	t.Send(CreatorErrorMsg{UID: uid, Error: err})
}

func (t *TUI) FinishRun(built []string) {
	t.Send(RunFinishedMsg{Built: built})
}

// Log sends a log message to the TUI
func (t *TUI) Log(level, format string, args ...interface{}) {
	t.Send(LogMsg{Level: level, Message: fmt.Sprintf(format, args...)})
}

// LogInfo logs an info message
func (t *TUI) LogInfo(format string, args ...interface{}) {
	t.Log("INFO", format, args...)
}

// LogSuccess logs a success message
func (t *TUI) LogSuccess(format string, args ...interface{}) {
	t.Log("SUCCESS", format, args...)
}

// LogWarning logs a warning message
func (t *TUI) LogWarning(format string, args ...interface{}) {
	t.Log("WARN", format, args...)
}

// LogError logs an error message
func (t *TUI) LogError(format string, args ...interface{}) {
	t.Log("ERROR", format, args...)
}
