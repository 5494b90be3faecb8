package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// ProgressDisplay is the line-oriented Reporter used when the TUI is off.
type ProgressDisplay struct {
	mu        sync.Mutex
	out       io.Writer
	total     int
	checked   int
	updated   int
	failed    int
	startTime time.Time
	isDebug   bool
}

// NewProgressDisplay writes to out. In debug mode every creator gets its
// own line instead of a rewritten status line.
func NewProgressDisplay(out io.Writer, debug bool) *ProgressDisplay {
	return &ProgressDisplay{
		out:       out,
		startTime: time.Now(),
		isDebug:   debug,
	}
}

func (p *ProgressDisplay) StartRun(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.startTime = time.Now()
	fmt.Fprintf(p.out, "%s Checking %d creators\n", Magenta("→"), total)
}

func (p *ProgressDisplay) StartCreator(uid string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isDebug {
		fmt.Fprintf(p.out, "%s %s\n", Dim("…"), uid)
		return
	}
	p.printProgress(uid)
}

func (p *ProgressDisplay) CompleteCreator(uid, name string, updated bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.checked++
	if updated {
		p.updated++
	}
	if p.isDebug {
		mark := Dim("=")
		if updated {
			mark = Green("↑")
		}
		fmt.Fprintf(p.out, "%s %s(%s)\n", mark, uid, name)
		return
	}
	p.printProgress("")
}

func (p *ProgressDisplay) FailCreator(uid string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.checked++
	p.failed++
	if p.isDebug {
		fmt.Fprintf(p.out, "%s %s: %v\n", Red("✗"), uid, err)
		return
	}
	p.printProgress("")
}

func (p *ProgressDisplay) FinishRun(built []string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.isDebug {
		fmt.Fprintln(p.out)
	}
	fmt.Fprintf(p.out, "%s %d checked, %d updated, %d built in %s\n",
		Green("✓"), p.checked, p.updated, len(built), formatDuration(time.Since(p.startTime)))
	if p.failed > 0 {
		fmt.Fprintf(p.out, "  %s %s\n", Dim("•"), Red(fmt.Sprintf("%d creators failed", p.failed)))
	}
}

func (p *ProgressDisplay) LogInfo(format string, args ...interface{}) {
	p.log(Cyan("i"), format, args...)
}

func (p *ProgressDisplay) LogSuccess(format string, args ...interface{}) {
	p.log(Green("✓"), format, args...)
}

func (p *ProgressDisplay) LogWarning(format string, args ...interface{}) {
	p.log(Yellow("⚠"), format, args...)
}

func (p *ProgressDisplay) LogError(format string, args ...interface{}) {
	p.log(Red("✗"), format, args...)
}

func (p *ProgressDisplay) log(mark, format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prefix := ""
	if !p.isDebug && p.checked < p.total {
		prefix = "\n"
	}
	fmt.Fprintf(p.out, "%s%s %s\n", prefix, mark, fmt.Sprintf(format, args...))
}

// printProgress rewrites the status line.
func (p *ProgressDisplay) printProgress(current string) {
	const barWidth = 20
	filled := 0
	if p.total > 0 {
		filled = p.checked * barWidth / p.total
	}
	bar := strings.Repeat("━", filled) + strings.Repeat("─", barWidth-filled)

	line := fmt.Sprintf("[%s] %d/%d • %d updated", bar, p.checked, p.total, p.updated)
	if current != "" {
		line += " • " + Cyan(current)
	}
	if p.failed > 0 {
		line += " • " + Red(fmt.Sprintf("%d errors", p.failed))
	}
	fmt.Fprintf(p.out, "\r%s\r%s", strings.Repeat(" ", 80), line)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
