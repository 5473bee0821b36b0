// ABOUTME: Bubbletea model for the batch conversion TUI
// ABOUTME: Tracks per-job progress and renders it with lipgloss
package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Resonate-Protocol/resample-go/internal/convert"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Job states
const (
	stateQueued  = "queued"
	stateRunning = "running"
	stateDone    = "done"
	stateFailed  = "failed"
)

// jobRow is one line of the job table
type jobRow struct {
	id     string
	name   string
	rate   int
	state  string
	done   int64
	total  int64
	errMsg string
}

// Model represents the TUI state
type Model struct {
	rows  []jobRow
	index map[string]int

	startTime time.Time
	elapsed   time.Duration
	finished  bool
	quitting  bool
	quitChan  chan struct{}

	// Dimensions
	width  int
	height int
}

// ProgressMsg carries a job progress update
type ProgressMsg convert.Progress

// DoneMsg tells the TUI the batch is over
type DoneMsg struct{}

type tickMsg time.Time

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tickEvery()
}

func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		if m.finished {
			return m, nil
		}
		m.elapsed = time.Since(m.startTime)
		return m, tickEvery()
	case ProgressMsg:
		m.applyProgress(convert.Progress(msg))
	case DoneMsg:
		m.finished = true
		m.elapsed = time.Since(m.startTime)
		return m, tea.Quit
	}

	return m, nil
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		select {
		case m.quitChan <- struct{}{}:
		default:
		}
		return m, tea.Quit
	}
	return m, nil
}

// applyProgress updates the row of the reporting job
func (m *Model) applyProgress(p convert.Progress) {
	i, ok := m.index[p.JobID]
	if !ok {
		return
	}
	row := &m.rows[i]
	row.done = p.Done
	if p.Total > 0 {
		row.total = p.Total
	}

	switch {
	case p.Err != nil:
		row.state = stateFailed
		row.errMsg = p.Err.Error()
	case p.Finished:
		row.state = stateDone
	default:
		row.state = stateRunning
	}
}

// counts returns the number of finished and failed jobs
func (m Model) counts() (done, failed int) {
	for _, row := range m.rows {
		switch row.state {
		case stateDone:
			done++
		case stateFailed:
			failed++
		}
	}
	return done, failed
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle   = lipgloss.NewStyle().Faint(true)
)

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Cancelling conversions...\n"
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Resample"))
	b.WriteString("\n\n")

	done, failed := m.counts()
	b.WriteString(headerStyle.Render("Jobs: "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%d/%d done", done, len(m.rows))))
	if failed > 0 {
		b.WriteString(failedStyle.Render(fmt.Sprintf(", %d failed", failed)))
	}
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Elapsed: "))
	b.WriteString(valueStyle.Render(m.elapsed.Round(time.Second).String()))
	b.WriteString("\n\n")

	for _, row := range m.rows {
		b.WriteString(m.renderRow(row))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("Press 'q' or Ctrl+C to cancel"))

	return b.String()
}

// renderRow renders one job with its progress bar
func (m Model) renderRow(row jobRow) string {
	name := fmt.Sprintf("%-28s", truncate(row.name, 28))
	target := fmt.Sprintf("%6dHz", row.rate)

	switch row.state {
	case stateFailed:
		return fmt.Sprintf("  %s %s %s", name, target, failedStyle.Render("✗ "+truncate(row.errMsg, 40)))
	case stateDone:
		return fmt.Sprintf("  %s %s [%s] %s", name, target, renderBar(1, 1, 20), doneStyle.Render("✓"))
	case stateQueued:
		return fmt.Sprintf("  %s %s %s", name, target, valueStyle.Render(stateQueued))
	}

	if row.total <= 0 {
		return fmt.Sprintf("  %s %s %s", name, target, valueStyle.Render(fmt.Sprintf("%d frames", row.done)))
	}
	percent := min(100, int(row.done*100/row.total))
	return fmt.Sprintf("  %s %s [%s] %3d%%", name, target, renderBar(percent, 100, 20), percent)
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := (value * width) / max
	var b strings.Builder
	for i := 0; i < width; i++ {
		if i < filled {
			b.WriteString("█")
		} else {
			b.WriteString("░")
		}
	}
	return b.String()
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func jobName(job convert.Job) string {
	if job.Input == "" {
		return "tone"
	}
	return filepath.Base(job.Input)
}
