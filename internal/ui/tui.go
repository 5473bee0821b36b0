// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program for batch conversion progress
package ui

import (
	"time"

	"github.com/Resonate-Protocol/resample-go/internal/convert"
	tea "github.com/charmbracelet/bubbletea"
)

// Control carries the quit signal from the TUI to the batch runner
type Control struct {
	Quit chan struct{}
}

// NewControl creates a new control handler
func NewControl() *Control {
	return &Control{Quit: make(chan struct{}, 1)}
}

// NewModel creates a new TUI model with every job queued
func NewModel(jobs []convert.Job, ctrl *Control) Model {
	m := Model{
		rows:      make([]jobRow, len(jobs)),
		index:     make(map[string]int, len(jobs)),
		startTime: time.Now(),
	}
	if ctrl != nil {
		m.quitChan = ctrl.Quit
	}
	for i, job := range jobs {
		m.rows[i] = jobRow{id: job.ID, name: jobName(job), rate: job.Rate, state: stateQueued}
		m.index[job.ID] = i
	}
	return m
}

// Run creates the TUI program; the caller runs it and feeds it
// ProgressMsg and DoneMsg through Send
func Run(jobs []convert.Job, ctrl *Control) *tea.Program {
	return tea.NewProgram(NewModel(jobs, ctrl), tea.WithAltScreen())
}
