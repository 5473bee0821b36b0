// ABOUTME: Tests for TUI model and state management
// ABOUTME: Tests progress updates, message handling, and rendering
package ui

import (
	"errors"
	"strings"
	"testing"

	"github.com/Resonate-Protocol/resample-go/internal/convert"
	tea "github.com/charmbracelet/bubbletea"
)

func testJobs() []convert.Job {
	return []convert.Job{
		{ID: "a", Input: "music/first.mp3", Rate: 48000},
		{ID: "b", Input: "second.flac", Rate: 22050},
		{ID: "c", Input: "", Rate: 16000},
	}
}

func TestNewModel(t *testing.T) {
	model := NewModel(testJobs(), nil)

	if len(model.rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(model.rows))
	}
	for _, row := range model.rows {
		if row.state != stateQueued {
			t.Errorf("expected %s queued, got %s", row.name, row.state)
		}
	}
	if model.rows[0].name != "first.mp3" {
		t.Errorf("expected base name, got %q", model.rows[0].name)
	}
	if model.rows[2].name != "tone" {
		t.Errorf("expected tone, got %q", model.rows[2].name)
	}
}

func TestApplyProgress(t *testing.T) {
	model := NewModel(testJobs(), nil)

	model.applyProgress(convert.Progress{JobID: "a", Done: 500, Total: 1000})
	if model.rows[0].state != stateRunning {
		t.Errorf("expected running, got %s", model.rows[0].state)
	}
	if model.rows[0].done != 500 || model.rows[0].total != 1000 {
		t.Errorf("unexpected progress %d/%d", model.rows[0].done, model.rows[0].total)
	}

	model.applyProgress(convert.Progress{JobID: "a", Done: 1000, Total: 1000, Finished: true})
	if model.rows[0].state != stateDone {
		t.Errorf("expected done, got %s", model.rows[0].state)
	}

	model.applyProgress(convert.Progress{JobID: "b", Finished: true, Err: errors.New("bad header")})
	if model.rows[1].state != stateFailed {
		t.Errorf("expected failed, got %s", model.rows[1].state)
	}
	if model.rows[1].errMsg != "bad header" {
		t.Errorf("unexpected error message %q", model.rows[1].errMsg)
	}

	done, failed := model.counts()
	if done != 1 || failed != 1 {
		t.Errorf("expected 1 done 1 failed, got %d %d", done, failed)
	}
}

func TestApplyProgressUnknownJob(t *testing.T) {
	model := NewModel(testJobs(), nil)
	model.applyProgress(convert.Progress{JobID: "zzz", Done: 5})

	for _, row := range model.rows {
		if row.state != stateQueued {
			t.Errorf("unknown job changed row %s", row.name)
		}
	}
}

func TestUpdateProgressMsg(t *testing.T) {
	model := NewModel(testJobs(), nil)

	updated, cmd := model.Update(ProgressMsg{JobID: "b", Done: 10, Total: 40})
	if cmd != nil {
		t.Error("expected no command for progress")
	}
	m := updated.(Model)
	if m.rows[1].done != 10 {
		t.Errorf("expected done 10, got %d", m.rows[1].done)
	}
}

func TestUpdateDoneMsgQuits(t *testing.T) {
	model := NewModel(testJobs(), nil)

	updated, cmd := model.Update(DoneMsg{})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if !updated.(Model).finished {
		t.Error("expected finished after DoneMsg")
	}
}

func TestQuitKeySignals(t *testing.T) {
	ctrl := NewControl()
	model := NewModel(testJobs(), ctrl)

	updated, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if !updated.(Model).quitting {
		t.Error("expected quitting")
	}

	select {
	case <-ctrl.Quit:
	default:
		t.Error("expected quit signal")
	}
}

func TestQuitKeyWithoutControl(t *testing.T) {
	model := NewModel(testJobs(), nil)
	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Error("expected quit command")
	}
}

func TestWindowSize(t *testing.T) {
	model := NewModel(testJobs(), nil)
	updated, _ := model.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m := updated.(Model)
	if m.width != 100 || m.height != 40 {
		t.Errorf("expected 100x40, got %dx%d", m.width, m.height)
	}
}

func TestView(t *testing.T) {
	model := NewModel(testJobs(), nil)
	model.applyProgress(convert.Progress{JobID: "a", Done: 250, Total: 1000})
	model.applyProgress(convert.Progress{JobID: "b", Finished: true, Err: errors.New("decode failed")})

	view := model.View()
	for _, want := range []string{"first.mp3", "25%", "decode failed", "queued", "0/3 done", "1 failed"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestViewUnknownLength(t *testing.T) {
	model := NewModel(testJobs(), nil)
	model.applyProgress(convert.Progress{JobID: "c", Done: 4096})

	if !strings.Contains(model.View(), "4096 frames") {
		t.Error("expected frame count for job without a known length")
	}
}

func TestRenderBar(t *testing.T) {
	tests := []struct {
		value, max, width int
		filled            int
	}{
		{0, 100, 10, 0},
		{50, 100, 10, 5},
		{100, 100, 10, 10},
		{1, 1, 20, 20},
	}

	for _, tt := range tests {
		bar := renderBar(tt.value, tt.max, tt.width)
		if got := strings.Count(bar, "█"); got != tt.filled {
			t.Errorf("renderBar(%d, %d, %d): expected %d filled, got %d", tt.value, tt.max, tt.width, tt.filled, got)
		}
		if got := strings.Count(bar, "█") + strings.Count(bar, "░"); got != tt.width {
			t.Errorf("expected width %d, got %d", tt.width, got)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input  string
		length int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
	}

	for _, tt := range tests {
		if got := truncate(tt.input, tt.length); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.length, got, tt.want)
		}
	}
}
