// Package components holds reusable bubbletea widgets for the dashboard.
package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// DefaultMaxLines bounds the live log of a long-running daemon.
const DefaultMaxLines = 2000

// LogView is a bounded, scrollable list of pre-styled event lines. While
// following, it stays pinned to the newest line; scrolling up pauses that
// until 'f' is pressed.
type LogView struct {
	vp       viewport.Model
	lines    []string
	follow   bool
	maxLines int
}

// NewLogView returns a following LogView of size w×h capped at
// DefaultMaxLines.
func NewLogView(w, h int) LogView {
	return LogView{vp: viewport.New(w, h), follow: true, maxLines: DefaultMaxLines}
}

// WithMaxLines changes the cap; n <= 0 keeps every line.
func (v LogView) WithMaxLines(n int) LogView {
	v.maxLines = n
	return v.replace(v.lines)
}

// AppendLine adds one rendered line at the bottom.
func (v LogView) AppendLine(rendered string) LogView {
	return v.replace(append(v.lines, rendered))
}

// SetContent replaces the log with a copy of lines.
func (v LogView) SetContent(lines []string) LogView {
	return v.replace(append([]string(nil), lines...))
}

// replace installs lines (owned by the view from here on), enforcing the
// cap and re-pinning to the bottom while following.
func (v LogView) replace(lines []string) LogView {
	if v.maxLines > 0 && len(lines) > v.maxLines {
		lines = append([]string(nil), lines[len(lines)-v.maxLines:]...)
	}
	v.lines = lines
	v.vp.SetContent(strings.Join(lines, "\n"))
	return v.pin()
}

func (v LogView) pin() LogView {
	if v.follow {
		v.vp.GotoBottom()
	}
	return v
}

// Lines returns a copy of the current lines.
func (v LogView) Lines() []string {
	return append([]string(nil), v.lines...)
}

// ToggleFollow flips follow mode, jumping to the bottom when it turns on.
func (v LogView) ToggleFollow() LogView {
	v.follow = !v.follow
	return v.pin()
}

// SetSize resizes the viewport.
func (v LogView) SetSize(w, h int) LogView {
	v.vp.Width, v.vp.Height = w, h
	return v.pin()
}

// Following reports whether the view tracks new lines.
func (v LogView) Following() bool { return v.follow }

// Update forwards scroll keys and mouse wheel events to the viewport.
func (v LogView) Update(msg tea.Msg) (LogView, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && k.String() == "f" {
		return v.ToggleFollow(), nil
	}
	var cmd tea.Cmd
	v.vp, cmd = v.vp.Update(msg)
	switch msg.(type) {
	case tea.KeyMsg, tea.MouseMsg:
		// Any user scroll that leaves the bottom pauses following.
		if !v.vp.AtBottom() {
			v.follow = false
		}
	}
	return v, cmd
}

func (v LogView) View() string { return v.vp.View() }
