package panels

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/history"
)

// RunSelectedMsg is emitted when the user selects a finished run.
// Defined here (not in the parent tui package) to avoid circular imports.
type RunSelectedMsg struct{ Summary history.RunSummary }

// runItem implements list.Item for a run summary.
type runItem struct {
	summary history.RunSummary
}

func (i runItem) Title() string {
	status := "✓"
	switch {
	case i.summary.Aborted:
		status = "✗"
	case i.summary.Failed > 0:
		status = "⚠"
	}
	return fmt.Sprintf("%s %s %s", i.summary.EndAt.Format("15:04"), i.summary.Phase, status)
}

func (i runItem) Description() string {
	if i.summary.Aborted {
		return "aborted"
	}
	d := fmt.Sprintf("%d✓ %d⚠ %d✗", i.summary.Succeeded, i.summary.Skipped, i.summary.Failed)
	if i.summary.XP > 0 {
		d += fmt.Sprintf(" +%dxp", i.summary.XP)
	}
	return d
}

func (i runItem) FilterValue() string { return i.summary.RunID }

// runDelegate renders one compact line per run.
type runDelegate struct {
	accent lipgloss.Color
}

func (d runDelegate) Height() int                             { return 1 }
func (d runDelegate) Spacing() int                            { return 0 }
func (d runDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d runDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(runItem)
	if !ok {
		return
	}
	s := fmt.Sprintf("%s  %s", item.Title(), item.Description())
	if index == m.Index() {
		s = lipgloss.NewStyle().Bold(true).Foreground(d.accent).Render("> " + s)
	} else {
		s = "  " + s
	}
	fmt.Fprint(w, s)
}

// RunsPanel lists finished runs, newest first.
type RunsPanel struct {
	list   list.Model
	runs   []history.RunSummary // oldest first
	width  int
	height int
}

// NewRunsPanel creates an empty runs panel. accent colors the cursor.
func NewRunsPanel(accent string, w, h int) RunsPanel {
	l := list.New(nil, runDelegate{accent: lipgloss.Color(accent)}, w, h)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	return RunsPanel{list: l, width: w, height: h}
}

// AddRun records a finished run.
func (p RunsPanel) AddRun(s history.RunSummary) RunsPanel {
	p.runs = append(p.runs, s)
	p.list.SetItems(p.buildItems())
	return p
}

// Len returns the number of runs shown.
func (p RunsPanel) Len() int { return len(p.runs) }

func (p RunsPanel) buildItems() []list.Item {
	items := make([]list.Item, len(p.runs))
	for i, s := range p.runs {
		items[len(p.runs)-1-i] = runItem{summary: s}
	}
	return items
}

// SelectedRun returns the highlighted run, or nil.
func (p RunsPanel) SelectedRun() *history.RunSummary {
	if item, ok := p.list.SelectedItem().(runItem); ok {
		s := item.summary
		return &s
	}
	return nil
}

// SetSize resizes the panel.
func (p RunsPanel) SetSize(w, h int) RunsPanel {
	p.width = w
	p.height = h
	p.list.SetSize(w, h)
	return p
}

// Update handles key/mouse messages for the panel.
func (p RunsPanel) Update(msg tea.Msg) (RunsPanel, tea.Cmd) {
	var cmd tea.Cmd
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "j", "down":
			p.list, cmd = p.list.Update(tea.KeyMsg{Type: tea.KeyDown})
			return p, cmd
		case "k", "up":
			p.list, cmd = p.list.Update(tea.KeyMsg{Type: tea.KeyUp})
			return p, cmd
		case "enter":
			if sel := p.SelectedRun(); sel != nil {
				s := *sel
				return p, func() tea.Msg { return RunSelectedMsg{Summary: s} }
			}
			return p, nil
		}
	}
	p.list, cmd = p.list.Update(msg)
	return p, cmd
}

// View renders the runs list.
func (p RunsPanel) View() string {
	if len(p.runs) == 0 {
		return lipgloss.NewStyle().
			Width(p.width).Height(p.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(lipgloss.Color("#888888")).
			Render("No runs yet")
	}
	return p.list.View()
}
