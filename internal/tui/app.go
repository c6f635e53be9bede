package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/event"
	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/history"
	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/tui/components"
	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/tui/panels"
)

// Options configures the dashboard. Every field is optional.
type Options struct {
	Title       string
	AccentColor string
	Location    *time.Location

	// History reads back finished runs when one is selected.
	History history.Reader

	// Controller enables the R/S/C phase trigger keys.
	Controller PhaseController

	// NextRun reports the next scheduled phase after now.
	NextRun func(now time.Time) (event.Phase, time.Time, bool)
}

// phaseStatus tracks what the dashboard knows about one phase.
type phaseStatus struct {
	state PhaseState
	last  history.RunSummary
}

// Model is the root bubbletea model for the quest dashboard.
type Model struct {
	events     <-chan event.Entry
	history    history.Reader
	controller PhaseController
	nextRun    func(time.Time) (event.Phase, time.Time, bool)

	runsPanel panels.RunsPanel
	liveLog   components.LogView
	runLog    components.LogView
	viewing   string // run ID shown instead of the live log

	layout Layout
	focus  FocusTarget
	theme  Theme
	width  int
	height int

	phases  map[event.Phase]phaseStatus
	started map[string]time.Time // run ID -> PhaseStart timestamp
	xpToday int
	xpDay   string

	title     string
	loc       *time.Location
	startedAt time.Time
	now       time.Time

	closed bool
}

// New creates the dashboard Model reading entries from events.
func New(events <-chan event.Entry, opts Options) Model {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	accent := opts.AccentColor
	if accent == "" {
		accent = defaultAccentColor
	}
	now := time.Now().In(loc)
	layout := Calculate(80, 24)
	runsW, runsH := innerDims(layout.Runs)
	logW, logH := innerDims(layout.Log)

	phases := make(map[event.Phase]phaseStatus, len(event.Phases))
	for _, p := range event.Phases {
		phases[p] = phaseStatus{state: StateIdle}
	}

	return Model{
		events:     events,
		history:    opts.History,
		controller: opts.Controller,
		nextRun:    opts.NextRun,
		runsPanel:  panels.NewRunsPanel(accent, runsW, runsH),
		liveLog:    components.NewLogView(logW, logH),
		runLog:     components.NewLogView(logW, logH),
		layout:     layout,
		focus:      FocusLog,
		theme:      NewTheme(accent),
		width:      80,
		height:     24,
		phases:     phases,
		started:    make(map[string]time.Time),
		xpDay:      now.Format(time.DateOnly),
		title:      opts.Title,
		loc:        loc,
		startedAt:  now,
		now:        now,
	}
}

// Closed reports whether the event channel has been closed.
func (m Model) Closed() bool { return m.closed }

// Init returns the initial commands: event listener + clock ticker.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.events), tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForEvent blocks on the event channel and returns the next message.
func waitForEvent(ch <-chan event.Entry) tea.Cmd {
	return func() tea.Msg {
		entry, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(entry)
	}
}

// Update handles all incoming bubbletea messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg)
	case tea.KeyMsg:
		return m.handleKey(msg)
	case eventMsg:
		m = m.handleEvent(event.Entry(msg))
		return m, waitForEvent(m.events)
	case eventsClosedMsg:
		// The daemon stopped feeding events; keep the dashboard open until q.
		m.closed = true
		return m, nil
	case tickMsg:
		m.now = time.Time(msg).In(m.loc)
		m.rollDay(m.now)
		return m, tickCmd()
	case panels.RunSelectedMsg:
		return m.handleRunSelected(msg)
	case runLogLoadedMsg:
		return m.handleRunLogLoaded(msg)
	}
	return m.delegateToFocused(msg)
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.layout = Calculate(msg.Width, msg.Height)
	if !m.layout.TooSmall {
		runsW, runsH := innerDims(m.layout.Runs)
		logW, logH := innerDims(m.layout.Log)
		m.runsPanel = m.runsPanel.SetSize(runsW, runsH)
		m.liveLog = m.liveLog.SetSize(logW, logH)
		m.runLog = m.runLog.SetSize(logW, logH)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if phase, ok := triggerKeys[key]; ok {
		if m.controller != nil && m.phases[phase].state != StateRunning {
			m.controller.Trigger(phase)
		}
		return m, nil
	}
	if f, ok := focusKeys[key]; ok {
		m.focus = f
		return m, nil
	}
	switch key {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.viewing = ""
		return m, nil
	case "tab":
		m.focus = m.focus.Next()
		return m, nil
	case "shift+tab":
		m.focus = m.focus.Prev()
		return m, nil
	}
	return m.delegateToFocused(msg)
}

func (m Model) delegateToFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case FocusRuns:
		m.runsPanel, cmd = m.runsPanel.Update(msg)
	case FocusLog:
		if m.viewing != "" {
			m.runLog, cmd = m.runLog.Update(msg)
		} else {
			m.liveLog, cmd = m.liveLog.Update(msg)
		}
	}
	return m, cmd
}

func (m Model) transition(p event.Phase, next PhaseState) {
	st, ok := m.phases[p]
	if !ok {
		return
	}
	if st.state.CanTransitionTo(next) {
		st.state = next
		m.phases[p] = st
	}
}

func (m Model) handleEvent(entry event.Entry) Model {
	switch entry.Kind {
	case event.KindPhaseStart:
		m.transition(entry.Phase, StateRunning)
		m.started[entry.RunID] = entry.Timestamp

	case event.KindPhaseDone, event.KindPhaseFailed:
		aborted := entry.Kind == event.KindPhaseFailed
		if aborted {
			m.transition(entry.Phase, StateFailed)
		} else {
			m.transition(entry.Phase, StateDone)
		}
		summary := history.RunSummary{
			RunID:     entry.RunID,
			Phase:     entry.Phase,
			StartAt:   m.started[entry.RunID],
			EndAt:     entry.Timestamp,
			Aborted:   aborted,
			Message:   entry.Message,
			Succeeded: entry.Succeeded,
			Skipped:   entry.Skipped,
			Failed:    entry.Failed,
			XP:        entry.XPTotal,
		}
		delete(m.started, entry.RunID)
		if st, ok := m.phases[entry.Phase]; ok {
			st.last = summary
			m.phases[entry.Phase] = st
		}
		m.runsPanel = m.runsPanel.AddRun(summary)

	case event.KindSupervisor:
		if strings.Contains(entry.Message, "retrying") {
			m.transition(entry.Phase, StateRetrying)
		}

	case event.KindXPGranted:
		ts := entry.Timestamp
		if ts.IsZero() {
			ts = m.now
		}
		m.rollDay(ts.In(m.loc))
		m.xpToday += entry.XP
	}

	m.liveLog = m.liveLog.AppendLine(m.theme.RenderLogLine(entry, m.layout.Log.Width))
	return m
}

// rollDay zeroes the XP counter when t falls on a later day than the one
// being counted.
func (m *Model) rollDay(t time.Time) {
	day := t.Format(time.DateOnly)
	if day > m.xpDay {
		m.xpDay = day
		m.xpToday = 0
	}
}

func (m Model) handleRunSelected(msg panels.RunSelectedMsg) (tea.Model, tea.Cmd) {
	if m.history == nil {
		return m, nil
	}
	reader := m.history
	summary := msg.Summary
	return m, func() tea.Msg {
		entries, err := reader.RunLog(summary.RunID)
		return runLogLoadedMsg{Summary: summary, Entries: entries, Err: err}
	}
}

func (m Model) handleRunLogLoaded(msg runLogLoadedMsg) (tea.Model, tea.Cmd) {
	lines := renderRunSummary(msg.Summary)
	if msg.Err != nil {
		lines = append(lines, errorStyle.Render(fmt.Sprintf("cannot load run: %v", msg.Err)))
	}
	for _, e := range msg.Entries {
		lines = append(lines, m.theme.RenderLogLine(e, m.layout.Log.Width))
	}
	m.runLog = m.runLog.SetContent(lines)
	m.viewing = msg.Summary.RunID
	m.focus = FocusLog
	return m, nil
}

// renderRunSummary formats a run summary as key-value lines above its log.
func renderRunSummary(s history.RunSummary) []string {
	outcome := "finished"
	if s.Aborted {
		outcome = "aborted"
	}
	return []string{
		fmt.Sprintf("%-10s %s", "Phase:", s.Phase),
		fmt.Sprintf("%-10s %s", "Run:", s.RunID),
		fmt.Sprintf("%-10s %s in %s", "Outcome:", outcome, panels.FormatElapsed(s.Duration())),
		fmt.Sprintf("%-10s %d succeeded, %d skipped, %d failed, %d XP", "Rows:", s.Succeeded, s.Skipped, s.Failed, s.XP),
		"",
	}
}

// overallState summarises the phases for the header: running wins, then
// retrying, then failed.
func (m Model) overallState() PhaseState {
	best := StateIdle
	rank := map[PhaseState]int{StateIdle: 0, StateDone: 1, StateFailed: 2, StateRetrying: 3, StateRunning: 4}
	for _, st := range m.phases {
		if rank[st.state] > rank[best] {
			best = st.state
		}
	}
	return best
}

func (m Model) phaseRows() []panels.PhaseRow {
	rows := make([]panels.PhaseRow, 0, len(event.Phases))
	for _, p := range event.Phases {
		st := m.phases[p]
		rows = append(rows, panels.PhaseRow{
			Name:      string(p),
			Symbol:    st.state.Symbol(),
			Label:     st.state.Label(),
			Succeeded: st.last.Succeeded,
			Skipped:   st.last.Skipped,
			Failed:    st.last.Failed,
			LastAt:    st.last.EndAt,
		})
	}
	return rows
}

// View renders the dashboard.
func (m Model) View() string {
	if m.layout.TooSmall {
		msg := fmt.Sprintf("Terminal too small (%dx%d).\nPlease resize to at least 80x24.", m.width, m.height)
		return lipgloss.NewStyle().
			Width(m.width).
			Align(lipgloss.Center).
			Render(msg)
	}

	state := m.overallState()
	props := panels.HeaderProps{
		Title:       m.title,
		Timezone:    m.loc.String(),
		StateSymbol: state.Symbol(),
		StateLabel:  state.Label(),
		XPToday:     m.xpToday,
		Uptime:      m.now.Sub(m.startedAt),
		Clock:       m.now,
	}
	if m.nextRun != nil {
		if p, at, ok := m.nextRun(m.now); ok {
			props.NextPhase = string(p)
			props.NextAt = at.In(m.loc)
		}
	}
	header := panels.RenderHeader(props, m.layout.Header.Width, m.theme.AccentHeaderStyle())

	logView := m.liveLog
	if m.viewing != "" {
		logView = m.runLog
	}
	footer := panels.RenderFooter(panels.FooterProps{
		Focus:      m.focus.String(),
		ViewingRun: m.viewing,
		Following:  logView.Following(),
		CanTrigger: m.controller != nil,
	}, m.layout.Footer.Width)

	phasesW, phasesH := innerDims(m.layout.Phases)
	runsW, runsH := innerDims(m.layout.Runs)
	logW, logH := innerDims(m.layout.Log)

	sidebar := lipgloss.JoinVertical(lipgloss.Left,
		m.theme.PanelBorderStyle(false).
			Width(phasesW).Height(phasesH).
			Render(panels.RenderPhases(m.phaseRows(), m.xpToday, phasesW, phasesH)),
		m.theme.PanelBorderStyle(m.focus == FocusRuns).
			Width(runsW).Height(runsH).
			Render(m.runsPanel.View()),
	)
	logPanel := m.theme.PanelBorderStyle(m.focus == FocusLog).
		Width(logW).Height(logH).
		Render(logView.View())

	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, logPanel)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}
