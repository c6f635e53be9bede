// Package tui provides a bubbletea + lipgloss dashboard for the quest
// daemon: phase status, finished runs and the live event log.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/event"
)

// defaultAccentColor is the default accent color (amber).
const defaultAccentColor = "#E8A33D"

var (
	colorWhite  = lipgloss.Color("#FAFAFA")
	colorGray   = lipgloss.Color("#888888")
	colorBlue   = lipgloss.Color("#5B9BD5")
	colorGreen  = lipgloss.Color("#6BCB77")
	colorYellow = lipgloss.Color("#FFD93D")
	colorRed    = lipgloss.Color("#FF6B6B")
	colorOrange = lipgloss.Color("#FFA54F")
)

var (
	timestampStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	phaseStyle = lipgloss.NewStyle().
			Foreground(colorBlue)

	okStyle = lipgloss.NewStyle().
		Foreground(colorGreen)

	skipStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	doneStyle = lipgloss.NewStyle().
			Foreground(colorGreen).
			Bold(true)

	supervisorStyle = lipgloss.NewStyle().
			Foreground(colorOrange)

	schedulerStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	infoStyle = lipgloss.NewStyle().
			Foreground(colorWhite)
)

// kindStyle returns the lipgloss style for an event kind. XP grants are
// accent-colored and handled by Theme.
func kindStyle(k event.Kind) lipgloss.Style {
	switch k {
	case event.KindPhaseStart:
		return phaseStyle
	case event.KindRowOK:
		return okStyle
	case event.KindRowSkipped:
		return skipStyle
	case event.KindRowFailed, event.KindPhaseFailed:
		return errorStyle
	case event.KindPhaseDone:
		return doneStyle
	case event.KindSupervisor:
		return supervisorStyle
	case event.KindScheduler:
		return schedulerStyle
	default:
		return infoStyle
	}
}
