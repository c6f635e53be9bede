package tui

import "github.com/LISSConsulting/LISSTech.QuestKeeper/internal/event"

// PhaseController lets the dashboard trigger a phase out of schedule. It is
// used by the R/S/C key handlers. Pass nil to disable the trigger keys.
type PhaseController interface {
	// Trigger starts the phase in the background. The outcome arrives on
	// the event channel like any scheduled run.
	Trigger(phase event.Phase)
}
