package tui

import "github.com/LISSConsulting/LISSTech.QuestKeeper/internal/event"

// Root-level keys are handled before the focused panel sees a key.
var (
	// triggerKeys start a phase on demand. Upper case so a stray j/k on
	// the wrong panel never fires a phase.
	triggerKeys = map[string]event.Phase{
		"R": event.PhaseReset,
		"S": event.PhaseSelect,
		"C": event.PhaseReconcile,
	}

	// focusKeys jump straight to a panel.
	focusKeys = map[string]FocusTarget{
		"1": FocusRuns,
		"2": FocusLog,
	}
)
