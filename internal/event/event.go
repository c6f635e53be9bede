// Package event defines the structured entries emitted while the quest
// phases run. The CLI renders them, the history journal persists them and
// the TUI displays them.
package event

import "time"

// Phase names one of the three daily batch phases.
type Phase string

const (
	PhaseReset     Phase = "reset"
	PhaseSelect    Phase = "select"
	PhaseReconcile Phase = "reconcile"
)

// Phases lists every phase in daily order.
var Phases = []Phase{PhaseReset, PhaseSelect, PhaseReconcile}

// ParsePhase maps a phase name to its Phase. It reports false for unknown names.
func ParsePhase(s string) (Phase, bool) {
	for _, p := range Phases {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

// Kind identifies the type of an event entry.
type Kind int

const (
	KindInfo        Kind = iota // General informational message
	KindPhaseStart              // Phase invocation starting
	KindRowOK                   // Row processed successfully
	KindRowSkipped              // Row skipped (data-integrity guard)
	KindRowFailed               // Row-level store write failed
	KindXPGranted               // Reward granted for a quest
	KindPhaseDone               // Phase finished (possibly with row failures)
	KindPhaseFailed             // Phase aborted on an unrecoverable error
	KindScheduler               // Dispatcher message
	KindSupervisor              // Supervisor message
)

// String returns a short lowercase label for the kind.
func (k Kind) String() string {
	switch k {
	case KindInfo:
		return "info"
	case KindPhaseStart:
		return "phase-start"
	case KindRowOK:
		return "row-ok"
	case KindRowSkipped:
		return "row-skipped"
	case KindRowFailed:
		return "row-failed"
	case KindXPGranted:
		return "xp-granted"
	case KindPhaseDone:
		return "phase-done"
	case KindPhaseFailed:
		return "phase-failed"
	case KindScheduler:
		return "scheduler"
	case KindSupervisor:
		return "supervisor"
	default:
		return "unknown"
	}
}

// Entry is a structured event emitted during a phase run. When a channel
// is configured, entries are sent there; otherwise they are formatted to
// an io.Writer.
type Entry struct {
	Kind      Kind
	Timestamp time.Time
	Phase     Phase
	Message   string

	// Run identity, shared by every entry of one phase invocation.
	RunID string

	// Row fields
	RowID   string
	QuestID string
	Quest   string
	XP      int

	// Summary counts, set on KindPhaseDone
	Succeeded int
	Skipped   int
	Failed    int
	XPTotal   int
}
