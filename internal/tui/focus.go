package tui

// FocusTarget identifies which panel currently holds keyboard focus.
type FocusTarget int

const (
	FocusRuns FocusTarget = iota // Left sidebar, finished runs list
	FocusLog                     // Right, event log
)

const focusCount = 2

// Next returns the next focus target in forward tab order.
func (f FocusTarget) Next() FocusTarget {
	return (f + 1) % focusCount
}

// Prev returns the previous focus target in reverse tab order.
func (f FocusTarget) Prev() FocusTarget {
	return (f + focusCount - 1) % focusCount
}

// String returns the human-readable name of the focus target.
func (f FocusTarget) String() string {
	switch f {
	case FocusRuns:
		return "runs"
	case FocusLog:
		return "log"
	default:
		return "unknown"
	}
}

// PhaseState is the display state of one phase.
type PhaseState int

const (
	StateIdle     PhaseState = iota // Never run in this session
	StateRunning                    // Invocation in progress
	StateRetrying                   // Supervisor backing off before another attempt
	StateDone                       // Last invocation finished
	StateFailed                     // Last invocation aborted
)

// validTransitions defines the allowed PhaseState transitions.
var validTransitions = map[PhaseState][]PhaseState{
	StateIdle:     {StateRunning},
	StateRunning:  {StateDone, StateFailed, StateRetrying},
	StateRetrying: {StateRunning, StateFailed},
	StateDone:     {StateRunning},
	StateFailed:   {StateRunning, StateRetrying},
}

// CanTransitionTo reports whether transitioning from s to next is valid.
func (s PhaseState) CanTransitionTo(next PhaseState) bool {
	for _, valid := range validTransitions[s] {
		if valid == next {
			return true
		}
	}
	return false
}

// Label returns a short uppercase label for the state.
func (s PhaseState) Label() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateRetrying:
		return "RETRYING"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Symbol returns a single-character symbol representing the state.
func (s PhaseState) Symbol() string {
	switch s {
	case StateIdle:
		return "·"
	case StateRunning:
		return "●"
	case StateRetrying:
		return "⟳"
	case StateDone:
		return "✓"
	case StateFailed:
		return "✗"
	default:
		return "?"
	}
}
