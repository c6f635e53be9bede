package tui

import (
	"time"

	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/event"
	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/history"
)

// eventMsg wraps an event entry received from the phase channel.
type eventMsg event.Entry

// eventsClosedMsg signals the event channel closed.
type eventsClosedMsg struct{}

// tickMsg is sent every second for the clock.
type tickMsg time.Time

// runLogLoadedMsg carries a finished run read back from the journal.
type runLogLoadedMsg struct {
	Summary history.RunSummary
	Entries []event.Entry
	Err     error
}
