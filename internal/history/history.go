// Package history journals phase events to an append-only JSONL session
// log and reads back completed runs. One Journal is opened per quest
// process in cmd/quest/wiring.go and shared by every phase it runs.
package history

import (
	"time"

	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/event"
)

// Writer persists phase events to durable storage.
type Writer interface {
	Append(entry event.Entry) error
	Close() error
}

// Reader retrieves completed runs from storage.
type Reader interface {
	Runs() ([]RunSummary, error)
	RunLog(runID string) ([]event.Entry, error)
}

// Store combines Writer and Reader into a single session-scoped handle.
type Store interface {
	Writer
	Reader
}

// RunSummary summarises one finished phase invocation.
type RunSummary struct {
	RunID     string
	Phase     event.Phase
	StartAt   time.Time
	EndAt     time.Time
	Aborted   bool   // ended with KindPhaseFailed
	Message   string // final summary or abort message
	Succeeded int
	Skipped   int
	Failed    int
	XP        int
}

// Duration returns how long the run took.
func (r RunSummary) Duration() time.Duration {
	return r.EndAt.Sub(r.StartAt)
}
