package quest

import (
	"errors"
	"fmt"
	"time"

	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/event"
)

// Outcome is the result of processing one row in a phase.
type Outcome string

const (
	Succeeded Outcome = "succeeded"
	Skipped   Outcome = "skipped"
	Failed    Outcome = "failed"
)

// RowResult describes what a phase did with one record.
type RowResult struct {
	RowID   string
	QuestID string
	Name    string
	Outcome Outcome

	// XP is the experience recorded in the log entry (reconcile only).
	XP int
	// Granted is true when the row produced a first-of-day reward.
	Granted bool

	Reason string // skip reason or failed step
	Err    error
}

// Summary aggregates the row results of one phase invocation.
type Summary struct {
	RunID      string
	Phase      event.Phase
	Day        time.Time // start of the processed calendar day
	StartedAt  time.Time
	FinishedAt time.Time
	Rows       []RowResult
}

// Count returns the number of rows with the given outcome.
func (s Summary) Count(o Outcome) int {
	n := 0
	for _, r := range s.Rows {
		if r.Outcome == o {
			n++
		}
	}
	return n
}

// XPGranted returns the total experience granted during the run.
func (s Summary) XPGranted() int {
	total := 0
	for _, r := range s.Rows {
		if r.Granted {
			total += r.XP
		}
	}
	return total
}

// Err joins the errors of every failed row, or returns nil.
func (s Summary) Err() error {
	var errs []error
	for _, r := range s.Rows {
		if r.Outcome == Failed && r.Err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", r.Reason, r.Name, r.Err))
		}
	}
	return errors.Join(errs...)
}

// String renders a one-line description of the run.
func (s Summary) String() string {
	msg := fmt.Sprintf("%s finished: %d succeeded, %d skipped, %d failed",
		s.Phase, s.Count(Succeeded), s.Count(Skipped), s.Count(Failed))
	if s.Phase == event.PhaseReconcile {
		msg += fmt.Sprintf(", %d XP granted", s.XPGranted())
	}
	return msg
}
