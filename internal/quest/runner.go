package quest

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/event"
	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/recordstore"
)

// Runner executes the quest phases against a record store. A Runner holds
// no state between calls; each phase rehydrates from the store.
type Runner struct {
	Store    recordstore.Store
	Settings Settings

	// Events receives phase events when set. Otherwise they are formatted
	// to Log (os.Stdout if nil).
	Events chan<- event.Entry
	Log    io.Writer

	// DryRun makes Select report its choice without creating tracker rows.
	DryRun bool
}

// phaseRun tracks one phase invocation while it emits events.
type phaseRun struct {
	r       *Runner
	summary Summary
}

func (r *Runner) start(phase event.Phase, now time.Time) *phaseRun {
	p := &phaseRun{
		r: r,
		summary: Summary{
			RunID:     uuid.NewString(),
			Phase:     phase,
			Day:       r.Settings.StartOfDay(now),
			StartedAt: time.Now(),
		},
	}
	p.emit(event.Entry{
		Kind:    event.KindPhaseStart,
		Message: fmt.Sprintf("Running %s for %s", phase, p.summary.Day.Format(time.DateOnly)),
	})
	return p
}

func (p *phaseRun) infof(format string, args ...any) {
	p.emit(event.Entry{Kind: event.KindInfo, Message: fmt.Sprintf(format, args...)})
}

func (p *phaseRun) ok(res RowResult, format string, args ...any) {
	res.Outcome = Succeeded
	p.record(res, event.KindRowOK, fmt.Sprintf(format, args...))
}

func (p *phaseRun) granted(res RowResult) {
	res.Outcome = Succeeded
	res.Granted = true
	p.record(res, event.KindXPGranted, fmt.Sprintf("Logged %s (%d XP)", res.Name, res.XP))
}

func (p *phaseRun) skip(res RowResult, reason string) {
	res.Outcome = Skipped
	res.Reason = reason
	p.record(res, event.KindRowSkipped, fmt.Sprintf("Skipping %s: %s", res.Name, reason))
}

func (p *phaseRun) fail(res RowResult, step string, err error) {
	res.Outcome = Failed
	res.Reason = step
	res.Err = err
	p.record(res, event.KindRowFailed, fmt.Sprintf("Failed to %s %s: %v", step, res.Name, err))
}

func (p *phaseRun) record(res RowResult, kind event.Kind, msg string) {
	p.summary.Rows = append(p.summary.Rows, res)
	p.emit(event.Entry{
		Kind:    kind,
		Message: msg,
		RowID:   res.RowID,
		QuestID: res.QuestID,
		Quest:   res.Name,
		XP:      res.XP,
	})
}

// finish closes the run and emits its summary.
func (p *phaseRun) finish() Summary {
	p.summary.FinishedAt = time.Now()
	s := p.summary
	p.emit(event.Entry{
		Kind:      event.KindPhaseDone,
		Message:   s.String(),
		Succeeded: s.Count(Succeeded),
		Skipped:   s.Count(Skipped),
		Failed:    s.Count(Failed),
		XPTotal:   s.XPGranted(),
	})
	return s
}

// abort ends the run on an unrecoverable error.
func (p *phaseRun) abort(err error) (Summary, error) {
	p.summary.FinishedAt = time.Now()
	p.emit(event.Entry{
		Kind:    event.KindPhaseFailed,
		Message: fmt.Sprintf("%s aborted: %v", p.summary.Phase, err),
	})
	return p.summary, err
}

func (p *phaseRun) emit(e event.Entry) {
	e.Timestamp = time.Now()
	e.Phase = p.summary.Phase
	e.RunID = p.summary.RunID
	p.r.emit(e)
}

func (r *Runner) emit(e event.Entry) {
	if r.Events != nil {
		r.Events <- e
		return
	}
	w := r.Log
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprintln(w, event.Format(e))
}
