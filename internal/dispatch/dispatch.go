// Package dispatch fires the quest phases on their cron schedules and
// routes every invocation, scheduled or manual, through the supervisor.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/config"
	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/event"
	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/quest"
	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/supervisor"
)

// PhaseRunner executes the three phases. *quest.Runner implements it.
type PhaseRunner interface {
	Reset(ctx context.Context, now time.Time) (quest.Summary, error)
	Select(ctx context.Context, now time.Time) (quest.Summary, error)
	Reconcile(ctx context.Context, now time.Time) (quest.Summary, error)
}

// Options configures a Dispatcher.
type Options struct {
	Schedule config.ScheduleConfig
	Location *time.Location
	Logger   *slog.Logger

	// Events receives scheduler notices. Sends never block.
	Events chan<- event.Entry

	// Now overrides the clock handed to phases.
	Now func() time.Time
}

// Scheduled is one registered phase and its next fire time.
type Scheduled struct {
	Phase event.Phase
	Spec  string
	Next  time.Time
}

// Dispatcher owns the cron scheduler.
type Dispatcher struct {
	runner PhaseRunner
	sup    *supervisor.Supervisor
	loc    *time.Location
	log    *slog.Logger
	events chan<- event.Entry
	now    func() time.Time

	cron      *cron.Cron
	specs     map[event.Phase]string
	schedules map[event.Phase]cron.Schedule
}

// New parses the schedule and builds a Dispatcher. A phase with an empty
// expression is never fired by the scheduler but can still run through
// RunPhase. sup may be nil to run phases unsupervised.
func New(runner PhaseRunner, sup *supervisor.Supervisor, opts Options) (*Dispatcher, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	d := &Dispatcher{
		runner:    runner,
		sup:       sup,
		loc:       loc,
		log:       logger,
		events:    opts.Events,
		now:       now,
		specs:     make(map[event.Phase]string),
		schedules: make(map[event.Phase]cron.Schedule),
	}

	cl := cronLogger{logger}
	d.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	for _, p := range []struct {
		phase event.Phase
		spec  string
	}{
		{event.PhaseReset, opts.Schedule.Reset},
		{event.PhaseSelect, opts.Schedule.Select},
		{event.PhaseReconcile, opts.Schedule.Reconcile},
	} {
		if p.spec == "" {
			continue
		}
		sched, err := cron.ParseStandard(p.spec)
		if err != nil {
			return nil, fmt.Errorf("dispatch: schedule %s %q: %w", p.phase, p.spec, err)
		}
		d.specs[p.phase] = p.spec
		d.schedules[p.phase] = sched
	}
	return d, nil
}

// RunPhase runs one phase now, under the supervisor when one is set.
func (d *Dispatcher) RunPhase(ctx context.Context, phase event.Phase) (quest.Summary, error) {
	fn, err := d.phaseFunc(phase)
	if err != nil {
		return quest.Summary{}, err
	}
	run := func(ctx context.Context) (quest.Summary, error) {
		return fn(ctx, d.now().In(d.loc))
	}
	if d.sup == nil {
		return run(ctx)
	}
	return d.sup.Supervise(ctx, phase, run)
}

func (d *Dispatcher) phaseFunc(phase event.Phase) (func(context.Context, time.Time) (quest.Summary, error), error) {
	switch phase {
	case event.PhaseReset:
		return d.runner.Reset, nil
	case event.PhaseSelect:
		return d.runner.Select, nil
	case event.PhaseReconcile:
		return d.runner.Reconcile, nil
	}
	return nil, fmt.Errorf("dispatch: unknown phase %q", phase)
}

// Run starts the scheduler and blocks until ctx is cancelled. In-flight
// phases are allowed to finish before Run returns.
func (d *Dispatcher) Run(ctx context.Context) error {
	for _, s := range d.Schedules() {
		phase := s.Phase
		sched := d.schedules[phase]
		d.cron.Schedule(sched, cron.FuncJob(func() { d.fire(ctx, phase) }))
		d.log.Info("phase scheduled", "phase", phase, "spec", s.Spec, "next", s.Next.Format(time.RFC3339))
		d.emit(phase, fmt.Sprintf("%s scheduled %q, next at %s", phase, s.Spec, s.Next.Format("Mon 15:04")))
	}

	d.cron.Start()
	<-ctx.Done()
	d.log.Info("scheduler stopping")
	<-d.cron.Stop().Done()
	return nil
}

func (d *Dispatcher) fire(ctx context.Context, phase event.Phase) {
	if ctx.Err() != nil {
		return
	}
	d.log.Debug("phase firing", "phase", phase)
	d.emit(phase, fmt.Sprintf("Firing %s", phase))

	sum, err := d.RunPhase(ctx, phase)
	switch {
	case errors.Is(err, supervisor.ErrPhaseBusy):
		d.log.Warn("phase skipped, already running", "phase", phase)
	case err != nil:
		d.log.Error("phase failed", "phase", phase, "err", err)
	default:
		d.log.Info("phase finished", "phase", phase, "run", sum.RunID,
			"succeeded", sum.Count(quest.Succeeded),
			"skipped", sum.Count(quest.Skipped),
			"failed", sum.Count(quest.Failed),
			"xp", sum.XPGranted())
	}
	if next, ok := d.NextRun(phase, d.now()); ok {
		d.emit(phase, fmt.Sprintf("Next %s at %s", phase, next.Format("Mon 15:04")))
	}
}

// NextRun returns the first fire time of phase strictly after t.
func (d *Dispatcher) NextRun(phase event.Phase, t time.Time) (time.Time, bool) {
	sched, ok := d.schedules[phase]
	if !ok {
		return time.Time{}, false
	}
	return sched.Next(t.In(d.loc)), true
}

// Schedules lists the registered phases ordered by next fire time.
func (d *Dispatcher) Schedules() []Scheduled {
	now := d.now()
	out := make([]Scheduled, 0, len(d.schedules))
	for _, p := range event.Phases {
		if next, ok := d.NextRun(p, now); ok {
			out = append(out, Scheduled{Phase: p, Spec: d.specs[p], Next: next})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Next.Before(out[j].Next) })
	return out
}

// Location returns the timezone the schedule is evaluated in.
func (d *Dispatcher) Location() *time.Location { return d.loc }

func (d *Dispatcher) emit(phase event.Phase, msg string) {
	if d.events == nil {
		return
	}
	select {
	case d.events <- event.Entry{Kind: event.KindScheduler, Timestamp: time.Now(), Phase: phase, Message: msg}:
	default:
	}
}

// cronLogger adapts slog to cron.Logger. Cron's routine chatter goes to
// debug level.
type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append([]interface{}{"err", err}, keysAndValues...)...)
}
