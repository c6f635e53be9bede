package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/config"
	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/event"
	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/quest"
)

// ErrPhaseBusy is returned when another process holds the phase lock.
var ErrPhaseBusy = errors.New("supervisor: phase already running")

// RunFunc is one invocation of a phase, typically a quest.Runner method.
type RunFunc func(ctx context.Context) (quest.Summary, error)

// Supervisor wraps phase invocations with locking, retries and state.
type Supervisor struct {
	cfg    config.SupervisorConfig
	dir    string
	events chan<- event.Entry

	// mu serializes state.json updates within the process; the state lock
	// file does the same across processes.
	mu sync.Mutex
}

// New creates a Supervisor that keeps its locks and state in dir.
func New(cfg config.SupervisorConfig, dir string, events chan<- event.Entry) *Supervisor {
	return &Supervisor{cfg: cfg, dir: dir, events: events}
}

// Supervise runs one phase under its lock. A phase error (the phase could
// not run at all) is retried up to MaxRetries times with a fixed backoff.
// Row-level failures are part of the summary and are not retried. If the
// phase is already running in another process, Supervise returns
// ErrPhaseBusy without calling run.
func (s *Supervisor) Supervise(ctx context.Context, phase event.Phase, run RunFunc) (quest.Summary, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return quest.Summary{}, fmt.Errorf("supervisor: create state dir: %w", err)
	}

	lock := flock.New(filepath.Join(s.dir, string(phase)+".lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return quest.Summary{}, fmt.Errorf("supervisor: lock %s: %w", phase, err)
	}
	if !locked {
		s.emit(phase, fmt.Sprintf("%s is already running elsewhere; skipping", phase))
		return quest.Summary{}, ErrPhaseBusy
	}
	defer lock.Unlock()

	s.update(phase, func(ps *PhaseState) {
		ps.LastStartedAt = time.Now()
		ps.Running = true
		ps.Attempts = 0
	})

	backoff := time.Duration(s.cfg.RetryBackoffSeconds) * time.Second
	var consecutiveErrors int
	for {
		if ctx.Err() != nil {
			s.finish(phase, quest.Summary{}, ctx.Err(), consecutiveErrors)
			return quest.Summary{}, ctx.Err()
		}

		if consecutiveErrors > 0 {
			s.emit(phase, fmt.Sprintf("Starting %s (attempt %d/%d)", phase, consecutiveErrors+1, s.cfg.MaxRetries+1))
		}
		s.update(phase, func(ps *PhaseState) { ps.Attempts++ })

		sum, runErr := run(ctx)
		if runErr == nil {
			s.finish(phase, sum, nil, 0)
			return sum, nil
		}

		if ctx.Err() != nil {
			s.emit(phase, "Context cancelled, stopping")
			s.finish(phase, sum, ctx.Err(), consecutiveErrors)
			return sum, ctx.Err()
		}

		consecutiveErrors++
		s.update(phase, func(ps *PhaseState) {
			ps.ConsecutiveErrs = consecutiveErrors
			ps.LastError = runErr.Error()
		})

		if consecutiveErrors > s.cfg.MaxRetries {
			s.emit(phase, fmt.Sprintf("Max retries (%d) exceeded, giving up", s.cfg.MaxRetries))
			s.finish(phase, sum, runErr, consecutiveErrors)
			return sum, fmt.Errorf("supervisor: %s: max retries exceeded after %d failures: %w", phase, consecutiveErrors, runErr)
		}

		s.emit(phase, fmt.Sprintf("%s failed: %v; retrying in %s", phase, runErr, backoff))
		select {
		case <-ctx.Done():
			s.finish(phase, sum, ctx.Err(), consecutiveErrors)
			return sum, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// State returns the persisted state.
func (s *Supervisor) State() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return LoadState(s.dir)
}

func (s *Supervisor) finish(phase event.Phase, sum quest.Summary, err error, consecutiveErrors int) {
	s.update(phase, func(ps *PhaseState) {
		now := time.Now()
		ps.Running = false
		ps.LastFinishedAt = now
		ps.ConsecutiveErrs = consecutiveErrors
		ps.Passed = err == nil
		if err == nil {
			ps.LastSuccessAt = now
			ps.LastError = ""
			ps.RunID = sum.RunID
			ps.Succeeded = sum.Count(quest.Succeeded)
			ps.Skipped = sum.Count(quest.Skipped)
			ps.Failed = sum.Count(quest.Failed)
			ps.XPGranted = sum.XPGranted()
		} else {
			ps.LastError = err.Error()
		}
	})
}

// update applies fn to the phase's persisted state under the state lock.
func (s *Supervisor) update(phase event.Phase, fn func(*PhaseState)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock := flock.New(filepath.Join(s.dir, stateLockName))
	if err := lock.Lock(); err != nil {
		s.emit(phase, fmt.Sprintf("Failed to lock state: %v", err))
		return
	}
	defer lock.Unlock()

	st, err := LoadState(s.dir)
	if err != nil {
		s.emit(phase, fmt.Sprintf("Failed to load state: %v", err))
		st = State{Phases: map[event.Phase]PhaseState{}}
	}
	ps := st.Phases[phase]
	fn(&ps)
	st.Phases[phase] = ps
	st.PID = os.Getpid()

	if err := SaveState(s.dir, st); err != nil {
		s.emit(phase, fmt.Sprintf("Failed to save state: %v", err))
	}
}

func (s *Supervisor) emit(phase event.Phase, msg string) {
	if s.events == nil {
		return
	}
	entry := event.Entry{
		Kind:      event.KindSupervisor,
		Timestamp: time.Now(),
		Phase:     phase,
		Message:   msg,
	}
	select {
	case s.events <- entry:
	default:
	}
}
