package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/config"
	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/dispatch"
	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/event"
	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/history"
	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/notify"
	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/supervisor"
	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/tui"
)

// sink consumes one event entry.
type sink func(event.Entry)

// pump drains events into every non-nil sink until the channel is closed.
// The returned channel is closed once the last entry is handled.
func pump(events <-chan event.Entry, sinks ...sink) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for entry := range events {
			for _, s := range sinks {
				if s != nil {
					s(entry)
				}
			}
		}
	}()
	return done
}

func printSink(w io.Writer) sink {
	return func(e event.Entry) { fmt.Fprintln(w, event.Format(e)) }
}

// journalSink appends to the run journal. A failed write is logged; the
// phase keeps going.
func journalSink(j history.Writer) sink {
	if j == nil {
		return nil
	}
	return func(e event.Entry) {
		if err := j.Append(e); err != nil {
			slog.Warn("journal append failed", "err", err)
		}
	}
}

// notifyFlushTimeout bounds how long shutdown waits for pending
// notifications.
const notifyFlushTimeout = 15 * time.Second

// newNotifier returns nil when no notification URL is configured.
func newNotifier(cfg *config.Config) *notify.Notifier {
	n := cfg.Notifications
	if n.URL == "" {
		return nil
	}
	return notify.New(n.URL, notify.DefaultTitle, n.OnError, n.OnSummary, n.OnGrant)
}

func notifySink(n *notify.Notifier) sink {
	if n == nil {
		return nil
	}
	return n.Hook
}

// flushNotifications waits for posts still in flight so the process does
// not exit under them.
func flushNotifications(n *notify.Notifier) {
	if n == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyFlushTimeout)
	defer cancel()
	if err := n.Wait(ctx); err != nil {
		slog.Warn("notifications still pending at exit", "err", err)
	}
}

// forwardSink hands entries to the TUI, dropping them if it falls behind
// so a stalled screen never blocks a phase.
func forwardSink(ch chan<- event.Entry) sink {
	return func(e event.Entry) {
		select {
		case ch <- e:
		default:
		}
	}
}

// openJournal prunes old session files and opens this process's journal.
func openJournal(cfg *config.Config) (*history.JSONL, error) {
	dir := cfg.Resolve(cfg.History.Dir)
	if err := history.EnforceRetention(dir, cfg.History.Retention); err != nil {
		slog.Warn("history retention failed", "dir", dir, "err", err)
	}
	return history.NewJSONL(dir)
}

// openDaemonLog opens <state_dir>/daemon.log for diagnostics while the
// TUI owns the terminal.
func openDaemonLog(cfg *config.Config) (*os.File, *slog.Logger, error) {
	dir := cfg.Resolve(cfg.Supervisor.StateDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("create state dir: %w", err)
	}
	path := filepath.Join(dir, "daemon.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, slog.New(slog.NewTextHandler(f, nil)), nil
}

// runDaemon runs the scheduler without TUI. Events are drained to out.
func runDaemon(ctx context.Context, a *app, journal history.Writer, out io.Writer) error {
	notifier := newNotifier(a.cfg)
	done := pump(a.events, printSink(out), journalSink(journal), notifySink(notifier))
	err := a.dispatcher.Run(ctx)
	close(a.events)
	<-done
	flushNotifications(notifier)
	return err
}

// phaseTrigger runs phases on demand from the TUI.
type phaseTrigger struct {
	ctx context.Context
	d   *dispatch.Dispatcher
	log *slog.Logger
	wg  sync.WaitGroup
}

// Trigger implements tui.PhaseController.
func (t *phaseTrigger) Trigger(phase event.Phase) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		_, err := t.d.RunPhase(t.ctx, phase)
		switch {
		case err == nil, errors.Is(err, context.Canceled):
		case errors.Is(err, supervisor.ErrPhaseBusy):
			t.log.Info("triggered phase already running", "phase", phase)
		default:
			t.log.Error("triggered phase failed", "phase", phase, "err", err)
		}
	}()
}

// runDaemonTUI runs the scheduler behind the dashboard. Quitting the TUI
// stops the scheduler and waits for in-flight phases.
func runDaemonTUI(ctx context.Context, a *app, journal history.Store) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tuiEvents := make(chan event.Entry, 256)
	trigger := &phaseTrigger{ctx: ctx, d: a.dispatcher, log: slog.Default()}

	model := tui.New(tuiEvents, tui.Options{
		AccentColor: a.cfg.TUI.AccentColor,
		Location:    a.loc,
		History:     journal,
		Controller:  trigger,
		NextRun:     nextRunFunc(a.dispatcher),
	})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	notifier := newNotifier(a.cfg)
	done := pump(a.events, journalSink(journal), notifySink(notifier), forwardSink(tuiEvents))

	schedErr := make(chan error, 1)
	go func() {
		schedErr <- a.dispatcher.Run(ctx)
	}()

	_, tuiErr := program.Run()
	cancel()
	err := <-schedErr
	trigger.wg.Wait()
	close(a.events)
	<-done
	close(tuiEvents)
	flushNotifications(notifier)

	if tuiErr != nil && !errors.Is(tuiErr, tea.ErrProgramKilled) {
		return fmt.Errorf("tui: %w", tuiErr)
	}
	return err
}

// nextRunFunc adapts the dispatcher to the dashboard's header.
func nextRunFunc(d *dispatch.Dispatcher) func(now time.Time) (event.Phase, time.Time, bool) {
	return func(now time.Time) (event.Phase, time.Time, bool) {
		var (
			phase event.Phase
			best  time.Time
		)
		for _, p := range event.Phases {
			if t, ok := d.NextRun(p, now); ok && (best.IsZero() || t.Before(best)) {
				phase, best = p, t
			}
		}
		return phase, best, !best.IsZero()
	}
}
