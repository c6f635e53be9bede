package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/config"
	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/dispatch"
	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/event"
	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/history"
	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/quest"
	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/recordstore"
	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/supervisor"
)

// errRowFailures marks a phase that finished with failed rows. The command
// exits non-zero so cron wrappers notice.
var errRowFailures = errors.New("phase finished with failed rows")

// newStore builds the record store client. Tests replace it with a
// recordstore.Memory.
var newStore = func(cfg *config.Config) (recordstore.Store, error) {
	token, err := cfg.Token()
	if err != nil {
		return nil, err
	}
	return recordstore.NewNotion(cfg.Store.BaseURL, token, cfg.Store.APIVersion, cfg.Timeout()), nil
}

// loadConfig loads and validates quest.toml and its timezone.
func loadConfig(path string) (*config.Config, *time.Location, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("config: %s: %w", cfg.Dir, err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}
	return cfg, loc, nil
}

func settingsFor(cfg *config.Config, loc *time.Location) quest.Settings {
	return quest.Settings{
		TrackerCollection: cfg.Collections.Tracker,
		CatalogCollection: cfg.Collections.Catalog,
		LogCollection:     cfg.Collections.Log,
		DailyCount:        cfg.Quests.DailyCount,
		CooldownDays:      cfg.Quests.CooldownDays,
		Location:          loc,
		DefaultSkill:      cfg.Quests.DefaultSkill,
	}
}

// app bundles the components shared by every phase-running command.
// Runner, supervisor and dispatcher all report on events.
type app struct {
	cfg        *config.Config
	loc        *time.Location
	runner     *quest.Runner
	sup        *supervisor.Supervisor
	dispatcher *dispatch.Dispatcher
	events     chan event.Entry
}

func newApp(cfg *config.Config, loc *time.Location, logger *slog.Logger) (*app, error) {
	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}
	events := make(chan event.Entry, 128)
	runner := &quest.Runner{
		Store:    store,
		Settings: settingsFor(cfg, loc),
		Events:   events,
	}
	sup := supervisor.New(cfg.Supervisor, cfg.Resolve(cfg.Supervisor.StateDir), events)
	d, err := dispatch.New(runner, sup, dispatch.Options{
		Schedule: cfg.Schedule,
		Location: loc,
		Logger:   logger,
		Events:   events,
	})
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, loc: loc, runner: runner, sup: sup, dispatcher: d, events: events}, nil
}

// executePhase runs one phase under the supervisor, printing its events
// to out and journaling them. It returns once pending notifications are
// delivered.
func executePhase(flags *globalFlags, phase event.Phase, dryRun bool, out io.Writer) error {
	cfg, loc, err := loadConfig(flags.configPath)
	if err != nil {
		return err
	}
	a, err := newApp(cfg, loc, slog.Default())
	if err != nil {
		return err
	}
	a.runner.DryRun = dryRun

	journal, err := openJournal(cfg)
	if err != nil {
		return err
	}
	defer journal.Close()

	ctx, cancel := signalContext()
	defer cancel()

	notifier := newNotifier(cfg)
	done := pump(a.events, printSink(out), journalSink(journal), notifySink(notifier))
	sum, runErr := a.dispatcher.RunPhase(ctx, phase)
	close(a.events)
	<-done
	flushNotifications(notifier)

	switch {
	case errors.Is(runErr, supervisor.ErrPhaseBusy):
		return fmt.Errorf("%s: %w", phase, runErr)
	case runErr != nil:
		return withStoreHint(cfg, runErr)
	case sum.Count(quest.Failed) > 0:
		return fmt.Errorf("%s: %w: %w", phase, errRowFailures, sum.Err())
	}
	return nil
}

// withStoreHint adds a pointer to the likely misconfiguration when the
// store rejected the request outright.
func withStoreHint(cfg *config.Config, err error) error {
	switch recordstore.StatusOf(err) {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w\nhint: the store rejected the token; check store.token or $%s", err, cfg.Store.TokenEnv)
	case http.StatusNotFound:
		return fmt.Errorf("%w\nhint: check the [collections] IDs and that the integration has access to them", err)
	}
	return err
}

// executeDaemon starts the cron dispatcher and blocks until interrupted
// or, with the TUI, until the user quits.
func executeDaemon(flags *globalFlags, noTUI bool, out io.Writer) error {
	cfg, loc, err := loadConfig(flags.configPath)
	if err != nil {
		return err
	}
	journal, err := openJournal(cfg)
	if err != nil {
		return err
	}
	defer journal.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if noTUI {
		a, err := newApp(cfg, loc, slog.Default())
		if err != nil {
			return err
		}
		return runDaemon(ctx, a, journal, out)
	}

	// The alternate screen owns the terminal; diagnostics go to a file.
	logFile, logger, err := openDaemonLog(cfg)
	if err != nil {
		return err
	}
	defer logFile.Close()
	a, err := newApp(cfg, loc, logger)
	if err != nil {
		return err
	}
	return runDaemonTUI(ctx, a, journal)
}

// showToday prints today's quest log with per-skill XP totals.
func showToday(flags *globalFlags, out io.Writer) error {
	cfg, loc, err := loadConfig(flags.configPath)
	if err != nil {
		return err
	}
	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	runner := &quest.Runner{Store: store, Settings: settingsFor(cfg, loc)}

	ctx, cancel := signalContext()
	defer cancel()

	ledger, err := runner.Today(ctx, time.Now().In(loc))
	if err != nil {
		return err
	}
	fmt.Fprint(out, formatLedger(ledger))
	return nil
}

func formatLedger(l quest.Ledger) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Quest log for %s\n", l.Day.Format("Mon 2 Jan 2006"))
	b.WriteString("────────────────────────────\n")
	if len(l.Entries) == 0 {
		b.WriteString("  No quests completed yet.\n")
		return b.String()
	}
	for _, e := range l.Entries {
		fmt.Fprintf(&b, "  %s  %-30s  %-12s  +%d XP\n", e.CompletedOn.Format("15:04"), e.Name, e.Skill, e.XPEarned)
	}
	b.WriteString("\n")
	for _, s := range l.BySkill() {
		fmt.Fprintf(&b, "  %-20s %d XP\n", s.Skill+":", s.XP)
	}
	fmt.Fprintf(&b, "  %-20s %d XP\n", "Total:", l.TotalXP())
	return b.String()
}

// showStatus prints per-phase supervisor state, the next fire times and
// the most recent journaled runs.
func showStatus(flags *globalFlags, out io.Writer) error {
	cfg, loc, err := loadConfig(flags.configPath)
	if err != nil {
		return err
	}
	st, err := supervisor.LoadState(cfg.Resolve(cfg.Supervisor.StateDir))
	if err != nil {
		return err
	}
	d, err := dispatch.New(nil, nil, dispatch.Options{Schedule: cfg.Schedule, Location: loc, Logger: slog.Default()})
	if err != nil {
		return err
	}
	fmt.Fprint(out, formatStatus(st, d.Schedules(), loc, time.Now()))

	runs, err := history.LoadRuns(cfg.Resolve(cfg.History.Dir))
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "\nRecent runs")
	fmt.Fprint(out, formatRuns(runs, recentRuns, loc))
	return nil
}

// recentRuns is how many journaled runs status shows.
const recentRuns = 5

// phaseResult classifies a phase's persisted state for display.
type phaseResult int

const (
	resultNever phaseResult = iota
	resultRunning
	resultPass
	resultRowFailures
	resultFail
)

func classifyPhase(ps supervisor.PhaseState) phaseResult {
	switch {
	case ps.LastStartedAt.IsZero():
		return resultNever
	case ps.Running:
		return resultRunning
	case !ps.Passed:
		return resultFail
	case ps.Failed > 0:
		return resultRowFailures
	default:
		return resultPass
	}
}

func formatStatus(st supervisor.State, schedules []dispatch.Scheduled, loc *time.Location, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Quest Status (%s)\n", loc)
	b.WriteString("────────────\n")

	next := make(map[event.Phase]time.Time, len(schedules))
	for _, s := range schedules {
		next[s.Phase] = s.Next
	}

	for _, p := range event.Phases {
		ps := st.Phase(p)
		fmt.Fprintf(&b, "%s\n", p)
		switch classifyPhase(ps) {
		case resultNever:
			fmt.Fprintf(&b, "  %-16s %s\n", "Result:", "never run")
		case resultRunning:
			fmt.Fprintf(&b, "  %-16s running for %s (attempt %d)\n", "Result:", now.Sub(ps.LastStartedAt).Round(time.Second), ps.Attempts)
		case resultPass:
			fmt.Fprintf(&b, "  %-16s %s\n", "Result:", "pass")
		case resultRowFailures:
			fmt.Fprintf(&b, "  %-16s pass with %d failed rows\n", "Result:", ps.Failed)
		case resultFail:
			fmt.Fprintf(&b, "  %-16s fail (%d consecutive errors)\n", "Result:", ps.ConsecutiveErrs)
		}
		if !ps.LastFinishedAt.IsZero() {
			fmt.Fprintf(&b, "  %-16s %s\n", "Last finished:", ps.LastFinishedAt.In(loc).Format("Mon 2 Jan 15:04"))
			fmt.Fprintf(&b, "  %-16s %d succeeded, %d skipped, %d failed\n", "Rows:", ps.Succeeded, ps.Skipped, ps.Failed)
		}
		if p == event.PhaseReconcile && ps.XPGranted > 0 {
			fmt.Fprintf(&b, "  %-16s %d\n", "XP granted:", ps.XPGranted)
		}
		if ps.LastError != "" && !ps.Passed {
			fmt.Fprintf(&b, "  %-16s %s\n", "Last error:", ps.LastError)
		}
		if t, ok := next[p]; ok {
			fmt.Fprintf(&b, "  %-16s %s\n", "Next run:", t.In(loc).Format("Mon 2 Jan 15:04"))
		} else {
			fmt.Fprintf(&b, "  %-16s %s\n", "Next run:", "not scheduled")
		}
	}
	return b.String()
}

// showHistory prints the most recent journaled runs, newest first. An
// empty phase shows every phase.
func showHistory(flags *globalFlags, phase event.Phase, limit int, out io.Writer) error {
	cfg, loc, err := loadConfig(flags.configPath)
	if err != nil {
		return err
	}
	runs, err := history.LoadRuns(cfg.Resolve(cfg.History.Dir))
	if err != nil {
		return err
	}
	if phase != "" {
		kept := runs[:0]
		for _, r := range runs {
			if r.Phase == phase {
				kept = append(kept, r)
			}
		}
		runs = kept
	}
	fmt.Fprint(out, formatRuns(runs, limit, loc))
	return nil
}

func formatRuns(runs []history.RunSummary, limit int, loc *time.Location) string {
	if len(runs) == 0 {
		return "No runs recorded yet.\n"
	}
	var b strings.Builder
	shown := 0
	for i := len(runs) - 1; i >= 0; i-- {
		if limit > 0 && shown == limit {
			break
		}
		r := runs[i]
		outcome := fmt.Sprintf("%d✓ %d⚠ %d✗", r.Succeeded, r.Skipped, r.Failed)
		if r.Aborted {
			outcome = "aborted: " + r.Message
		} else if r.Phase == event.PhaseReconcile {
			outcome += fmt.Sprintf("  +%d XP", r.XP)
		}
		fmt.Fprintf(&b, "%s  %-9s  %6s  %s\n",
			r.EndAt.In(loc).Format("2006-01-02 15:04"), r.Phase, r.Duration().Round(time.Second), outcome)
		shown++
	}
	return b.String()
}

// formatScaffoldResult returns the output for the init command.
func formatScaffoldResult(created []string) string {
	if len(created) == 0 {
		return "All files already exist, nothing to create.\n"
	}
	var b strings.Builder
	for _, path := range created {
		fmt.Fprintf(&b, "Created %s\n", path)
	}
	return b.String()
}
