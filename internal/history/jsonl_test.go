package history_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/event"
	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/history"
)

// Compile-time check: *JSONL implements Store.
var _ history.Store = (*history.JSONL)(nil)

func openJournal(t *testing.T, dir string) *history.JSONL {
	t.Helper()
	j, err := history.NewJSONL(dir)
	if err != nil {
		t.Fatalf("NewJSONL: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func appendAll(t *testing.T, j *history.JSONL, entries ...event.Entry) {
	t.Helper()
	for _, e := range entries {
		if err := j.Append(e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
}

func run(id string, phase event.Phase, start time.Time, rows ...event.Entry) []event.Entry {
	out := []event.Entry{{Kind: event.KindPhaseStart, Timestamp: start, Phase: phase, RunID: id, Message: "Running " + string(phase)}}
	for i, r := range rows {
		r.RunID = id
		r.Phase = phase
		r.Timestamp = start.Add(time.Duration(i+1) * time.Second)
		out = append(out, r)
	}
	out = append(out, event.Entry{
		Kind:      event.KindPhaseDone,
		Timestamp: start.Add(time.Minute),
		Phase:     phase,
		RunID:     id,
		Message:   string(phase) + " finished",
		Succeeded: len(rows),
		XPTotal:   10 * len(rows),
	})
	return out
}

func TestNewJSONL_CreatesFile(t *testing.T) {
	dir := t.TempDir()
	j := openJournal(t, dir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 file in dir, got %d", len(entries))
	}
	if entries[0].Name() != j.SessionID()+".jsonl" {
		t.Errorf("file %q does not match session %q", entries[0].Name(), j.SessionID())
	}
}

func TestNewJSONL_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".quest", "logs")
	openJournal(t, dir)
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("expected dir to exist after NewJSONL: %v", err)
	}
}

func TestNewJSONL_DirIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := history.NewJSONL(path); err == nil {
		t.Error("expected error when dir is a regular file")
	}
}

func TestAppendAndRunLog(t *testing.T) {
	j := openJournal(t, t.TempDir())
	now := time.Now().Truncate(time.Second)

	appendAll(t, j, run("r1", event.PhaseReconcile, now,
		event.Entry{Kind: event.KindXPGranted, Quest: "Stretch", XP: 10},
		event.Entry{Kind: event.KindRowSkipped, Quest: "Orphan"},
	)...)

	log, err := j.RunLog("r1")
	if err != nil {
		t.Fatal(err)
	}
	if len(log) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(log))
	}
	if log[0].Kind != event.KindPhaseStart || log[3].Kind != event.KindPhaseDone {
		t.Errorf("unexpected bounds: %v .. %v", log[0].Kind, log[3].Kind)
	}
	if log[1].Quest != "Stretch" || log[1].XP != 10 {
		t.Errorf("row entry not round-tripped: %+v", log[1])
	}
}

func TestRunLog_InterleavedRuns(t *testing.T) {
	j := openJournal(t, t.TempDir())
	now := time.Now()

	a := run("a", event.PhaseReset, now, event.Entry{Kind: event.KindRowOK, Quest: "A1"})
	b := run("b", event.PhaseSelect, now, event.Entry{Kind: event.KindRowOK, Quest: "B1"})
	// a-start, b-start, a-row, b-row, a-done, b-done
	appendAll(t, j, a[0], b[0], a[1], b[1], a[2], b[2])

	for id, want := range map[string]string{"a": "A1", "b": "B1"} {
		log, err := j.RunLog(id)
		if err != nil {
			t.Fatal(err)
		}
		if len(log) != 3 {
			t.Fatalf("run %s: expected 3 entries, got %d", id, len(log))
		}
		if log[1].Quest != want {
			t.Errorf("run %s: got row %q, want %q", id, log[1].Quest, want)
		}
	}
}

func TestRuns(t *testing.T) {
	j := openJournal(t, t.TempDir())
	now := time.Now()

	appendAll(t, j, run("r1", event.PhaseReset, now)...)
	appendAll(t, j, run("r2", event.PhaseReconcile, now.Add(time.Hour),
		event.Entry{Kind: event.KindXPGranted},
		event.Entry{Kind: event.KindXPGranted},
	)...)
	appendAll(t, j, event.Entry{Kind: event.KindInfo, Message: "loose"})

	runs, err := j.Runs()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	r := runs[1]
	if r.RunID != "r2" || r.Phase != event.PhaseReconcile {
		t.Errorf("unexpected run %+v", r)
	}
	if r.Succeeded != 2 || r.XP != 20 {
		t.Errorf("counts: got succeeded=%d xp=%d", r.Succeeded, r.XP)
	}
	if r.Duration() != time.Minute {
		t.Errorf("duration: got %s", r.Duration())
	}

	runs[0].RunID = "mutated"
	again, _ := j.Runs()
	if again[0].RunID != "r1" {
		t.Error("Runs should return a copy")
	}
}

func TestRuns_Aborted(t *testing.T) {
	j := openJournal(t, t.TempDir())
	now := time.Now()
	appendAll(t, j,
		event.Entry{Kind: event.KindPhaseStart, Timestamp: now, Phase: event.PhaseSelect, RunID: "x"},
		event.Entry{Kind: event.KindPhaseFailed, Timestamp: now, Phase: event.PhaseSelect, RunID: "x", Message: "select aborted: 503"},
	)

	runs, _ := j.Runs()
	if len(runs) != 1 || !runs[0].Aborted || runs[0].Message != "select aborted: 503" {
		t.Fatalf("unexpected runs %+v", runs)
	}
}

func TestRunLog_NotFound(t *testing.T) {
	j := openJournal(t, t.TempDir())
	if _, err := j.RunLog("missing"); err == nil {
		t.Error("expected error for unknown run")
	}
}

func TestRunLog_InProgress(t *testing.T) {
	j := openJournal(t, t.TempDir())
	appendAll(t, j, event.Entry{Kind: event.KindPhaseStart, RunID: "open", Phase: event.PhaseReset})
	if _, err := j.RunLog("open"); err == nil {
		t.Error("expected error for unfinished run")
	}
}

func TestRuns_DoneWithoutStart(t *testing.T) {
	j := openJournal(t, t.TempDir())
	appendAll(t, j, event.Entry{Kind: event.KindPhaseDone, RunID: "orphan"})
	runs, _ := j.Runs()
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}
}

func TestAppend_AfterClose(t *testing.T) {
	j, err := history.NewJSONL(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_ = j.Close()
	if err := j.Append(event.Entry{Kind: event.KindInfo}); err == nil {
		t.Error("expected error appending after Close")
	}
}

func TestLoadRuns(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	older := filepath.Join(dir, "1000-1.jsonl")
	j1, err := os.Create(older)
	if err != nil {
		t.Fatal(err)
	}
	fmt.Fprintln(j1, "{not json")
	j1.Close()

	j := openJournal(t, dir)
	appendAll(t, j, run("late", event.PhaseReconcile, now.Add(time.Hour))...)
	appendAll(t, j, run("early", event.PhaseReset, now)...)

	runs, err := history.LoadRuns(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].RunID != "early" || runs[1].RunID != "late" {
		t.Errorf("runs not ordered by end time: %s, %s", runs[0].RunID, runs[1].RunID)
	}

	if runs, err := history.LoadRuns(filepath.Join(dir, "missing")); err != nil || runs != nil {
		t.Errorf("missing dir: got %v, %v", runs, err)
	}
}

func TestEnforceRetention(t *testing.T) {
	tests := []struct {
		name    string
		files   int
		maxKeep int
		want    int
	}{
		{"keeps newest", 5, 3, 3},
		{"under limit", 2, 3, 2},
		{"unlimited", 5, 0, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for i := 0; i < tt.files; i++ {
				name := filepath.Join(dir, fmt.Sprintf("%d-1.jsonl", 1000+i))
				if err := os.WriteFile(name, nil, 0644); err != nil {
					t.Fatal(err)
				}
			}
			if err := os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0644); err != nil {
				t.Fatal(err)
			}

			if err := history.EnforceRetention(dir, tt.maxKeep); err != nil {
				t.Fatal(err)
			}

			entries, _ := os.ReadDir(dir)
			var jsonl []string
			for _, e := range entries {
				if filepath.Ext(e.Name()) == ".jsonl" {
					jsonl = append(jsonl, e.Name())
				}
			}
			if len(jsonl) != tt.want {
				t.Fatalf("kept %d files, want %d", len(jsonl), tt.want)
			}
			if tt.files > tt.maxKeep && tt.maxKeep > 0 {
				if last := jsonl[len(jsonl)-1]; last != fmt.Sprintf("%d-1.jsonl", 1000+tt.files-1) {
					t.Errorf("newest file removed; last kept %s", last)
				}
			}
			if len(entries)-len(jsonl) != 1 {
				t.Error("non-session files must be left alone")
			}
		})
	}

	t.Run("missing dir", func(t *testing.T) {
		if err := history.EnforceRetention(filepath.Join(t.TempDir(), "nope"), 3); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
