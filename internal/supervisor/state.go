// Package supervisor runs quest phases with retry and backoff, keeps each
// phase single-instance across processes, and persists per-phase state to
// <state_dir>/state.json for `quest status`.
package supervisor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/event"
)

// State is the persisted supervisor state, one entry per phase.
type State struct {
	PID    int                        `json:"pid"`
	Phases map[event.Phase]PhaseState `json:"phases"`
}

// PhaseState describes the latest supervised invocation of one phase.
type PhaseState struct {
	RunID           string    `json:"run_id,omitempty"`
	LastStartedAt   time.Time `json:"last_started_at"`
	LastFinishedAt  time.Time `json:"last_finished_at"`
	LastSuccessAt   time.Time `json:"last_success_at"`
	Running         bool      `json:"running"`
	Passed          bool      `json:"passed"`
	Attempts        int       `json:"attempts"`
	ConsecutiveErrs int       `json:"consecutive_errors"`
	LastError       string    `json:"last_error,omitempty"`
	Succeeded       int       `json:"succeeded"`
	Skipped         int       `json:"skipped"`
	Failed          int       `json:"failed"`
	XPGranted       int       `json:"xp_granted"`
}

const (
	stateFileName = "state.json"
	stateLockName = "state.lock"
)

// Phase returns the state of p, or the zero value if it never ran.
func (s State) Phase(p event.Phase) PhaseState {
	return s.Phases[p]
}

// LoadState reads state.json from dir. Returns a zero State (not an error)
// if the file does not exist.
func LoadState(dir string) (State, error) {
	path := filepath.Join(dir, stateFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return State{Phases: map[event.Phase]PhaseState{}}, nil
		}
		return State{}, fmt.Errorf("supervisor: read state: %w", err)
	}

	var s State
	if jsonErr := json.Unmarshal(data, &s); jsonErr != nil {
		return State{}, fmt.Errorf("supervisor: parse state: %w", jsonErr)
	}
	if s.Phases == nil {
		s.Phases = map[event.Phase]PhaseState{}
	}
	return s, nil
}

// SaveState writes state.json into dir, creating dir if needed. The file is
// written to a temp name and renamed so readers never see a partial file.
func SaveState(dir string, s State) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("supervisor: create state dir: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("supervisor: marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return fmt.Errorf("supervisor: create temp state: %w", err)
	}
	if _, writeErr := tmp.Write(data); writeErr != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("supervisor: write state: %w", writeErr)
	}
	if closeErr := tmp.Close(); closeErr != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("supervisor: close state: %w", closeErr)
	}
	if renameErr := os.Rename(tmp.Name(), filepath.Join(dir, stateFileName)); renameErr != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("supervisor: finalize state: %w", renameErr)
	}
	return nil
}
