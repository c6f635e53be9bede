package history

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/event"
)

const sessionExt = ".jsonl"

// JSONL journals one process's events to <dir>/<unix>-<pid>.jsonl, one
// JSON-encoded event.Entry per line. Every Append is fsynced.
type JSONL struct {
	mu        sync.Mutex
	file      *os.File
	size      int64
	idx       *fileIndex
	sessionID string
}

// NewJSONL opens this process's session file in dir, creating both as
// needed.
func NewJSONL(dir string) (*JSONL, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("history: mkdir %q: %w", dir, err)
	}
	id := fmt.Sprintf("%d-%d", time.Now().Unix(), os.Getpid())
	path := filepath.Join(dir, id+sessionExt)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("history: open %q: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("history: stat %q: %w", path, err)
	}
	return &JSONL{file: f, size: info.Size(), idx: newFileIndex(), sessionID: id}, nil
}

// SessionID returns the file's base name without extension.
func (j *JSONL) SessionID() string { return j.sessionID }

// Append writes entry as one line. Safe for concurrent use.
func (j *JSONL) Append(entry event.Entry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("history: marshal: %w", err)
	}
	line = append(line, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.file.Write(line); err != nil {
		return fmt.Errorf("history: write: %w", err)
	}
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("history: sync: %w", err)
	}
	j.idx.onAppend(entry, j.size, int64(len(line)))
	j.size += int64(len(line))
	return nil
}

func (j *JSONL) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}

// Runs lists the runs finished in this session, in completion order.
func (j *JSONL) Runs() ([]RunSummary, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]RunSummary(nil), j.idx.summaries...), nil
}

// RunLog reads back the entries of one run finished in this session.
func (j *JSONL) RunLog(runID string) ([]event.Entry, error) {
	j.mu.Lock()
	r, ok := j.idx.ranges[runID]
	j.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("history: run %s not found", runID)
	}

	var entries []event.Entry
	section := io.NewSectionReader(j.file, r.start, r.end-r.start)
	err := decodeLines(section, func(e event.Entry, _, _ int64) {
		if e.RunID == runID {
			entries = append(entries, e)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("history: read run %s: %w", runID, err)
	}
	return entries, nil
}

// decodeLines calls fn for every well-formed entry line in r with the
// line's byte offset and length. Malformed lines are logged and skipped.
func decodeLines(r io.Reader, fn func(e event.Entry, offset, length int64)) error {
	br := bufio.NewReader(r)
	var offset int64
	for {
		line, err := br.ReadBytes('\n')
		if n := int64(len(line)); n > 0 {
			if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
				var e event.Entry
				if jsonErr := json.Unmarshal(trimmed, &e); jsonErr != nil {
					slog.Warn("history: skipping malformed line", "offset", offset, "err", jsonErr)
				} else {
					fn(e, offset, n)
				}
			}
			offset += n
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// LoadRuns indexes every session file in dir and returns the finished
// runs ordered by end time. A missing dir yields no runs.
func LoadRuns(dir string) ([]RunSummary, error) {
	paths, err := sessionFiles(dir)
	if err != nil {
		return nil, err
	}
	var out []RunSummary
	for _, path := range paths {
		idx, err := indexFile(path)
		if err != nil {
			return nil, err
		}
		out = append(out, idx.summaries...)
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].EndAt.Before(out[b].EndAt) })
	return out, nil
}

func indexFile(path string) (*fileIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("history: open %q: %w", path, err)
	}
	defer f.Close()

	idx := newFileIndex()
	if err := decodeLines(f, idx.onAppend); err != nil {
		return nil, fmt.Errorf("history: read %q: %w", path, err)
	}
	return idx, nil
}

// EnforceRetention deletes the oldest session files in dir until at most
// maxKeep remain. maxKeep <= 0 keeps everything.
func EnforceRetention(dir string, maxKeep int) error {
	if maxKeep <= 0 {
		return nil
	}
	paths, err := sessionFiles(dir)
	if err != nil || len(paths) <= maxKeep {
		return err
	}
	for _, path := range paths[:len(paths)-maxKeep] {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("history: remove %q: %w", path, err)
		}
	}
	return nil
}

// sessionFiles returns the session file paths in dir, oldest first. The
// names start with a unix timestamp, so lexical order is chronological.
func sessionFiles(dir string) ([]string, error) {
	des, err := os.ReadDir(dir)
	switch {
	case os.IsNotExist(err):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("history: list %q: %w", dir, err)
	}
	var paths []string
	for _, de := range des {
		if de.Type().IsRegular() && filepath.Ext(de.Name()) == sessionExt {
			paths = append(paths, filepath.Join(dir, de.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
