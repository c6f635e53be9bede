package history

import "github.com/LISSConsulting/LISSTech.QuestKeeper/internal/event"

// runRange is the [start, end) byte range of one run in the JSONL file.
// start is the offset of the KindPhaseStart line; end is the first byte
// after the KindPhaseDone or KindPhaseFailed line. Runs of different
// phases may interleave, so the range can hold foreign lines that readers
// filter out by RunID.
type runRange struct {
	start int64
	end   int64
}

// fileIndex keeps byte-offset bookmarks per finished run. It is updated by
// onAppend as each entry is written and serves RunLog reads via ReadAt.
type fileIndex struct {
	summaries []RunSummary           // ordered by completion time
	ranges    map[string]runRange    // RunID → byte range
	pending   map[string]*pendingRun // runs started but not finished
}

type pendingRun struct {
	startOffset int64
	summary     RunSummary
}

func newFileIndex() *fileIndex {
	return &fileIndex{
		ranges:  make(map[string]runRange),
		pending: make(map[string]*pendingRun),
	}
}

// onAppend updates the index after an entry line was appended. lineOffset
// is the offset of the line's first byte; lineLen includes the newline.
func (idx *fileIndex) onAppend(entry event.Entry, lineOffset, lineLen int64) {
	if entry.RunID == "" {
		return
	}
	switch entry.Kind {
	case event.KindPhaseStart:
		idx.pending[entry.RunID] = &pendingRun{
			startOffset: lineOffset,
			summary: RunSummary{
				RunID:   entry.RunID,
				Phase:   entry.Phase,
				StartAt: entry.Timestamp,
			},
		}
	case event.KindPhaseDone, event.KindPhaseFailed:
		p, ok := idx.pending[entry.RunID]
		if !ok {
			return
		}
		s := p.summary
		s.EndAt = entry.Timestamp
		s.Message = entry.Message
		s.Aborted = entry.Kind == event.KindPhaseFailed
		s.Succeeded = entry.Succeeded
		s.Skipped = entry.Skipped
		s.Failed = entry.Failed
		s.XP = entry.XPTotal
		idx.ranges[s.RunID] = runRange{start: p.startOffset, end: lineOffset + lineLen}
		idx.summaries = append(idx.summaries, s)
		delete(idx.pending, entry.RunID)
	}
}
