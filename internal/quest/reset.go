package quest

import (
	"context"
	"fmt"
	"time"

	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/event"
	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/recordstore"
)

// Reset archives every tracker row left from the previous day. It is
// unconditional and safe to repeat: an empty tracker is a no-op. A row
// that fails to archive is recorded and the remaining rows still run.
func (r *Runner) Reset(ctx context.Context, now time.Time) (Summary, error) {
	p := r.start(event.PhaseReset, now)

	recs, err := r.Store.Query(ctx, r.Settings.TrackerCollection, recordstore.Filter{})
	if err != nil {
		return p.abort(fmt.Errorf("quest: reset: query tracker: %w", err))
	}
	if len(recs) == 0 {
		p.infof("Daily tracker already empty")
		return p.finish(), nil
	}

	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return p.abort(fmt.Errorf("quest: reset: %w", err))
		}
		res := RowResult{RowID: rec.ID, Name: rec.Text(PropName)}
		if refs := rec.Relation(PropQuestMaster); len(refs) > 0 {
			res.QuestID = refs[0]
		}
		if res.Name == "" {
			res.Name = rec.ID
		}
		if archiveErr := r.Store.Archive(ctx, rec.ID); archiveErr != nil {
			p.fail(res, "archive", archiveErr)
			continue
		}
		p.ok(res, "Archived %s", res.Name)
	}

	return p.finish(), nil
}
