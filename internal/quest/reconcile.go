package quest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/event"
	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/recordstore"
)

// Reconcile logs every completed tracker row. The first completion of a
// quest on a calendar day earns its full XP and bumps the quest's
// counters; later observations the same day are logged with zero XP.
// Rows without a quest reference are skipped. Only the initial tracker
// read is fatal.
func (r *Runner) Reconcile(ctx context.Context, now time.Time) (Summary, error) {
	p := r.start(event.PhaseReconcile, now)
	s := r.Settings

	recs, err := r.Store.Query(ctx, s.TrackerCollection, recordstore.CheckboxEquals(PropCompleted, true))
	if err != nil {
		return p.abort(fmt.Errorf("quest: reconcile: query tracker: %w", err))
	}
	if len(recs) == 0 {
		p.infof("No completed quests")
		return p.finish(), nil
	}

	dayStart := s.StartOfDay(now)
	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return p.abort(fmt.Errorf("quest: reconcile: %w", err))
		}
		r.reconcileRow(ctx, p, rec, now, dayStart)
	}
	return p.finish(), nil
}

func (r *Runner) reconcileRow(ctx context.Context, p *phaseRun, rec recordstore.Record, now, dayStart time.Time) {
	s := r.Settings

	row, err := DecodeTrackerRow(rec)
	res := RowResult{RowID: rec.ID, QuestID: row.QuestRef, Name: row.Name}
	if err != nil {
		if errors.Is(err, ErrMissingQuestRef) {
			p.skip(res, "no quest reference")
		} else {
			p.skip(res, err.Error())
		}
		return
	}

	questRec, err := r.Store.Get(ctx, row.QuestRef)
	if err != nil {
		p.fail(res, "fetch quest for", err)
		return
	}
	def, err := DecodeDefinition(questRec, s.defaultSkill())
	if err != nil {
		p.skip(res, err.Error())
		return
	}

	already, err := r.grantedSince(ctx, def.ID, dayStart)
	if err != nil {
		p.fail(res, "check today's log for", err)
		return
	}

	entry := LogEntry{
		Name:        row.Name,
		Skill:       def.Skill,
		QuestRef:    def.ID,
		CompletedOn: now,
	}
	if !already {
		entry.XPEarned = def.XPValue
	}
	props, err := logProperties(entry)
	if err != nil {
		p.skip(res, err.Error())
		return
	}
	if _, err := r.Store.Create(ctx, s.LogCollection, props); err != nil {
		p.fail(res, "log", err)
		return
	}

	if already {
		p.ok(res, "%s already logged today; recorded 0 XP", row.Name)
		return
	}

	res.XP = def.XPValue
	if err := r.Store.Update(ctx, def.ID, grantProperties(def, now)); err != nil {
		p.fail(res, "update completion counters for", err)
		return
	}
	p.granted(res)
}

// grantedSince reports whether the quest log holds any entry for questID
// completed at or after since.
func (r *Runner) grantedSince(ctx context.Context, questID string, since time.Time) (bool, error) {
	logged, err := r.Store.Query(ctx, r.Settings.LogCollection, recordstore.And(
		recordstore.RelationContains(PropQuestMaster, questID),
		recordstore.DateOnOrAfter(PropCompletedOn, since),
	))
	if err != nil {
		return false, err
	}
	return len(logged) > 0, nil
}
