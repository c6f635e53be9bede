package quest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/event"
	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/recordstore"
)

// Eligible reports whether def is off cooldown at now. A quest never
// completed is always eligible; otherwise at least cooldownDays×24h must
// have elapsed since its last grant.
func Eligible(def Definition, now time.Time, cooldownDays int) bool {
	if def.LastCompleted == nil {
		return true
	}
	return now.Sub(*def.LastCompleted) >= time.Duration(cooldownDays)*24*time.Hour
}

// Rank orders quests by ascending completion count. Equal counts keep
// their catalog order. The input slice is not modified.
func Rank(defs []Definition) []Definition {
	ranked := append([]Definition(nil), defs...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TimesCompleted < ranked[j].TimesCompleted
	})
	return ranked
}

// Choose returns up to count eligible quests, least completed first.
func Choose(defs []Definition, count, cooldownDays int, now time.Time) []Definition {
	if count <= 0 {
		return nil
	}
	var eligible []Definition
	for _, d := range defs {
		if Eligible(d, now, cooldownDays) {
			eligible = append(eligible, d)
		}
	}
	ranked := Rank(eligible)
	if len(ranked) > count {
		ranked = ranked[:count]
	}
	return ranked
}

// Select schedules today's quests: it reads the whole catalog, chooses
// the eligible quests and creates one tracker row per choice. Failing to
// read the catalog aborts the phase; a failed row creation does not.
func (r *Runner) Select(ctx context.Context, now time.Time) (Summary, error) {
	p := r.start(event.PhaseSelect, now)
	s := r.Settings

	recs, err := r.Store.Query(ctx, s.CatalogCollection, recordstore.Filter{})
	if err != nil {
		return p.abort(fmt.Errorf("quest: select: query catalog: %w", err))
	}
	if len(recs) == 0 {
		p.infof("No quests found in catalog")
		return p.finish(), nil
	}

	defs := make([]Definition, 0, len(recs))
	for _, rec := range recs {
		def, decodeErr := DecodeDefinition(rec, s.defaultSkill())
		if decodeErr != nil {
			p.skip(RowResult{RowID: rec.ID, QuestID: rec.ID, Name: def.Name}, decodeErr.Error())
			continue
		}
		defs = append(defs, def)
	}

	chosen := Choose(defs, s.DailyCount, s.CooldownDays, now)
	p.infof("%d of %d quests off cooldown; scheduling %d", countEligible(defs, now, s), len(defs), len(chosen))

	for _, def := range chosen {
		if err := ctx.Err(); err != nil {
			return p.abort(fmt.Errorf("quest: select: %w", err))
		}
		res := RowResult{QuestID: def.ID, Name: def.Name}
		if r.DryRun {
			p.ok(res, "Would schedule %s (completed %d times)", def.Name, def.TimesCompleted)
			continue
		}
		row, createErr := r.Store.Create(ctx, s.TrackerCollection, trackerProperties(def))
		if createErr != nil {
			p.fail(res, "create tracker row for", createErr)
			continue
		}
		res.RowID = row.ID
		p.ok(res, "Scheduled %s", def.Name)
	}

	return p.finish(), nil
}

func countEligible(defs []Definition, now time.Time, s Settings) int {
	n := 0
	for _, d := range defs {
		if Eligible(d, now, s.CooldownDays) {
			n++
		}
	}
	return n
}
