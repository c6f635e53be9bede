package quest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/recordstore"
)

// Ledger is the quest log for one calendar day.
type Ledger struct {
	Day     time.Time
	Entries []LogEntry
}

// TotalXP sums the experience earned across the day's entries.
func (l Ledger) TotalXP() int {
	total := 0
	for _, e := range l.Entries {
		total += e.XPEarned
	}
	return total
}

// SkillXP is the experience earned for one skill tag.
type SkillXP struct {
	Skill string
	XP    int
}

// BySkill totals XP per skill, largest first, ties by name.
func (l Ledger) BySkill() []SkillXP {
	totals := make(map[string]int)
	for _, e := range l.Entries {
		if e.XPEarned > 0 {
			totals[e.Skill] += e.XPEarned
		}
	}
	out := make([]SkillXP, 0, len(totals))
	for skill, xp := range totals {
		out = append(out, SkillXP{Skill: skill, XP: xp})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].XP != out[j].XP {
			return out[i].XP > out[j].XP
		}
		return out[i].Skill < out[j].Skill
	})
	return out
}

// Today reads the quest log entries completed on now's calendar day.
func (r *Runner) Today(ctx context.Context, now time.Time) (Ledger, error) {
	day := r.Settings.StartOfDay(now)
	recs, err := r.Store.Query(ctx, r.Settings.LogCollection, recordstore.DateOnOrAfter(PropCompletedOn, day))
	if err != nil {
		return Ledger{}, fmt.Errorf("quest: read log: %w", err)
	}
	next := day.AddDate(0, 0, 1)
	l := Ledger{Day: day}
	for _, rec := range recs {
		e := DecodeLogEntry(rec)
		if !e.CompletedOn.Before(next) {
			continue
		}
		l.Entries = append(l.Entries, e)
	}
	sort.SliceStable(l.Entries, func(i, j int) bool {
		return l.Entries[i].CompletedOn.Before(l.Entries[j].CompletedOn)
	})
	return l, nil
}
