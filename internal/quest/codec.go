package quest

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/recordstore"
)

// ErrMissingQuestRef marks a tracker row that does not reference a quest.
var ErrMissingQuestRef = errors.New("tracker row has no quest reference")

// ErrInvalidRecord marks a record whose fields fail validation.
var ErrInvalidRecord = errors.New("invalid record")

var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeDefinition converts a catalog record into a Definition. Missing
// counters read as zero and an empty skill takes defaultSkill.
func DecodeDefinition(rec recordstore.Record, defaultSkill string) (Definition, error) {
	name := rec.Text(PropQuestName)
	if name == "" {
		name = rec.Text(PropName)
	}
	if name == "" {
		name = UntitledQuest
	}
	skill := strings.TrimSpace(rec.Text(PropSkill))
	if skill == "" {
		skill = defaultSkill
	}

	def := Definition{
		ID:             rec.ID,
		Name:           name,
		XPValue:        numberOrZero(rec, PropXPValue),
		Skill:          skill,
		TimesCompleted: numberOrZero(rec, PropTimesCompleted),
		LastCompleted:  rec.Date(PropLastCompleted),
	}
	if err := validate.Struct(def); err != nil {
		return def, fmt.Errorf("quest %s: %w: %s", rec.ID, ErrInvalidRecord, describe(err))
	}
	return def, nil
}

// DecodeTrackerRow converts a tracker record. Only the first quest
// relation is used.
func DecodeTrackerRow(rec recordstore.Record) (TrackerRow, error) {
	row := TrackerRow{
		ID:        rec.ID,
		Name:      rec.Text(PropName),
		Completed: rec.Checkbox(PropCompleted),
	}
	if row.Name == "" {
		row.Name = UnnamedRow
	}
	if refs := rec.Relation(PropQuestMaster); len(refs) > 0 {
		row.QuestRef = refs[0]
	}

	if err := validate.Struct(row); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Field() == "QuestRef" {
					return row, fmt.Errorf("row %s: %w", rec.ID, ErrMissingQuestRef)
				}
			}
		}
		return row, fmt.Errorf("row %s: %w: %s", rec.ID, ErrInvalidRecord, describe(err))
	}
	return row, nil
}

// DecodeLogEntry converts a quest log record.
func DecodeLogEntry(rec recordstore.Record) LogEntry {
	e := LogEntry{
		ID:       rec.ID,
		Name:     rec.Text(PropName),
		XPEarned: numberOrZero(rec, PropXPEarned),
		Skill:    rec.Text(PropSkill),
	}
	if refs := rec.Relation(PropQuestMaster); len(refs) > 0 {
		e.QuestRef = refs[0]
	}
	if d := rec.Date(PropCompletedOn); d != nil {
		e.CompletedOn = *d
	}
	return e
}

// trackerProperties builds a fresh, incomplete tracker row for def.
func trackerProperties(def Definition) recordstore.Properties {
	return recordstore.Properties{
		PropName:        recordstore.Title(def.Name),
		PropCompleted:   recordstore.Checkbox(false),
		PropQuestMaster: recordstore.Relation(def.ID),
	}
}

// logProperties validates e and encodes it for the quest log.
func logProperties(e LogEntry) (recordstore.Properties, error) {
	if err := validate.Struct(e); err != nil {
		return nil, fmt.Errorf("log entry: %w: %s", ErrInvalidRecord, describe(err))
	}
	return recordstore.Properties{
		PropName:        recordstore.Title(e.Name),
		PropXPEarned:    recordstore.Number(float64(e.XPEarned)),
		PropSkill:       recordstore.RichText(e.Skill),
		PropQuestMaster: recordstore.Relation(e.QuestRef),
		PropCompletedOn: recordstore.Date(e.CompletedOn),
	}, nil
}

// grantProperties records one more completion of def at the given time.
func grantProperties(def Definition, at time.Time) recordstore.Properties {
	return recordstore.Properties{
		PropTimesCompleted: recordstore.Number(float64(def.TimesCompleted + 1)),
		PropLastCompleted:  recordstore.Date(at),
	}
}

func numberOrZero(rec recordstore.Record, name string) int {
	n, ok := rec.Number(name)
	if !ok {
		return 0
	}
	return int(math.Round(n))
}

// describe flattens validator errors into "Field(tag)" pairs.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s(%s)", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}
