// Package quest implements the daily quest cycle: resetting the tracker,
// selecting today's quests from the catalog, and reconciling completed
// tracker rows into the quest log with XP accounting. Every phase is
// stateless; it rebuilds its view from the record store on each call.
package quest

import (
	"time"
)

// Store property names. They match the columns of the Notion data sources
// the automation runs against.
const (
	PropName           = "Name"
	PropQuestName      = "Quest Name"
	PropTimesCompleted = "Times Completed"
	PropLastCompleted  = "Last Completed"
	PropXPValue        = "XP Value"
	PropSkill          = "Skill"
	PropCompleted      = "Completed"
	PropQuestMaster    = "Quest Master"
	PropXPEarned       = "XP Earned"
	PropCompletedOn    = "Completed On"
)

// Fallback names for records whose title is empty.
const (
	UntitledQuest = "Untitled"
	UnnamedRow    = "Unnamed Quest"
)

// DefaultSkill is the skill tag used when a quest has none.
const DefaultSkill = "General"

// Definition is a catalog entry carrying a quest's reward and cumulative stats.
type Definition struct {
	ID             string `validate:"required"`
	Name           string
	XPValue        int    `validate:"gte=0"`
	Skill          string `validate:"required"`
	TimesCompleted int    `validate:"gte=0"`
	LastCompleted  *time.Time
}

// TrackerRow is one quest assigned for the current day.
type TrackerRow struct {
	ID        string `validate:"required"`
	QuestRef  string `validate:"required"`
	Name      string
	Completed bool
}

// LogEntry records one completion observation. XPEarned is the full reward
// on the first grant of the day and zero for every later observation.
type LogEntry struct {
	ID          string
	Name        string    `validate:"required"`
	XPEarned    int       `validate:"gte=0"`
	Skill       string    `validate:"required"`
	QuestRef    string    `validate:"required"`
	CompletedOn time.Time `validate:"required"`
}

// Settings is the per-call configuration of the quest phases.
type Settings struct {
	TrackerCollection string
	CatalogCollection string
	LogCollection     string

	// DailyCount is the number of quests scheduled per day.
	DailyCount int
	// CooldownDays is the number of whole days (24h each) that must pass
	// after a reward grant before the quest can be scheduled again.
	CooldownDays int

	// Location defines the day boundary. Nil means UTC.
	Location *time.Location
	// DefaultSkill replaces an empty skill tag. Empty means DefaultSkill.
	DefaultSkill string
}

func (s Settings) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

func (s Settings) defaultSkill() string {
	if s.DefaultSkill == "" {
		return DefaultSkill
	}
	return s.DefaultSkill
}

// StartOfDay returns midnight of now's calendar day in the settings' location.
func (s Settings) StartOfDay(now time.Time) time.Time {
	t := now.In(s.location())
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
