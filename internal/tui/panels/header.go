// Package panels provides the panel components for the quest dashboard.
package panels

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// DefaultTitle is shown when HeaderProps.Title is empty.
const DefaultTitle = "QuestKeeper"

// HeaderProps holds all data needed to render the header bar.
// State is passed as strings so this package does not import tui.
type HeaderProps struct {
	Title       string
	Timezone    string
	StateSymbol string // e.g. "●", "✓", "✗", "⟳"
	StateLabel  string // e.g. "RUNNING", "IDLE"
	NextPhase   string
	NextAt      time.Time
	XPToday     int
	Uptime      time.Duration
	Clock       time.Time
}

// FormatElapsed renders a duration as a compact string: "5s", "2m30s", "1h15m".
func FormatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// RenderHeader renders the header bar. accentStyle is applied to the full
// header width.
func RenderHeader(props HeaderProps, width int, accentStyle lipgloss.Style) string {
	title := DefaultTitle
	if props.Title != "" {
		title = props.Title
	}
	parts := []string{"⚔ " + title}
	if props.Timezone != "" {
		parts = append(parts, "tz: "+props.Timezone)
	}

	if props.StateLabel != "" {
		state := props.StateLabel
		if props.StateSymbol != "" {
			state = props.StateSymbol + " " + state
		}
		parts = append(parts, state)
	}

	next := "next: —"
	if props.NextPhase != "" && !props.NextAt.IsZero() {
		next = fmt.Sprintf("next: %s %s", props.NextPhase, props.NextAt.Format("Mon 15:04"))
	}
	parts = append(parts, next, fmt.Sprintf("xp today: %d", props.XPToday))

	if props.Uptime > 0 {
		parts = append(parts, "up: "+FormatElapsed(props.Uptime))
	}
	if !props.Clock.IsZero() {
		parts = append(parts, props.Clock.Format("15:04"))
	}

	return accentStyle.Width(width).Render(strings.Join(parts, "  │  "))
}
