package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/event"
)

// Theme carries the styles derived from the configured accent color.
// Styles that ignore the accent are package variables in styles.go.
type Theme struct {
	header  lipgloss.Style
	grant   lipgloss.Style
	focused lipgloss.Style
	blurred lipgloss.Style
}

// NewTheme builds a Theme around a "#RRGGBB" accent; "" selects the
// default amber.
func NewTheme(accentColor string) Theme {
	if accentColor == "" {
		accentColor = defaultAccentColor
	}
	accent := lipgloss.Color(accentColor)
	border := lipgloss.NewStyle().Border(lipgloss.RoundedBorder())
	return Theme{
		header:  lipgloss.NewStyle().Background(accent).Foreground(lipgloss.Color("#FFFFFF")).Bold(true),
		grant:   lipgloss.NewStyle().Foreground(accent).Bold(true),
		focused: border.BorderForeground(accent),
		blurred: border.BorderForeground(colorGray),
	}
}

func (t Theme) AccentHeaderStyle() lipgloss.Style { return t.header }

// PanelBorderStyle picks the accent border for the focused panel.
func (t Theme) PanelBorderStyle(focused bool) lipgloss.Style {
	if focused {
		return t.focused
	}
	return t.blurred
}

// RenderLogLine renders an event entry as a single terminal line no wider
// than width (minimum 20 columns of message text).
func (t Theme) RenderLogLine(entry event.Entry, width int) string {
	ts := timestampStyle.Render(fmt.Sprintf("[%s]", entry.Timestamp.Format("15:04:05")))

	prefix := ""
	if entry.Phase != "" {
		prefix = phaseStyle.Render(fmt.Sprintf("%-9s", entry.Phase)) + " "
	}

	text := event.Symbol(entry.Kind) + " " + strings.Join(strings.Fields(entry.Message), " ")
	maxText := width - 24
	if maxText < 20 {
		maxText = 20
	}
	if runes := []rune(text); len(runes) > maxText {
		text = string(runes[:maxText-1]) + "…"
	}

	style := kindStyle(entry.Kind)
	if entry.Kind == event.KindXPGranted {
		style = t.grant
	}
	return fmt.Sprintf("%s  %s%s", ts, prefix, style.Render(text))
}
