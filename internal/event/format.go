package event

import (
	"fmt"
	"strings"
)

// Format renders an entry as a single plain-text log line.
func Format(e Entry) string {
	ts := e.Timestamp.Format("15:04:05")
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", ts)
	if e.Phase != "" {
		fmt.Fprintf(&b, " %-9s", e.Phase)
	}
	b.WriteString("  ")
	b.WriteString(Symbol(e.Kind))
	b.WriteString(" ")
	b.WriteString(singleLine(e.Message))
	return b.String()
}

// Symbol returns the glyph shown in front of an entry of the given kind.
func Symbol(k Kind) string {
	switch k {
	case KindPhaseStart:
		return "▶"
	case KindRowOK:
		return "✓"
	case KindRowSkipped:
		return "⚠"
	case KindRowFailed, KindPhaseFailed:
		return "✗"
	case KindXPGranted:
		return "★"
	case KindPhaseDone:
		return "■"
	case KindScheduler:
		return "⏰"
	case KindSupervisor:
		return "⛨"
	default:
		return "·"
	}
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
