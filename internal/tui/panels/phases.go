package panels

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// PhaseRow is one line of the phases panel.
type PhaseRow struct {
	Name      string
	Symbol    string
	Label     string
	Succeeded int
	Skipped   int
	Failed    int
	LastAt    time.Time // zero if the phase has not finished this session
}

var dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))

// RenderPhases renders one row per phase followed by today's XP total,
// padded to w×h.
func RenderPhases(rows []PhaseRow, xpToday, w, h int) string {
	lines := make([]string, 0, len(rows)+2)
	for _, r := range rows {
		line := fmt.Sprintf("%s %-9s %-8s", r.Symbol, r.Name, r.Label)
		if !r.LastAt.IsZero() {
			line += dimStyle.Render(fmt.Sprintf(" %s %d✓ %d⚠ %d✗", r.LastAt.Format("15:04"), r.Succeeded, r.Skipped, r.Failed))
		}
		lines = append(lines, line)
	}
	lines = append(lines, "", fmt.Sprintf("★ %d XP today", xpToday))
	return lipgloss.NewStyle().Width(w).Height(h).Render(strings.Join(lines, "\n"))
}
