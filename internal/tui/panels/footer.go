package panels

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))

// FooterProps holds all data needed to render the footer bar.
type FooterProps struct {
	Focus      string // "runs" or "log"
	ViewingRun string // run ID shown in the log panel; empty for the live log
	Following  bool
	CanTrigger bool // phase trigger keys are wired
}

// RenderFooter renders the context-sensitive footer bar.
// Left side: which log is shown. Right side: keybinding hints.
func RenderFooter(props FooterProps, width int) string {
	left := "live log"
	if props.ViewingRun != "" {
		left = fmt.Sprintf("run %s  esc:back to live", props.ViewingRun)
	} else if !props.Following {
		left = "live log (paused)"
	}

	right := panelHints(props.Focus)
	if props.CanTrigger {
		right += "  R/S/C:run phase"
	}
	right += "  q:quit  1-2:panel"

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 2 {
		gap = 2
	}
	return footerStyle.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

// panelHints returns the keybinding hints for a given focus.
func panelHints(focus string) string {
	switch focus {
	case "runs":
		return "j/k:navigate  enter:view  tab:next panel"
	case "log":
		return "f:follow  ctrl+u/d:scroll  tab:next panel"
	default:
		return "tab:next panel"
	}
}
