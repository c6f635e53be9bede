package tui

// Rect represents a rectangular region of the terminal.
type Rect struct {
	X, Y, Width, Height int
}

// Layout holds the computed panel geometry for a given terminal size.
type Layout struct {
	Header, Footer Rect
	Phases, Runs   Rect
	Log            Rect
	TooSmall       bool // true when terminal is below the minimum 80×24
}

// phasesHeight is the bordered height of the phases panel: one row per
// phase, a blank row, the XP total and two border rows.
const phasesHeight = 7

// Calculate computes the panel layout for a terminal of the given dimensions.
// Returns a Layout with TooSmall=true if width < 80 or height < 24.
//
//   - Header: full width, 1 row at top
//   - Footer: full width, 1 row at bottom
//   - Sidebar: 30% of width, clamped to [28, 40]
//   - Phases: sidebar width × fixed height (top of sidebar)
//   - Runs: sidebar width × remaining body height
//   - Log: remaining width × full body height
func Calculate(width, height int) Layout {
	if width < 80 || height < 24 {
		return Layout{TooSmall: true}
	}

	bodyH := height - 2

	sidebarW := width * 30 / 100
	if sidebarW < 28 {
		sidebarW = 28
	}
	if sidebarW > 40 {
		sidebarW = 40
	}

	return Layout{
		Header: Rect{X: 0, Y: 0, Width: width, Height: 1},
		Footer: Rect{X: 0, Y: height - 1, Width: width, Height: 1},
		Phases: Rect{X: 0, Y: 1, Width: sidebarW, Height: phasesHeight},
		Runs:   Rect{X: 0, Y: 1 + phasesHeight, Width: sidebarW, Height: bodyH - phasesHeight},
		Log:    Rect{X: sidebarW, Y: 1, Width: width - sidebarW, Height: bodyH},
	}
}

// innerDims returns the content size of a bordered panel.
func innerDims(r Rect) (w, h int) {
	w = r.Width - 2
	if w < 1 {
		w = 1
	}
	h = r.Height - 2
	if h < 1 {
		h = 1
	}
	return
}
