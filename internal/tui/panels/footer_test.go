package panels

import (
	"strings"
	"testing"
)

func TestRenderFooter(t *testing.T) {
	tests := []struct {
		name   string
		props  FooterProps
		want   []string
		absent []string
	}{
		{"runs focus", FooterProps{Focus: "runs", Following: true}, []string{"live log", "j/k:navigate", "enter:view", "q:quit"}, []string{"R/S/C"}},
		{"log focus", FooterProps{Focus: "log", Following: true, CanTrigger: true}, []string{"f:follow", "ctrl+u/d:scroll", "R/S/C:run phase"}, []string{"paused"}},
		{"paused", FooterProps{Focus: "log"}, []string{"live log (paused)"}, nil},
		{"viewing run", FooterProps{Focus: "log", ViewingRun: "abc"}, []string{"run abc", "esc:back to live"}, []string{"paused"}},
		{"unknown focus", FooterProps{Focus: "?"}, []string{"tab:next panel"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rendered := RenderFooter(tt.props, 200)
			for _, w := range tt.want {
				if !strings.Contains(rendered, w) {
					t.Errorf("missing %q; got %q", w, rendered)
				}
			}
			for _, a := range tt.absent {
				if strings.Contains(rendered, a) {
					t.Errorf("unexpected %q; got %q", a, rendered)
				}
			}
		})
	}
}

func TestRenderFooter_NarrowWidth(t *testing.T) {
	// Must not panic when hints exceed the width.
	_ = RenderFooter(FooterProps{Focus: "log", CanTrigger: true}, 10)
}
