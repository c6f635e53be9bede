package tui

import (
	"testing"

	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/event"
)

func TestTriggerKeys_CoverEveryPhase(t *testing.T) {
	seen := make(map[event.Phase]string)
	for key, phase := range triggerKeys {
		if prev, dup := seen[phase]; dup {
			t.Errorf("phase %s bound to both %q and %q", phase, prev, key)
		}
		seen[phase] = key
	}
	for _, p := range event.Phases {
		if _, ok := seen[p]; !ok {
			t.Errorf("no trigger key for %s", p)
		}
	}
}

func TestFocusKeys_CoverEveryPanel(t *testing.T) {
	for f := FocusTarget(0); f < focusCount; f++ {
		found := false
		for _, target := range focusKeys {
			if target == f {
				found = true
			}
		}
		if !found {
			t.Errorf("no focus key for %s", f)
		}
	}
	for key := range focusKeys {
		if _, clash := triggerKeys[key]; clash {
			t.Errorf("%q is both a focus and a trigger key", key)
		}
	}
}
