package theme

import (
	"testing"

	"github.com/odvcencio/furry-actions/backend"
)

func TestLoad_ProvidesMenuGroups(t *testing.T) {
	p := Load("monokai")
	for _, group := range []string{GroupNormal, GroupPmenu, GroupPmenuSel, GroupStatusLine} {
		if _, ok := p.Groups[group]; !ok {
			t.Fatalf("missing group %s", group)
		}
	}
	if p.Style(GroupPmenu) == p.Style(GroupPmenuSel) {
		t.Fatalf("selected row must differ from the menu body")
	}
}

func TestLoad_UnknownFallsBack(t *testing.T) {
	if Known("no-such-style") {
		t.Fatalf("unexpected registered style")
	}
	p := Load("no-such-style")
	if len(p.Groups) == 0 {
		t.Fatalf("fallback palette is empty")
	}
}

func TestPalette_StyleDefault(t *testing.T) {
	var p Palette
	if p.Style("Missing") != backend.DefaultStyle() {
		t.Fatalf("expected default style for unknown group")
	}
}
