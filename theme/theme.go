// Package theme derives the terminal host's highlight groups from a chroma
// syntax style.
package theme

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/odvcencio/furry-actions/backend"
)

// Group names shared with the menu and the host.
const (
	GroupNormal     = "Normal"
	GroupPmenu      = "Pmenu"
	GroupPmenuSel   = "PmenuSel"
	GroupCursorLine = "CursorLine"
	GroupVisual     = "Visual"
	GroupStatusLine = "StatusLine"
)

// Palette maps highlight group names to styles.
type Palette struct {
	Name   string
	Groups map[string]backend.Style
}

// Style returns the style for group, or the default style.
func (p Palette) Style(group string) backend.Style {
	if s, ok := p.Groups[group]; ok {
		return s
	}
	return backend.DefaultStyle()
}

// Known reports whether name is a registered chroma style.
func Known(name string) bool {
	_, ok := styles.Registry[name]
	return ok
}

// Load builds a palette from the chroma style called name. Unknown names use
// chroma's fallback style.
func Load(name string) Palette {
	style := styles.Get(name)
	bg := style.Get(chroma.Background)
	line := style.Get(chroma.LineHighlight)
	keyword := style.Get(chroma.Keyword)
	comment := style.Get(chroma.Comment)

	normal := backend.DefaultStyle()
	if bg.Colour.IsSet() {
		normal = normal.Foreground(convert(bg.Colour))
	}
	if bg.Background.IsSet() {
		normal = normal.Background(convert(bg.Background))
	}

	menuBG := line.Background
	if !menuBG.IsSet() && bg.Background.IsSet() {
		menuBG = bg.Background.Brighten(0.15)
	}
	menu := normal
	if menuBG.IsSet() {
		menu = menu.Background(convert(menuBG))
	}

	selected := menu.Reverse(true)
	if keyword.Colour.IsSet() && bg.Background.IsSet() {
		selected = backend.DefaultStyle().
			Foreground(convert(bg.Background)).
			Background(convert(keyword.Colour)).
			Bold(true)
	}

	status := menu
	if comment.Colour.IsSet() {
		status = status.Foreground(convert(comment.Colour))
	}

	return Palette{
		Name: style.Name,
		Groups: map[string]backend.Style{
			GroupNormal:     normal,
			GroupPmenu:      menu,
			GroupPmenuSel:   selected,
			GroupCursorLine: selected,
			GroupVisual:     normal.Reverse(true),
			GroupStatusLine: status,
		},
	}
}

func convert(c chroma.Colour) backend.Color {
	return backend.ColorRGB(c.Red(), c.Green(), c.Blue())
}
