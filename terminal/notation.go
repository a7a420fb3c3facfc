package terminal

import (
	"strings"
	"unicode"
)

var keyNames = map[Key]string{
	KeyEnter:     "<CR>",
	KeyEscape:    "<Esc>",
	KeyTab:       "<Tab>",
	KeyBacktab:   "<S-Tab>",
	KeyBackspace: "<BS>",
	KeyDelete:    "<Del>",
	KeyUp:        "<Up>",
	KeyDown:      "<Down>",
	KeyLeft:      "<Left>",
	KeyRight:     "<Right>",
	KeyHome:      "<Home>",
	KeyEnd:       "<End>",
	KeyPageUp:    "<PageUp>",
	KeyPageDown:  "<PageDown>",
	KeyF1:        "<F1>",
	KeyF2:        "<F2>",
}

// Notation renders a key event in editor keymap notation, e.g. "j", "<CR>",
// "<C-n>" or "<M-x>".
func (e KeyEvent) Notation() string {
	if e.Key != KeyRune {
		name, ok := keyNames[e.Key]
		if !ok {
			return ""
		}
		return name
	}
	if e.Rune == 0 {
		return ""
	}
	switch {
	case e.Ctrl:
		return "<C-" + string(unicode.ToLower(e.Rune)) + ">"
	case e.Alt:
		return "<M-" + string(e.Rune) + ">"
	case e.Rune == ' ':
		return "<Space>"
	}
	return string(e.Rune)
}

// NormalizeNotation canonicalizes user supplied key notation so lookups are
// case-insensitive for special keys ("<cr>" and "<CR>" match).
func NormalizeNotation(key string) string {
	if len(key) < 3 || key[0] != '<' || key[len(key)-1] != '>' {
		return key
	}
	inner := key[1 : len(key)-1]
	if i := strings.IndexByte(inner, '-'); i > 0 && i < len(inner)-1 {
		mod := strings.ToUpper(inner[:i])
		rest := inner[i+1:]
		if len([]rune(rest)) == 1 {
			if mod == "C" {
				rest = strings.ToLower(rest)
			}
			return "<" + mod + "-" + rest + ">"
		}
		return "<" + mod + "-" + canonicalName(rest) + ">"
	}
	return "<" + canonicalName(inner) + ">"
}

func canonicalName(name string) string {
	lower := strings.ToLower(name)
	for _, known := range keyNames {
		candidate := known[1 : len(known)-1]
		if strings.ToLower(candidate) == lower {
			return candidate
		}
	}
	switch lower {
	case "enter", "return":
		return "CR"
	case "escape":
		return "Esc"
	case "space":
		return "Space"
	}
	return name
}

// ParseNotation is the inverse of Notation. It accepts anything
// NormalizeNotation understands.
func ParseNotation(notation string) (KeyEvent, bool) {
	key := NormalizeNotation(notation)
	if key == "" {
		return KeyEvent{}, false
	}
	if runes := []rune(key); len(runes) == 1 {
		return KeyEvent{Key: KeyRune, Rune: runes[0]}, true
	}
	if key == "<Space>" {
		return KeyEvent{Key: KeyRune, Rune: ' '}, true
	}
	for k, name := range keyNames {
		if name == key {
			return KeyEvent{Key: k}, true
		}
	}
	if len(key) > 4 && key[2] == '-' {
		rest := []rune(key[3 : len(key)-1])
		if len(rest) != 1 {
			return KeyEvent{}, false
		}
		switch key[1] {
		case 'C':
			return KeyEvent{Key: KeyRune, Rune: rest[0], Ctrl: true}, true
		case 'M', 'A':
			return KeyEvent{Key: KeyRune, Rune: rest[0], Alt: true}, true
		}
	}
	return KeyEvent{}, false
}
