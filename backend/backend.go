// Package backend defines the terminal surface the runtime draws into.
package backend

import "github.com/odvcencio/furry-actions/terminal"

// Color is a 24-bit color. The zero value means the terminal default.
type Color uint32

// ColorDefault leaves the terminal's own color in place.
const ColorDefault Color = 0

const colorSet Color = 1 << 24

// ColorRGB builds a true color.
func ColorRGB(r, g, b uint8) Color {
	return colorSet | Color(r)<<16 | Color(g)<<8 | Color(b)
}

// Valid reports whether the color is set.
func (c Color) Valid() bool {
	return c&colorSet != 0
}

// RGB returns the color components.
func (c Color) RGB() (r, g, b uint8) {
	return uint8(c >> 16), uint8(c >> 8), uint8(c)
}

// AttrMask holds text attributes.
type AttrMask uint8

const (
	AttrBold AttrMask = 1 << iota
	AttrReverse
	AttrUnderline
	AttrDim
)

// Style is an immutable cell style.
type Style struct {
	fg    Color
	bg    Color
	attrs AttrMask
}

// DefaultStyle returns the terminal default style.
func DefaultStyle() Style {
	return Style{}
}

// Foreground returns a copy with fg set.
func (s Style) Foreground(c Color) Style {
	s.fg = c
	return s
}

// Background returns a copy with bg set.
func (s Style) Background(c Color) Style {
	s.bg = c
	return s
}

// Reverse toggles reverse video.
func (s Style) Reverse(on bool) Style {
	return s.attr(AttrReverse, on)
}

// Bold toggles bold.
func (s Style) Bold(on bool) Style {
	return s.attr(AttrBold, on)
}

// Underline toggles underline.
func (s Style) Underline(on bool) Style {
	return s.attr(AttrUnderline, on)
}

// Dim toggles dim.
func (s Style) Dim(on bool) Style {
	return s.attr(AttrDim, on)
}

func (s Style) attr(mask AttrMask, on bool) Style {
	if on {
		s.attrs |= mask
	} else {
		s.attrs &^= mask
	}
	return s
}

// Decompose returns the style parts.
func (s Style) Decompose() (fg, bg Color, attrs AttrMask) {
	return s.fg, s.bg, s.attrs
}

// Cell is one screen cell.
type Cell struct {
	Rune  rune
	Style Style
}

// Backend abstracts a terminal.
type Backend interface {
	Init() error
	Fini()
	Size() (width, height int)
	SetContent(x, y int, mainc rune, combc []rune, style Style)
	Show()
	HideCursor()
	ShowCursor(x, y int)
	// PollEvent blocks for the next event. It returns nil once the backend
	// has been finalized.
	PollEvent() terminal.Event
}
