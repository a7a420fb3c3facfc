package tuihost

import (
	"context"
	"strings"
	"unicode/utf16"

	"github.com/mattn/go-runewidth"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/odvcencio/furry-actions/host"
	"github.com/odvcencio/furry-actions/widgets"
)

// Document reports the buffer in the view. A host without a URI has no
// document.
func (h *Host) Document(context.Context) (host.Document, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.doc, h.doc.URI != "", nil
}

// Text returns the buffer content.
func (h *Host) Text() string {
	var text string
	h.app.Inspect(func() { text = h.view.Text() })
	return text
}

func (h *Host) Cursor(context.Context) (protocol.Position, error) {
	var pos protocol.Position
	h.app.Inspect(func() {
		c := h.view.Cursor()
		pos = protocol.Position{
			Line:      protocol.UInteger(c.Line),
			Character: character(h.view.Line(c.Line), c.Col),
		}
	})
	return pos, nil
}

func (h *Host) SetCursor(_ context.Context, pos protocol.Position) error {
	h.app.Do(func() {
		line := int(pos.Line)
		h.view.SetCursor(line, runeColumn(h.view.Line(line), pos.Character))
	})
	return nil
}

// Selection returns the selection captured when a keymap command was
// started from visual mode. Line modes widen it to whole lines.
func (h *Host) Selection(_ context.Context, mode string) (protocol.Range, bool, error) {
	h.mu.Lock()
	sel := h.selection
	h.mu.Unlock()
	if sel == nil || mode == "" {
		return protocol.Range{}, false, nil
	}
	rng := *sel
	switch mode {
	case "V", "line":
		rng.Start.Character = 0
		rng.End = protocol.Position{Line: rng.End.Line + 1}
	}
	return rng, true, nil
}

func (h *Host) WordRange(context.Context) (protocol.Range, bool, error) {
	var (
		rng protocol.Range
		ok  bool
	)
	h.app.Inspect(func() {
		line, start, end, found := h.view.WordRange()
		if !found {
			return
		}
		text := h.view.Line(line)
		rng = protocol.Range{
			Start: protocol.Position{Line: protocol.UInteger(line), Character: character(text, start)},
			End:   protocol.Position{Line: protocol.UInteger(line), Character: character(text, end)},
		}
		ok = true
	})
	return rng, ok, nil
}

// Geometry measures rows above the status line.
func (h *Host) Geometry(context.Context) (host.Geometry, error) {
	var geo host.Geometry
	h.app.Inspect(func() {
		_, height := h.app.Screen().Size()
		bounds := h.view.Bounds()
		geo = host.Geometry{
			ScreenHeight: max(height-1, 0),
			WindowRow:    bounds.Y,
			CursorLine:   h.view.Cursor().Line - h.view.Offset(),
		}
	})
	return geo, nil
}

func (h *Host) Option(_ context.Context, name string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.options[name], nil
}

// SetOption stores an option. A guicursor value using the
// CursorTransparent group hides the hardware cursor.
func (h *Host) SetOption(_ context.Context, name, value string) error {
	h.mu.Lock()
	h.options[name] = value
	surfaces := append([]*surface(nil), h.surfaces...)
	h.mu.Unlock()
	if name != optionCursor {
		return nil
	}
	hidden := cursorTransparent(value)
	h.app.Do(func() {
		h.view.SetCursorHidden(hidden)
		for _, s := range surfaces {
			s.popup.SetCursorHidden(hidden)
		}
	})
	return nil
}

func (h *Host) cursorHidden() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return cursorTransparent(h.options[optionCursor])
}

func cursorTransparent(guicursor string) bool {
	return strings.Contains(guicursor, "CursorTransparent")
}

// cursorCell is the screen cell of the document cursor. Call it with the UI
// lock held.
func (h *Host) cursorCell() (x, y int) {
	c := h.view.Cursor()
	bounds := h.view.Bounds()
	runes := []rune(h.view.Line(c.Line))
	prefix := string(runes[:min(c.Col, len(runes))])
	return bounds.X + runewidth.StringWidth(prefix), bounds.Y + c.Line - h.view.Offset()
}

// rangeOf converts a half-open view selection. Call it with the UI lock
// held.
func (h *Host) rangeOf(start, end widgets.Pos) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(start.Line), Character: character(h.view.Line(start.Line), start.Col)},
		End:   protocol.Position{Line: protocol.UInteger(end.Line), Character: character(h.view.Line(end.Line), end.Col)},
	}
}

// character converts a rune column to UTF-16 code units.
func character(line string, col int) protocol.UInteger {
	n := 0
	for i, r := range []rune(line) {
		if i >= col {
			break
		}
		n += utf16Len(r)
	}
	if extra := col - len([]rune(line)); extra > 0 {
		n += extra
	}
	return protocol.UInteger(n)
}

// runeColumn converts UTF-16 code units to a rune column.
func runeColumn(line string, char protocol.UInteger) int {
	units := 0
	col := 0
	for _, r := range line {
		if units >= int(char) {
			return col
		}
		units += utf16Len(r)
		col++
	}
	return col
}

// byteOffset converts UTF-16 code units to a byte offset, clamped to the
// line.
func byteOffset(line string, char protocol.UInteger) int {
	units := 0
	for i, r := range line {
		if units >= int(char) {
			return i
		}
		units += utf16Len(r)
	}
	return len(line)
}

func utf16Len(r rune) int {
	return max(utf16.RuneLen(r), 1)
}
