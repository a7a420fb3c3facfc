package widgets

import (
	"maps"
	"slices"
	"sync"

	"github.com/odvcencio/furry-actions/backend"
	"github.com/odvcencio/furry-actions/runtime"
	"github.com/odvcencio/furry-actions/scroll"
	"github.com/odvcencio/furry-actions/terminal"
)

// Highlight paints one whole row of a Popup with a named group.
type Highlight struct {
	Line  int
	Group string
}

// Popup is a read-only floating list of lines with its own cursor.
// Group styles are looked up by name; "Normal" is the body and "CursorLine"
// the native cursor line.
type Popup struct {
	Base
	lines      []string
	cursor     int
	window     scroll.Window
	highlights map[string][]Highlight
	groups     map[string]backend.Style
	cursorLine bool
	hideCursor bool

	mu       sync.Mutex
	bindings map[string]func()
	onMove   func(line int)
}

// NewPopup creates an empty popup.
func NewPopup() *Popup {
	return &Popup{
		highlights: make(map[string][]Highlight),
		groups: map[string]backend.Style{
			"Normal":     backend.DefaultStyle(),
			"CursorLine": backend.DefaultStyle().Reverse(true),
		},
		bindings: make(map[string]func()),
	}
}

// SetGroupStyle assigns the style drawn for a highlight group.
func (p *Popup) SetGroupStyle(group string, style backend.Style) {
	if p == nil {
		return
	}
	p.groups[group] = style
}

// SetLines replaces the content and puts the cursor on the first line.
// Highlights are dropped with the old content.
func (p *Popup) SetLines(lines []string) {
	if p == nil {
		return
	}
	p.lines = append(p.lines[:0:0], lines...)
	p.cursor = 0
	clear(p.highlights)
	p.window = scroll.Window{Height: p.bounds.Height, Count: len(p.lines)}
}

// Lines returns a copy of the content.
func (p *Popup) Lines() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.lines...)
}

// SetCursorLineEnabled toggles drawing the cursor row with the CursorLine
// group.
func (p *Popup) SetCursorLineEnabled(on bool) {
	if p == nil {
		return
	}
	p.cursorLine = on
}

// SetCursorHidden hides the hardware cursor while the popup is on top.
func (p *Popup) SetCursorHidden(hidden bool) {
	if p == nil {
		return
	}
	p.hideCursor = hidden
}

// CursorLine returns the 0-based cursor line.
func (p *Popup) CursorLine() int {
	if p == nil {
		return 0
	}
	return p.cursor
}

// SetCursorLine moves the cursor, clamped to the content, and reports
// whether it moved.
func (p *Popup) SetCursorLine(line int) bool {
	if p == nil || len(p.lines) == 0 {
		return false
	}
	line = min(max(line, 0), len(p.lines)-1)
	if line == p.cursor {
		return false
	}
	p.cursor = line
	p.window = p.window.Reveal(line)
	p.mu.Lock()
	fn := p.onMove
	p.mu.Unlock()
	if fn != nil {
		fn(line)
	}
	return true
}

// AddHighlight paints line with group under namespace ns.
func (p *Popup) AddHighlight(ns string, line int, group string) {
	if p == nil || line < 0 || line >= len(p.lines) {
		return
	}
	p.highlights[ns] = append(p.highlights[ns], Highlight{Line: line, Group: group})
}

// ClearHighlights removes every highlight in ns.
func (p *Popup) ClearHighlights(ns string) {
	if p == nil {
		return
	}
	delete(p.highlights, ns)
}

// Highlights returns the highlights in ns.
func (p *Popup) Highlights(ns string) []Highlight {
	if p == nil {
		return nil
	}
	return append([]Highlight(nil), p.highlights[ns]...)
}

// OnCursorMoved registers fn to run after every cursor change.
func (p *Popup) OnCursorMoved(fn func(line int)) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.onMove = fn
	p.mu.Unlock()
}

// Bind maps a key in editor notation to fn. Bound keys take precedence over
// the built-in movement keys. The returned func removes the binding.
func (p *Popup) Bind(notation string, fn func()) func() {
	if p == nil || fn == nil {
		return func() {}
	}
	key := terminal.NormalizeNotation(notation)
	p.mu.Lock()
	p.bindings[key] = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.bindings, key)
		p.mu.Unlock()
	}
}

// Bound reports whether notation has a binding.
func (p *Popup) Bound(notation string) bool {
	if p == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.bindings[terminal.NormalizeNotation(notation)]
	return ok
}

// Layout stores bounds and resizes the scroll window.
func (p *Popup) Layout(bounds runtime.Rect) {
	if p == nil {
		return
	}
	p.Base.Layout(bounds)
	p.window.Height = bounds.Height
	p.window.Count = len(p.lines)
	p.window = p.window.Reveal(p.cursor)
}

// Render draws visible lines, then highlights on top.
func (p *Popup) Render(ctx runtime.RenderContext) {
	if p == nil {
		return
	}
	bounds := p.bounds
	if bounds.Empty() {
		return
	}
	normal := p.groups["Normal"]
	ctx.Buffer.Fill(bounds, ' ', normal)
	first, last := p.window.Rows()
	for line := first; line < last; line++ {
		style := normal
		if p.cursorLine && line == p.cursor {
			style = p.groups["CursorLine"]
		}
		for _, ns := range slices.Sorted(maps.Keys(p.highlights)) {
			for _, hl := range p.highlights[ns] {
				if hl.Line == line {
					if s, ok := p.groups[hl.Group]; ok {
						style = s
					}
				}
			}
		}
		writePadded(ctx.Buffer, bounds.X, bounds.Y+line-first, bounds.Width, p.lines[line], style)
	}
}

// CursorPosition places the cursor at the start of the cursor line.
func (p *Popup) CursorPosition() (int, int, bool) {
	if p == nil || p.hideCursor || !p.window.Visible(p.cursor) {
		return 0, 0, false
	}
	return p.bounds.X, p.bounds.Y + p.cursor - p.window.Offset, true
}

// HandleMessage runs bindings first, then moves the cursor with j/k, the
// arrow keys, Home/End and G.
func (p *Popup) HandleMessage(msg runtime.Message) runtime.HandleResult {
	if p == nil {
		return runtime.Unhandled()
	}
	key, ok := msg.(runtime.KeyMsg)
	if !ok {
		return runtime.Unhandled()
	}
	p.mu.Lock()
	fn := p.bindings[key.Notation()]
	p.mu.Unlock()
	if fn != nil {
		fn()
		return runtime.Handled()
	}
	switch {
	case key.Key == terminal.KeyDown || (key.Key == terminal.KeyRune && key.Rune == 'j' && !key.Ctrl):
		p.SetCursorLine(p.cursor + 1)
	case key.Key == terminal.KeyUp || (key.Key == terminal.KeyRune && key.Rune == 'k' && !key.Ctrl):
		p.SetCursorLine(p.cursor - 1)
	case key.Key == terminal.KeyHome:
		p.SetCursorLine(0)
	case key.Key == terminal.KeyEnd || (key.Key == terminal.KeyRune && key.Rune == 'G'):
		p.SetCursorLine(len(p.lines) - 1)
	case key.Key == terminal.KeyPageDown:
		p.SetCursorLine(p.cursor + max(p.bounds.Height, 1))
	case key.Key == terminal.KeyPageUp:
		p.SetCursorLine(p.cursor - max(p.bounds.Height, 1))
	default:
		return runtime.Unhandled()
	}
	return runtime.Handled()
}

// ScrollBy scrolls the view without moving the cursor off screen.
func (p *Popup) ScrollBy(dy int) {
	if p == nil {
		return
	}
	p.window = p.window.By(dy)
	if first, last := p.window.Rows(); first < last && !p.window.Visible(p.cursor) {
		p.SetCursorLine(min(max(p.cursor, first), last-1))
	}
}

// ScrollTo sets the first visible line.
func (p *Popup) ScrollTo(offset int) {
	if p == nil {
		return
	}
	p.ScrollBy(offset - p.window.Offset)
}

// ScrollToStart shows the first line.
func (p *Popup) ScrollToStart() {
	p.ScrollTo(0)
}

// ScrollToEnd shows the last line.
func (p *Popup) ScrollToEnd() {
	if p == nil {
		return
	}
	p.ScrollTo(p.window.MaxOffset())
}

var _ scroll.Controller = (*Popup)(nil)
