package widgets

import (
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"

	"github.com/odvcencio/furry-actions/backend"
	"github.com/odvcencio/furry-actions/runtime"
	"github.com/odvcencio/furry-actions/scroll"
	"github.com/odvcencio/furry-actions/terminal"
)

// Pos is a 0-based line and rune column.
type Pos struct {
	Line int
	Col  int
}

// Before reports whether p sorts before o.
func (p Pos) Before(o Pos) bool {
	return p.Line < o.Line || (p.Line == o.Line && p.Col < o.Col)
}

// TextView is a read-only document view with a normal-mode cursor and a
// charwise visual selection started with v.
type TextView struct {
	Base
	lines      []string
	cursor     Pos
	window     scroll.Window
	anchor     Pos
	visual     bool
	hideCursor bool
	style      backend.Style
	selStyle   backend.Style
	onMove     func(Pos)
}

// NewTextView creates a view over text.
func NewTextView(text string) *TextView {
	t := &TextView{
		style:    backend.DefaultStyle(),
		selStyle: backend.DefaultStyle().Reverse(true),
	}
	t.SetText(text)
	return t
}

// SetStyles sets the body and visual selection styles.
func (t *TextView) SetStyles(body, selection backend.Style) {
	if t == nil {
		return
	}
	t.style, t.selStyle = body, selection
}

// SetText replaces the document. The cursor is clamped into it.
func (t *TextView) SetText(text string) {
	if t == nil {
		return
	}
	t.SetLines(strings.Split(text, "\n"))
}

// SetLines replaces the document by lines.
func (t *TextView) SetLines(lines []string) {
	if t == nil {
		return
	}
	if len(lines) == 0 {
		lines = []string{""}
	}
	t.lines = append([]string(nil), lines...)
	t.window.Count = len(t.lines)
	t.SetCursor(t.cursor.Line, t.cursor.Col)
}

// Text returns the document joined with newlines.
func (t *TextView) Text() string {
	if t == nil {
		return ""
	}
	return strings.Join(t.lines, "\n")
}

// Lines returns a copy of the document lines.
func (t *TextView) Lines() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.lines...)
}

// Line returns one line, or "" out of range.
func (t *TextView) Line(n int) string {
	if t == nil || n < 0 || n >= len(t.lines) {
		return ""
	}
	return t.lines[n]
}

// Cursor returns the cursor position.
func (t *TextView) Cursor() Pos {
	if t == nil {
		return Pos{}
	}
	return t.cursor
}

// SetCursor moves the cursor, clamped to the document.
func (t *TextView) SetCursor(line, col int) {
	if t == nil || len(t.lines) == 0 {
		return
	}
	line = min(max(line, 0), len(t.lines)-1)
	col = min(max(col, 0), max(len([]rune(t.lines[line]))-1, 0))
	next := Pos{Line: line, Col: col}
	moved := next != t.cursor
	t.cursor = next
	t.window = t.window.Reveal(line)
	if moved && t.onMove != nil {
		t.onMove(next)
	}
}

// OnCursorMoved registers fn to run after the cursor changes.
func (t *TextView) OnCursorMoved(fn func(Pos)) {
	if t == nil {
		return
	}
	t.onMove = fn
}

// Offset returns the first visible line.
func (t *TextView) Offset() int {
	if t == nil {
		return 0
	}
	return t.window.Offset
}

// SetCursorHidden hides the hardware cursor.
func (t *TextView) SetCursorHidden(hidden bool) {
	if t == nil {
		return
	}
	t.hideCursor = hidden
}

// Visual reports whether a visual selection is active.
func (t *TextView) Visual() bool {
	return t != nil && t.visual
}

// Selection returns the visual selection as a half-open range. ok is false
// when no selection is active.
func (t *TextView) Selection() (start, end Pos, ok bool) {
	if t == nil || !t.visual {
		return Pos{}, Pos{}, false
	}
	start, end = t.anchor, t.cursor
	if end.Before(start) {
		start, end = end, start
	}
	end.Col++
	return start, end, true
}

// ClearSelection leaves visual mode.
func (t *TextView) ClearSelection() {
	if t == nil {
		return
	}
	t.visual = false
}

// WordRange returns the half-open columns of the word under the cursor.
// Words are runs of letters, digits and underscores.
func (t *TextView) WordRange() (line, start, end int, ok bool) {
	if t == nil || len(t.lines) == 0 {
		return 0, 0, 0, false
	}
	runes := []rune(t.lines[t.cursor.Line])
	col := t.cursor.Col
	if col >= len(runes) || !isWordRune(runes[col]) {
		return 0, 0, 0, false
	}
	start, end = col, col+1
	for start > 0 && isWordRune(runes[start-1]) {
		start--
	}
	for end < len(runes) && isWordRune(runes[end]) {
		end++
	}
	return t.cursor.Line, start, end, true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Layout stores bounds and resizes the scroll window.
func (t *TextView) Layout(bounds runtime.Rect) {
	if t == nil {
		return
	}
	t.Base.Layout(bounds)
	t.window.Height = bounds.Height
	t.window.Count = len(t.lines)
	t.window = t.window.Reveal(t.cursor.Line)
}

// Render draws the visible lines and the selection.
func (t *TextView) Render(ctx runtime.RenderContext) {
	if t == nil || t.bounds.Empty() {
		return
	}
	bounds := t.bounds
	ctx.Buffer.Fill(bounds, ' ', t.style)
	start, end, selecting := t.Selection()
	first, last := t.window.Rows()
	for line := first; line < last; line++ {
		y := bounds.Y + line - first
		x := bounds.X
		maxX := bounds.X + bounds.Width
		for col, r := range []rune(t.lines[line]) {
			w := runewidth.RuneWidth(r)
			if x+w > maxX {
				break
			}
			style := t.style
			pos := Pos{Line: line, Col: col}
			if selecting && !pos.Before(start) && pos.Before(end) {
				style = t.selStyle
			}
			x += ctx.Buffer.SetString(x, y, string(r), style)
		}
	}
}

// CursorPosition maps the cursor to screen coordinates.
func (t *TextView) CursorPosition() (int, int, bool) {
	if t == nil || t.hideCursor || !t.window.Visible(t.cursor.Line) {
		return 0, 0, false
	}
	runes := []rune(t.lines[t.cursor.Line])
	prefix := string(runes[:min(t.cursor.Col, len(runes))])
	x := t.bounds.X + runewidth.StringWidth(prefix)
	if x >= t.bounds.X+t.bounds.Width {
		return 0, 0, false
	}
	return x, t.bounds.Y + t.cursor.Line - t.window.Offset, true
}

// HandleMessage implements normal-mode motions (h j k l, arrows, 0 $ w b G,
// PageUp/PageDown), v to toggle visual mode and Esc to leave it.
func (t *TextView) HandleMessage(msg runtime.Message) runtime.HandleResult {
	if t == nil || !t.focused {
		return runtime.Unhandled()
	}
	key, ok := msg.(runtime.KeyMsg)
	if !ok || key.Ctrl || key.Alt {
		return runtime.Unhandled()
	}
	c := t.cursor
	switch key.Key {
	case terminal.KeyLeft:
		t.SetCursor(c.Line, c.Col-1)
	case terminal.KeyRight:
		t.SetCursor(c.Line, c.Col+1)
	case terminal.KeyUp:
		t.SetCursor(c.Line-1, c.Col)
	case terminal.KeyDown:
		t.SetCursor(c.Line+1, c.Col)
	case terminal.KeyHome:
		t.SetCursor(c.Line, 0)
	case terminal.KeyEnd:
		t.SetCursor(c.Line, len([]rune(t.lines[c.Line])))
	case terminal.KeyPageUp:
		t.SetCursor(c.Line-max(t.bounds.Height, 1), c.Col)
	case terminal.KeyPageDown:
		t.SetCursor(c.Line+max(t.bounds.Height, 1), c.Col)
	case terminal.KeyEscape:
		if !t.visual {
			return runtime.Unhandled()
		}
		t.visual = false
	case terminal.KeyRune:
		return t.handleRune(key.Rune)
	default:
		return runtime.Unhandled()
	}
	return runtime.Handled()
}

func (t *TextView) handleRune(r rune) runtime.HandleResult {
	c := t.cursor
	switch r {
	case 'h':
		t.SetCursor(c.Line, c.Col-1)
	case 'l':
		t.SetCursor(c.Line, c.Col+1)
	case 'k':
		t.SetCursor(c.Line-1, c.Col)
	case 'j':
		t.SetCursor(c.Line+1, c.Col)
	case '0':
		t.SetCursor(c.Line, 0)
	case '$':
		t.SetCursor(c.Line, len([]rune(t.lines[c.Line])))
	case 'G':
		t.SetCursor(len(t.lines)-1, c.Col)
	case 'w':
		t.SetCursor(c.Line, t.nextWord(c, 1))
	case 'b':
		t.SetCursor(c.Line, t.nextWord(c, -1))
	case 'v':
		t.visual = !t.visual
		t.anchor = c
	default:
		return runtime.Unhandled()
	}
	return runtime.Handled()
}

// nextWord returns the column of the next (dir 1) or previous (dir -1) word
// start on the cursor line.
func (t *TextView) nextWord(c Pos, dir int) int {
	runes := []rune(t.lines[c.Line])
	col := c.Col
	if dir > 0 {
		for col < len(runes) && isWordRune(runes[col]) {
			col++
		}
		for col < len(runes) && !isWordRune(runes[col]) {
			col++
		}
		return col
	}
	col--
	for col > 0 && !isWordRune(runes[col]) {
		col--
	}
	for col > 0 && isWordRune(runes[col-1]) {
		col--
	}
	return max(col, 0)
}
