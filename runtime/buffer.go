package runtime

// Rendering:
//
// Widgets draw into a Buffer through RenderContext. The Buffer remembers
// which rows changed since the last flush, and App.render copies only those
// rows to the backend.

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/odvcencio/furry-actions/backend"
)

// Cell represents a single character cell in the buffer.
type Cell = backend.Cell

// Buffer is a 2D grid of cells with per-row dirty tracking.
// A wide rune occupies its cell plus a continuation cell with Rune 0.
type Buffer struct {
	cells     []Cell
	width     int
	height    int
	dirtyRows []bool
	dirtyAll  bool
}

// NewBuffer creates a buffer filled with blanks.
func NewBuffer(w, h int) *Buffer {
	b := &Buffer{}
	b.alloc(w, h)
	return b
}

func (b *Buffer) alloc(w, h int) {
	w = max(w, 0)
	h = max(h, 0)
	b.width, b.height = w, h
	b.cells = make([]Cell, w*h)
	for i := range b.cells {
		b.cells[i] = Cell{Rune: ' ', Style: backend.DefaultStyle()}
	}
	b.dirtyRows = make([]bool, h)
	b.dirtyAll = true
}

// Size returns the buffer dimensions.
func (b *Buffer) Size() (w, h int) {
	return b.width, b.height
}

// Resize reallocates the grid. Content is discarded and everything is dirty.
func (b *Buffer) Resize(w, h int) {
	if w == b.width && h == b.height {
		return
	}
	b.alloc(w, h)
}

// Get returns the cell at (x, y), or a blank outside the grid.
func (b *Buffer) Get(x, y int) Cell {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return Cell{Rune: ' '}
	}
	return b.cells[y*b.width+x]
}

// Set writes one rune. Out of range writes are dropped.
func (b *Buffer) Set(x, y int, r rune, s backend.Style) {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return
	}
	idx := y*b.width + x
	cell := Cell{Rune: r, Style: s}
	if b.cells[idx] != cell {
		b.cells[idx] = cell
		b.dirtyRows[y] = true
	}
}

// SetString writes s starting at (x, y) and returns the number of columns
// consumed. Wide runes take two columns; a wide rune that would straddle the
// right edge is replaced by a blank.
func (b *Buffer) SetString(x, y int, s string, style backend.Style) int {
	if y < 0 || y >= b.height {
		return 0
	}
	col := x
	for _, r := range s {
		if col >= b.width {
			break
		}
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if w == 2 && col+1 >= b.width {
			b.Set(col, y, ' ', style)
			col++
			break
		}
		b.Set(col, y, r, style)
		if w == 2 {
			b.Set(col+1, y, 0, style)
		}
		col += w
	}
	return col - x
}

// Fill paints r with ch.
func (b *Buffer) Fill(r Rect, ch rune, s backend.Style) {
	clip := r.Intersection(Rect{Width: b.width, Height: b.height})
	for y := clip.Y; y < clip.Y+clip.Height; y++ {
		for x := clip.X; x < clip.X+clip.Width; x++ {
			b.Set(x, y, ch, s)
		}
	}
}

// Clear blanks the whole buffer.
func (b *Buffer) Clear() {
	b.Fill(Rect{Width: b.width, Height: b.height}, ' ', backend.DefaultStyle())
}

// ClearRect blanks a region.
func (b *Buffer) ClearRect(r Rect) {
	b.Fill(r, ' ', backend.DefaultStyle())
}

// Row returns row y as text, without wide-rune continuation cells.
func (b *Buffer) Row(y int) string {
	if y < 0 || y >= b.height {
		return ""
	}
	var sb strings.Builder
	for _, cell := range b.cells[y*b.width : (y+1)*b.width] {
		if cell.Rune != 0 {
			sb.WriteRune(cell.Rune)
		}
	}
	return sb.String()
}

// RowCells returns the cells of row y. The slice aliases the buffer.
func (b *Buffer) RowCells(y int) []Cell {
	if y < 0 || y >= b.height {
		return nil
	}
	return b.cells[y*b.width : (y+1)*b.width]
}

// IsDirty reports whether anything changed since ClearDirty.
func (b *Buffer) IsDirty() bool {
	if b.dirtyAll {
		return true
	}
	for _, d := range b.dirtyRows {
		if d {
			return true
		}
	}
	return false
}

// IsRowDirty reports whether row y changed.
func (b *Buffer) IsRowDirty(y int) bool {
	if y < 0 || y >= b.height {
		return false
	}
	return b.dirtyAll || b.dirtyRows[y]
}

// MarkAllDirty forces a full flush.
func (b *Buffer) MarkAllDirty() {
	b.dirtyAll = true
}

// ClearDirty resets dirty tracking after a flush.
func (b *Buffer) ClearDirty() {
	b.dirtyAll = false
	clear(b.dirtyRows)
}

// ForEachDirtyRow calls fn for every changed row.
func (b *Buffer) ForEachDirtyRow(fn func(y int, cells []Cell)) {
	for y := 0; y < b.height; y++ {
		if b.dirtyAll || b.dirtyRows[y] {
			fn(y, b.RowCells(y))
		}
	}
}
