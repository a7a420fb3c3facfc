// Package scroll tracks which lines of a vertical list are in view.
package scroll

// Controller is implemented by views that scroll vertically.
type Controller interface {
	ScrollBy(dy int)
	ScrollTo(offset int)
	ScrollToStart()
	ScrollToEnd()
}

// Window is a viewport Height rows tall over Count lines, starting at Offset.
type Window struct {
	Offset int
	Height int
	Count  int
}

// MaxOffset returns the largest offset that still fills the viewport.
func (w Window) MaxOffset() int {
	if w.Height <= 0 {
		return max(w.Count-1, 0)
	}
	return max(w.Count-w.Height, 0)
}

// Clamp returns w with Offset pulled into [0, MaxOffset].
func (w Window) Clamp() Window {
	w.Offset = min(max(w.Offset, 0), w.MaxOffset())
	return w
}

// Visible reports whether line is inside the viewport.
func (w Window) Visible(line int) bool {
	return line >= w.Offset && line < w.Offset+w.Height && line < w.Count
}

// Reveal returns w scrolled the minimum amount needed to show line.
func (w Window) Reveal(line int) Window {
	if w.Count <= 0 {
		w.Offset = 0
		return w
	}
	line = min(max(line, 0), w.Count-1)
	switch {
	case line < w.Offset:
		w.Offset = line
	case w.Height > 0 && line >= w.Offset+w.Height:
		w.Offset = line - w.Height + 1
	}
	return w.Clamp()
}

// By returns w scrolled by dy rows.
func (w Window) By(dy int) Window {
	w.Offset += dy
	return w.Clamp()
}

// Rows returns the half-open range of line indexes in view.
func (w Window) Rows() (first, last int) {
	w = w.Clamp()
	first = w.Offset
	last = min(w.Offset+max(w.Height, 0), w.Count)
	return first, max(last, first)
}
