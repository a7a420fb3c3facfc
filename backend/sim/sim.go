// Package sim provides an in-memory backend for tests and scripted drivers.
package sim

import (
	"strings"
	"sync"

	"github.com/odvcencio/furry-actions/backend"
	"github.com/odvcencio/furry-actions/terminal"
)

// Backend records cells in memory and replays injected events.
type Backend struct {
	mu        sync.Mutex
	width     int
	height    int
	cells     []backend.Cell
	events    chan terminal.Event
	done      chan struct{}
	closeOnce sync.Once
	cursorX   int
	cursorY   int
	cursorOn  bool
	shows     int
}

// New creates a simulated terminal of the given size.
func New(width, height int) *Backend {
	b := &Backend{
		width:  width,
		height: height,
		events: make(chan terminal.Event, 256),
		done:   make(chan struct{}),
	}
	b.cells = make([]backend.Cell, width*height)
	b.clear()
	return b
}

func (b *Backend) clear() {
	for i := range b.cells {
		b.cells[i] = backend.Cell{Rune: ' ', Style: backend.DefaultStyle()}
	}
}

// Init is a no-op.
func (b *Backend) Init() error { return nil }

// Fini unblocks PollEvent.
func (b *Backend) Fini() {
	b.closeOnce.Do(func() { close(b.done) })
}

// Size returns the simulated size.
func (b *Backend) Size() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.width, b.height
}

// SetContent stores one cell.
func (b *Backend) SetContent(x, y int, mainc rune, combc []rune, style backend.Style) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return
	}
	b.cells[y*b.width+x] = backend.Cell{Rune: mainc, Style: style}
}

// Show counts flushes.
func (b *Backend) Show() {
	b.mu.Lock()
	b.shows++
	b.mu.Unlock()
}

// Shows returns how many times Show was called.
func (b *Backend) Shows() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.shows
}

// HideCursor hides the cursor.
func (b *Backend) HideCursor() {
	b.mu.Lock()
	b.cursorOn = false
	b.mu.Unlock()
}

// ShowCursor shows the cursor at x, y.
func (b *Backend) ShowCursor(x, y int) {
	b.mu.Lock()
	b.cursorX, b.cursorY, b.cursorOn = x, y, true
	b.mu.Unlock()
}

// Cursor reports the cursor position and visibility.
func (b *Backend) Cursor() (x, y int, visible bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cursorX, b.cursorY, b.cursorOn
}

// PollEvent returns the next injected event, or nil after Fini.
func (b *Backend) PollEvent() terminal.Event {
	select {
	case ev := <-b.events:
		return ev
	case <-b.done:
		return nil
	}
}

// InjectEvent queues an event for PollEvent.
func (b *Backend) InjectEvent(ev terminal.Event) {
	select {
	case b.events <- ev:
	case <-b.done:
	}
}

// InjectKey queues a key press.
func (b *Backend) InjectKey(key terminal.Key, r rune) {
	b.InjectEvent(terminal.KeyEvent{Key: key, Rune: r})
}

// Resize changes the simulated size and queues a resize event.
func (b *Backend) Resize(width, height int) {
	b.mu.Lock()
	b.width, b.height = width, height
	b.cells = make([]backend.Cell, width*height)
	b.clear()
	b.mu.Unlock()
	b.InjectEvent(terminal.ResizeEvent{Width: width, Height: height})
}

// CellAt returns the cell at x, y.
func (b *Backend) CellAt(x, y int) backend.Cell {
	b.mu.Lock()
	defer b.mu.Unlock()
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return backend.Cell{Rune: ' '}
	}
	return b.cells[y*b.width+x]
}

// Line returns row y as text with trailing spaces removed.
func (b *Backend) Line(y int) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lineLocked(y)
}

func (b *Backend) lineLocked(y int) string {
	if y < 0 || y >= b.height {
		return ""
	}
	var sb strings.Builder
	for x := 0; x < b.width; x++ {
		r := b.cells[y*b.width+x].Rune
		if r == 0 {
			continue
		}
		sb.WriteRune(r)
	}
	return strings.TrimRight(sb.String(), " ")
}

// Capture returns the whole screen as text.
func (b *Backend) Capture() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	lines := make([]string, b.height)
	for y := range lines {
		lines[y] = b.lineLocked(y)
	}
	return strings.Join(lines, "\n")
}

// ContainsText reports whether text appears on any row.
func (b *Backend) ContainsText(text string) bool {
	x, _ := b.FindText(text)
	return x >= 0
}

// FindText returns the position of text, or (-1, -1).
func (b *Backend) FindText(text string) (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for y := 0; y < b.height; y++ {
		line := b.lineLocked(y)
		if i := strings.Index(line, text); i >= 0 {
			return len([]rune(line[:i])), y
		}
	}
	return -1, -1
}

var _ backend.Backend = (*Backend)(nil)
