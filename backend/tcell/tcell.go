// Package tcell implements backend.Backend on top of gdamore/tcell.
package tcell

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/odvcencio/furry-actions/backend"
	"github.com/odvcencio/furry-actions/terminal"
)

// Backend drives a real terminal.
type Backend struct {
	screen tcell.Screen
}

// New allocates a tcell screen. Init must be called before drawing.
func New() (*Backend, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("new screen: %w", err)
	}
	return &Backend{screen: screen}, nil
}

// Init puts the terminal into raw mode.
func (b *Backend) Init() error {
	if err := b.screen.Init(); err != nil {
		return err
	}
	b.screen.EnablePaste()
	b.screen.Clear()
	return nil
}

// Fini restores the terminal.
func (b *Backend) Fini() {
	b.screen.Fini()
}

// Size returns the terminal size.
func (b *Backend) Size() (int, int) {
	return b.screen.Size()
}

// SetContent writes a single cell.
func (b *Backend) SetContent(x, y int, mainc rune, combc []rune, style backend.Style) {
	b.screen.SetContent(x, y, mainc, combc, convertStyle(style))
}

// SetRow writes a run of cells.
func (b *Backend) SetRow(y int, startX int, cells []backend.Cell) {
	for i, cell := range cells {
		b.screen.SetContent(startX+i, y, cell.Rune, nil, convertStyle(cell.Style))
	}
}

// Show flushes pending changes.
func (b *Backend) Show() {
	b.screen.Show()
}

// HideCursor hides the hardware cursor.
func (b *Backend) HideCursor() {
	b.screen.HideCursor()
}

// ShowCursor places the hardware cursor.
func (b *Backend) ShowCursor(x, y int) {
	b.screen.SetCursorStyle(tcell.CursorStyleSteadyBlock)
	b.screen.ShowCursor(x, y)
}

// PollEvent translates the next tcell event.
func (b *Backend) PollEvent() terminal.Event {
	for {
		ev := b.screen.PollEvent()
		if ev == nil {
			return nil
		}
		switch e := ev.(type) {
		case *tcell.EventKey:
			return convertKey(e)
		case *tcell.EventResize:
			w, h := e.Size()
			return terminal.ResizeEvent{Width: w, Height: h}
		}
	}
}

func convertStyle(style backend.Style) tcell.Style {
	fg, bg, attrs := style.Decompose()
	out := tcell.StyleDefault
	if fg.Valid() {
		r, g, b := fg.RGB()
		out = out.Foreground(tcell.NewRGBColor(int32(r), int32(g), int32(b)))
	}
	if bg.Valid() {
		r, g, b := bg.RGB()
		out = out.Background(tcell.NewRGBColor(int32(r), int32(g), int32(b)))
	}
	if attrs&backend.AttrBold != 0 {
		out = out.Bold(true)
	}
	if attrs&backend.AttrReverse != 0 {
		out = out.Reverse(true)
	}
	if attrs&backend.AttrUnderline != 0 {
		out = out.Underline(true)
	}
	if attrs&backend.AttrDim != 0 {
		out = out.Dim(true)
	}
	return out
}

var namedKeys = map[tcell.Key]terminal.Key{
	tcell.KeyEnter:      terminal.KeyEnter,
	tcell.KeyEscape:     terminal.KeyEscape,
	tcell.KeyTab:        terminal.KeyTab,
	tcell.KeyBacktab:    terminal.KeyBacktab,
	tcell.KeyBackspace:  terminal.KeyBackspace,
	tcell.KeyBackspace2: terminal.KeyBackspace,
	tcell.KeyDelete:     terminal.KeyDelete,
	tcell.KeyUp:         terminal.KeyUp,
	tcell.KeyDown:       terminal.KeyDown,
	tcell.KeyLeft:       terminal.KeyLeft,
	tcell.KeyRight:      terminal.KeyRight,
	tcell.KeyHome:       terminal.KeyHome,
	tcell.KeyEnd:        terminal.KeyEnd,
	tcell.KeyPgUp:       terminal.KeyPageUp,
	tcell.KeyPgDn:       terminal.KeyPageDown,
	tcell.KeyF1:         terminal.KeyF1,
	tcell.KeyF2:         terminal.KeyF2,
}

func convertKey(ev *tcell.EventKey) terminal.KeyEvent {
	mods := ev.Modifiers()
	out := terminal.KeyEvent{
		Alt:   mods&tcell.ModAlt != 0,
		Ctrl:  mods&tcell.ModCtrl != 0,
		Shift: mods&tcell.ModShift != 0,
	}
	key := ev.Key()
	if key == tcell.KeyRune {
		out.Key = terminal.KeyRune
		out.Rune = ev.Rune()
		return out
	}
	if mapped, ok := namedKeys[key]; ok {
		out.Key = mapped
		out.Ctrl = false
		return out
	}
	if key >= tcell.KeyCtrlA && key <= tcell.KeyCtrlZ {
		out.Key = terminal.KeyRune
		out.Rune = rune('a' + int(key-tcell.KeyCtrlA))
		out.Ctrl = true
		return out
	}
	out.Key = terminal.KeyNone
	return out
}

var (
	_ backend.Backend   = (*Backend)(nil)
	_ backend.RowWriter = (*Backend)(nil)
)
