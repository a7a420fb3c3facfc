package runtime

import "github.com/odvcencio/furry-actions/terminal"

// Message is an event flowing into the app loop.
type Message interface {
	isMessage()
}

// KeyMsg is a key press.
type KeyMsg struct {
	terminal.KeyEvent
}

func (KeyMsg) isMessage() {}

// ResizeMsg reports new terminal dimensions.
type ResizeMsg struct {
	Width  int
	Height int
}

func (ResizeMsg) isMessage() {}

// PasteMsg carries pasted text.
type PasteMsg struct {
	Text string
}

func (PasteMsg) isMessage() {}

// InvalidateMsg requests a render pass.
type InvalidateMsg struct{}

func (InvalidateMsg) isMessage() {}

// FuncMsg runs Fn on the loop with the UI lock held.
type FuncMsg struct {
	Fn func()
}

func (FuncMsg) isMessage() {}
