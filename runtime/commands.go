package runtime

import "context"

// Command is an intent emitted by widgets and handled by the app.
type Command interface {
	Command()
}

// PostFunc sends a message into the app. It returns false when the queue is
// full.
type PostFunc func(Message) bool

// Quit stops the app loop.
type Quit struct{}

func (Quit) Command() {}

// Refresh forces a full redraw.
type Refresh struct{}

func (Refresh) Command() {}

// SendMsg posts a message back into the loop.
type SendMsg struct {
	Message Message
}

func (SendMsg) Command() {}

// Send wraps msg in a SendMsg.
func Send(msg Message) Command {
	return SendMsg{Message: msg}
}

// Effect runs work off the loop goroutine.
type Effect struct {
	Run func(ctx context.Context, post PostFunc)
}

func (Effect) Command() {}
