package runtime

// Widget is a node in a layer's tree.
type Widget interface {
	Layout(bounds Rect)
	Render(ctx RenderContext)
	HandleMessage(msg Message) HandleResult
}

// ChildProvider exposes child widgets.
type ChildProvider interface {
	ChildWidgets() []Widget
}

// CursorProvider is implemented by widgets that own the hardware cursor.
// ok is false when the cursor should be hidden.
type CursorProvider interface {
	CursorPosition() (x, y int, ok bool)
}

// RenderContext carries the target buffer for a render pass.
type RenderContext struct {
	Buffer *Buffer
	Bounds Rect
}

// Sub narrows the context to bounds.
func (c RenderContext) Sub(bounds Rect) RenderContext {
	return RenderContext{Buffer: c.Buffer, Bounds: c.Bounds.Intersection(bounds)}
}

// HandleResult reports whether a message was consumed and any commands it
// produced.
type HandleResult struct {
	Handled  bool
	Commands []Command
}

// Handled consumes a message.
func Handled() HandleResult {
	return HandleResult{Handled: true}
}

// Unhandled passes a message on.
func Unhandled() HandleResult {
	return HandleResult{}
}

// WithCommand consumes a message and emits cmd.
func WithCommand(cmd Command) HandleResult {
	return HandleResult{Handled: true, Commands: []Command{cmd}}
}
