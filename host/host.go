// Package host defines the editor primitives the code action menu is built
// on. Implementations live elsewhere; see tuihost for a terminal one.
//
// Host methods that run user callbacks (key bindings, events, commands
// registered by the menu) must deliver them asynchronously. A callback may
// call back into the host, and the caller holding a lock while it calls a
// host method must not see the callback run inline.
package host

import (
	"context"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Document identifies the buffer under the cursor.
type Document struct {
	URI        protocol.DocumentUri
	LanguageID string
	Version    int
}

// Geometry describes where the cursor sits on screen, in rows.
type Geometry struct {
	// ScreenHeight is the number of rows available to floating windows.
	ScreenHeight int
	// WindowRow is the screen row of the current window's first line.
	WindowRow int
	// CursorLine is the cursor's row inside the window.
	CursorLine int
}

// Editor exposes the current window and buffer.
type Editor interface {
	// Document reports the current document. ok is false when the current
	// buffer is not a document (e.g. a scratch or floating buffer).
	Document(ctx context.Context) (doc Document, ok bool, err error)
	Cursor(ctx context.Context) (protocol.Position, error)
	SetCursor(ctx context.Context, pos protocol.Position) error
	// Selection returns the last selection of the given mode ("v", "V",
	// "char", "line"). ok is false when there is none.
	Selection(ctx context.Context, mode string) (rng protocol.Range, ok bool, err error)
	// WordRange returns the word under the cursor.
	WordRange(ctx context.Context) (rng protocol.Range, ok bool, err error)
	Geometry(ctx context.Context) (Geometry, error)
	Option(ctx context.Context, name string) (string, error)
	SetOption(ctx context.Context, name, value string) error
}

// Anchor is the side of the cursor a surface opens on.
type Anchor int

const (
	AnchorBelow Anchor = iota
	AnchorAbove
)

func (a Anchor) String() string {
	if a == AnchorAbove {
		return "above"
	}
	return "below"
}

// WindowOptions are the visual options of a surface window.
type WindowOptions struct {
	Number     bool
	Wrap       bool
	FoldColumn bool
	SignColumn bool
	// CursorLine turns on the window's own cursor line highlight.
	CursorLine bool
	// NormalGroup and CursorLineGroup name the highlight groups used for
	// the body and the cursor line.
	NormalGroup     string
	CursorLineGroup string
}

// Placement positions a surface relative to the cursor.
type Placement struct {
	Anchor  Anchor
	Width   int
	Height  int
	Options WindowOptions
}

// Surface is a transient, non-editable floating buffer and window.
type Surface interface {
	// SetLines replaces the whole content.
	SetLines(ctx context.Context, lines []string) error
	// Clear empties the content but keeps the surface for reuse.
	Clear(ctx context.Context) error
	Show(ctx context.Context, p Placement) error
	Hide(ctx context.Context) error
	Visible() bool
	// CursorLine is the 0-based line of the surface cursor.
	CursorLine(ctx context.Context) (int, error)
	// MoveCursor moves the surface cursor by delta lines. Movement is
	// clamped at the first and last line.
	MoveCursor(ctx context.Context, delta int) error
	SetHighlight(ctx context.Context, ns string, line int, group string) error
	ClearHighlight(ctx context.Context, ns string) error
	// Release destroys the surface. It must not be used afterwards.
	Release(ctx context.Context) error
}

// Windows creates surfaces.
type Windows interface {
	NewSurface(ctx context.Context) (Surface, error)
}

// Disposable undoes a registration.
type Disposable interface {
	Dispose()
}

// DisposeFunc adapts a function into a Disposable.
type DisposeFunc func()

// Dispose calls f.
func (f DisposeFunc) Dispose() {
	if f != nil {
		f()
	}
}

// Event names a host event scoped to a surface.
type Event string

const (
	// EventBufLeave fires when focus leaves the surface buffer.
	EventBufLeave Event = "BufLeave"
	// EventWinLeave fires when the host switches window context.
	EventWinLeave Event = "WinLeave"
	// EventCursorMoved fires after the surface cursor moved.
	EventCursorMoved Event = "CursorMoved"
)

// Bindings registers surface-local keys and events.
type Bindings interface {
	BindKey(ctx context.Context, s Surface, notation string, fn func()) (Disposable, error)
	OnEvent(ctx context.Context, s Surface, ev Event, fn func()) (Disposable, error)
}

// Config is the host key/value configuration store.
type Config interface {
	Get(key string) (any, bool)
}

// Diagnostics looks up diagnostics overlapping a range.
type Diagnostics interface {
	InRange(ctx context.Context, uri protocol.DocumentUri, rng protocol.Range) []protocol.Diagnostic
}

// CommandFunc implements a local command.
type CommandFunc func(ctx context.Context, args ...any) (any, error)

// Commands is the in-process command registry.
type Commands interface {
	Has(id string) bool
	Execute(ctx context.Context, id string, args ...any) (any, error)
	Register(id string, fn CommandFunc) (Disposable, error)
}

// Client is a connection to a language service.
type Client interface {
	Running() bool
	// Call sends a request and decodes the response into result, which may
	// be nil.
	Call(ctx context.Context, method string, params any, result any) error
}

// Services resolves a provider id to its remote connection.
type Services interface {
	Service(providerID string) (Client, bool)
}

// Workspace applies document edits.
type Workspace interface {
	ApplyEdit(ctx context.Context, edit protocol.WorkspaceEdit) error
}

// Level is a message severity.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Messenger shows one-line messages to the user.
type Messenger interface {
	ShowMessage(level Level, text string)
}

// Scheduler runs fn once the host has redrawn the screen after every
// change made before the call.
type Scheduler interface {
	AfterRedraw(fn func())
}

// Info describes the host.
type Info struct {
	// Variant names the host flavour; the menu only supports "terminal".
	Variant string
	Version string
}

// Host bundles every primitive. Scheduler may be nil.
type Host struct {
	Editor      Editor
	Windows     Windows
	Bindings    Bindings
	Config      Config
	Diagnostics Diagnostics
	Commands    Commands
	Services    Services
	Workspace   Workspace
	Messenger   Messenger
	Scheduler   Scheduler
	Info        Info
}
