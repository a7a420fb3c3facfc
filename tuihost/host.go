// Package tuihost is a terminal editor host: a read-only document view, a
// status line and floating popup surfaces, all running on one runtime.App.
//
// Surface key bindings and events are delivered one at a time, in the order
// the loop saw them, on a delivery goroutine. Keymap commands run as app
// effects. Neither runs on the app loop, and host methods must not be
// called from the loop goroutine.
package tuihost

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/odvcencio/furry-actions/backend"
	"github.com/odvcencio/furry-actions/config"
	"github.com/odvcencio/furry-actions/host"
	"github.com/odvcencio/furry-actions/runtime"
	"github.com/odvcencio/furry-actions/state"
	"github.com/odvcencio/furry-actions/terminal"
	"github.com/odvcencio/furry-actions/theme"
	"github.com/odvcencio/furry-actions/widgets"
)

const (
	// Variant is reported in host.Info.
	Variant = "terminal"
	// Version is reported in host.Info.
	Version = "0.5.0"

	// KeyQuit stops the app from anywhere.
	KeyQuit = "<C-q>"
	// KeyWindow switches focus from a popup back to the document.
	KeyWindow = "<C-w>"

	optionCursor = "guicursor"
	messageTTL   = 5 * time.Second
)

// Config configures a Host.
type Config struct {
	Backend backend.Backend
	Logger  *slog.Logger
	// Document and Text are the buffer shown in the view.
	Document host.Document
	Text     string
	// Settings is the key/value store handed to extensions.
	Settings host.Config
	Services host.Services
	// Keymap maps normal-mode keys to command ids.
	Keymap map[string]string
	// OnChange runs after an applied edit changed the document.
	OnChange func(doc host.Document, text string)
	// Width and Height size the screen until the backend reports its own.
	Width, Height int
}

// Host implements every host interface on a runtime.App.
type Host struct {
	app      *runtime.App
	logger   *slog.Logger
	view     *widgets.TextView
	status   *widgets.StatusLine
	message  *state.Signal[string]
	palette  theme.Palette
	settings host.Config
	services host.Services
	commands *Commands
	diags    *Diagnostics
	deliver  *state.Serial
	keymap   map[string]string
	onChange func(host.Document, string)

	mu        sync.Mutex
	doc       host.Document
	options   map[string]string
	selection *protocol.Range
	surfaces  []*surface
}

// New builds the host and its app. Call Run to start the loop.
func New(cfg Config) *Host {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &Host{
		logger:   logger,
		view:     widgets.NewTextView(cfg.Text),
		message:  state.NewComparableSignal(""),
		palette:  theme.Load(config.Load(cfg.Settings).Theme),
		settings: cfg.Settings,
		services: cfg.Services,
		commands: NewCommands(),
		deliver:  state.NewSerial(),
		keymap:   make(map[string]string, len(cfg.Keymap)),
		onChange: cfg.OnChange,
		doc:      cfg.Document,
		options:  map[string]string{optionCursor: "n-v-c:block"},
	}
	h.diags = NewDiagnostics(h.Invalidate)
	for key, id := range cfg.Keymap {
		h.keymap[terminal.NormalizeNotation(key)] = id
	}

	h.view.SetStyles(h.palette.Style(theme.GroupNormal), h.palette.Style(theme.GroupVisual))
	h.view.Focus()
	h.status = widgets.NewStatusLine(h.message, nil)
	h.status.SetStyle(h.palette.Style(theme.GroupStatusLine))
	h.status.SetRuler(h.ruler)
	h.status.Mount()

	root := widgets.NewColumn(
		widgets.ColumnChild{Widget: h.view},
		widgets.ColumnChild{Widget: h.status, Height: 1},
	)
	h.app = runtime.NewApp(runtime.AppConfig{
		Backend:    cfg.Backend,
		Root:       root,
		KeyHandler: h.handleKey,
		Width:      cfg.Width,
		Height:     cfg.Height,
	})
	return h
}

// App returns the runtime app driving the host.
func (h *Host) App() *runtime.App {
	return h.app
}

// Commands returns the command registry.
func (h *Host) Commands() *Commands {
	return h.commands
}

// Diagnostics returns the diagnostics store.
func (h *Host) Diagnostics() *Diagnostics {
	return h.diags
}

// Palette returns the highlight groups in use.
func (h *Host) Palette() theme.Palette {
	return h.palette
}

// Host bundles the primitives for an extension.
func (h *Host) Host() host.Host {
	return host.Host{
		Editor:      h,
		Windows:     h,
		Bindings:    h,
		Config:      h.settings,
		Diagnostics: h.diags,
		Commands:    h.commands,
		Services:    h.services,
		Workspace:   h,
		Messenger:   h,
		Scheduler:   h,
		Info:        host.Info{Variant: Variant, Version: Version},
	}
}

// Run drives the app until ctx is done or the user quits. Commands started
// from the keymap get a context canceled when the loop stops.
func (h *Host) Run(ctx context.Context) error {
	defer h.status.Unmount()
	return h.app.Run(ctx)
}

// Invalidate requests a redraw.
func (h *Host) Invalidate() {
	h.app.Invalidate()
}

// ShowMessage puts text on the status line until a newer message replaces
// it or messageTTL passes.
func (h *Host) ShowMessage(level host.Level, text string) {
	switch level {
	case host.LevelError:
		h.logger.Error("message", "text", text)
		text = "E: " + text
	case host.LevelWarning:
		h.logger.Warn("message", "text", text)
		text = "W: " + text
	default:
		h.logger.Info("message", "text", text)
	}
	h.message.Set(text)
	h.app.Invalidate()
	h.app.Spawn(runtime.After(messageTTL, runtime.FuncMsg{Fn: func() {
		if h.message.Get() == text {
			h.message.Set("")
		}
	}}))
}

// Message returns the status line text.
func (h *Host) Message() string {
	return h.message.Get()
}

// AfterRedraw runs fn once the next frame has been flushed.
func (h *Host) AfterRedraw(fn func()) {
	h.app.AfterRender(fn)
}

// handleKey runs on the loop with the UI lock held.
func (h *Host) handleKey(app *runtime.App, msg runtime.KeyMsg) bool {
	key := msg.Notation()
	if key == KeyQuit {
		app.ExecuteCommand(runtime.Quit{})
		return true
	}
	if s := h.focused(); s != nil {
		if key == KeyWindow {
			s.fire(host.EventWinLeave)
			s.fire(host.EventBufLeave)
			return true
		}
		return false
	}
	id, ok := h.keymap[key]
	if !ok {
		return false
	}
	var args []any
	if start, end, ok := h.view.Selection(); ok {
		rng := h.rangeOf(start, end)
		h.mu.Lock()
		h.selection = &rng
		h.mu.Unlock()
		h.view.ClearSelection()
		args = append(args, "v")
	}
	app.ExecuteCommand(runtime.Go(func(ctx context.Context) {
		h.run(ctx, id, args...)
	}))
	return true
}

func (h *Host) run(ctx context.Context, id string, args ...any) {
	if _, err := h.commands.Execute(ctx, id, args...); err != nil {
		h.ShowMessage(host.LevelError, err.Error())
	}
}

// focused returns the topmost visible surface.
func (h *Host) focused() *surface {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := len(h.surfaces) - 1; i >= 0; i-- {
		if h.surfaces[i].visible.Load() {
			return h.surfaces[i]
		}
	}
	return nil
}

func (h *Host) ruler() string {
	c := h.view.Cursor()
	h.mu.Lock()
	uri := h.doc.URI
	h.mu.Unlock()
	out := fmt.Sprintf("%d:%d", c.Line+1, c.Col+1)
	if n := h.diags.Count(uri); n > 0 {
		out = fmt.Sprintf("%d diag  %s", n, out)
	}
	return out
}

var (
	_ host.Editor    = (*Host)(nil)
	_ host.Windows   = (*Host)(nil)
	_ host.Bindings  = (*Host)(nil)
	_ host.Workspace = (*Host)(nil)
	_ host.Messenger = (*Host)(nil)
	_ host.Scheduler = (*Host)(nil)
)
