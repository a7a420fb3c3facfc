package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/odvcencio/furry-actions/backend"
	"github.com/odvcencio/furry-actions/terminal"
)

// UpdateFunc handles a message and returns true if a render is needed.
type UpdateFunc func(app *App, msg Message) bool

// CommandHandler handles commands the runtime does not know about.
// Return true if the command requires a render.
type CommandHandler func(cmd Command) bool

// KeyHandler sees key presses before the layer stack does.
// Return true to consume the key.
type KeyHandler func(app *App, msg KeyMsg) bool

// AppConfig configures an App.
type AppConfig struct {
	Backend        backend.Backend
	Root           Widget
	Update         UpdateFunc
	CommandHandler CommandHandler
	KeyHandler     KeyHandler
	MessageBuffer  int
	// Width and Height size the screen before Run queries the backend.
	Width, Height int
}

// App runs a layer stack against a backend.
//
// The loop holds the UI lock while it updates and renders. Code on other
// goroutines mutates widgets through Do, which takes the same lock.
type App struct {
	backend        backend.Backend
	screen         *Screen
	update         UpdateFunc
	commandHandler CommandHandler
	keyHandler     KeyHandler
	messages       chan Message
	invalidator    *Invalidator

	taskCtx        context.Context
	taskCancel     context.CancelFunc
	pendingMu      sync.Mutex
	pendingEffects []Effect

	uiMu        sync.Mutex
	hooksMu     sync.Mutex
	afterRender []func()
	stopped     bool

	running atomic.Bool
	dirty   bool
	renders atomic.Int64
}

// NewApp creates an App from cfg.
func NewApp(cfg AppConfig) *App {
	bufferSize := cfg.MessageBuffer
	if bufferSize <= 0 {
		bufferSize = 128
	}
	w, h := cfg.Width, cfg.Height
	if w <= 0 || h <= 0 {
		w, h = 80, 24
	}
	app := &App{
		backend:        cfg.Backend,
		screen:         NewScreen(w, h),
		update:         cfg.Update,
		commandHandler: cfg.CommandHandler,
		keyHandler:     cfg.KeyHandler,
		messages:       make(chan Message, bufferSize),
	}
	if cfg.Root != nil {
		app.screen.SetRoot(cfg.Root)
	}
	app.invalidator = NewInvalidator(app.tryPost)
	return app
}

// Screen returns the screen. Mutate it only on the loop or inside Do.
func (a *App) Screen() *Screen {
	return a.screen
}

// Do runs fn with the UI lock held and requests a render.
// It must not be called from the loop goroutine.
func (a *App) Do(fn func()) {
	if a == nil || fn == nil {
		return
	}
	a.uiMu.Lock()
	fn()
	a.uiMu.Unlock()
	a.Invalidate()
}

// Inspect runs fn with the UI lock held without requesting a render.
// Like Do, it must not be called from the loop goroutine.
func (a *App) Inspect(fn func()) {
	if a == nil || fn == nil {
		return
	}
	a.uiMu.Lock()
	defer a.uiMu.Unlock()
	fn()
}

// Invalidate requests a render pass.
func (a *App) Invalidate() {
	if a == nil {
		return
	}
	a.invalidator.Invalidate()
}

// AfterRender queues fn to run on its own goroutine once a render started
// after the call has been flushed to the backend. It is the completion
// signal for screen changes made before the call. Hooks still queued when
// Run returns run then; after Run has returned fn runs immediately.
func (a *App) AfterRender(fn func()) {
	if a == nil || fn == nil {
		return
	}
	a.hooksMu.Lock()
	if a.stopped {
		a.hooksMu.Unlock()
		go fn()
		return
	}
	a.afterRender = append(a.afterRender, fn)
	a.hooksMu.Unlock()
	a.Invalidate()
}

// Renders returns the number of completed render passes.
func (a *App) Renders() int64 {
	if a == nil {
		return 0
	}
	return a.renders.Load()
}

// Running reports whether the loop is active.
func (a *App) Running() bool {
	return a != nil && a.running.Load()
}

// Spawn starts an effect on the app task context. Effects spawned before
// Run are held until the loop starts.
func (a *App) Spawn(effect Effect) {
	if a == nil || effect.Run == nil {
		return
	}
	a.pendingMu.Lock()
	if a.taskCtx == nil {
		a.pendingEffects = append(a.pendingEffects, effect)
		a.pendingMu.Unlock()
		return
	}
	ctx := a.taskCtx
	a.pendingMu.Unlock()
	go effect.Run(ctx, a.tryPost)
}

// Post sends a message to the loop, dropping it when the queue is full.
func (a *App) Post(msg Message) {
	_ = a.tryPost(msg)
}

// TryPost sends a message and reports whether it was queued.
func (a *App) TryPost(msg Message) bool {
	return a.tryPost(msg)
}

func (a *App) tryPost(msg Message) bool {
	if a == nil || a.messages == nil || msg == nil {
		return false
	}
	select {
	case a.messages <- msg:
		return true
	default:
		return false
	}
}

// Run drives the loop until Quit or ctx is done.
func (a *App) Run(ctx context.Context) error {
	if a.backend == nil {
		return errors.New("backend is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := a.backend.Init(); err != nil {
		return fmt.Errorf("init backend: %w", err)
	}
	defer a.backend.Fini()

	taskCtx, taskCancel := context.WithCancel(ctx)
	defer taskCancel()
	a.hooksMu.Lock()
	a.stopped = false
	a.hooksMu.Unlock()
	defer a.stopHooks()
	a.pendingMu.Lock()
	a.taskCtx, a.taskCancel = taskCtx, taskCancel
	pending := a.pendingEffects
	a.pendingEffects = nil
	a.pendingMu.Unlock()

	if a.update == nil {
		a.update = DefaultUpdate
	}

	a.uiMu.Lock()
	w, h := a.backend.Size()
	a.screen.Resize(w, h)
	a.uiMu.Unlock()

	a.running.Store(true)
	defer a.running.Store(false)
	a.dirty = true
	for _, effect := range pending {
		go effect.Run(taskCtx, a.tryPost)
	}
	go a.pollEvents()
	a.Invalidate()

	for a.running.Load() {
		var msg Message
		select {
		case <-ctx.Done():
			a.running.Store(false)
			continue
		case msg = <-a.messages:
		}

		a.uiMu.Lock()
		if a.update(a, msg) {
			a.dirty = true
		}
		if _, ok := msg.(InvalidateMsg); ok {
			a.invalidator.reset()
		}
		var hooks []func()
		if a.dirty && a.running.Load() {
			hooks = a.takeHooks()
			a.render()
			a.dirty = false
		}
		a.uiMu.Unlock()

		for _, fn := range hooks {
			go fn()
		}
	}
	a.cancelTasks()
	return ctx.Err()
}

// DefaultUpdate routes input through the key handler and the layer stack.
func DefaultUpdate(app *App, msg Message) bool {
	if app == nil || app.screen == nil {
		return false
	}
	switch m := msg.(type) {
	case ResizeMsg:
		app.screen.Resize(m.Width, m.Height)
		return true
	case KeyMsg:
		if app.keyHandler != nil && app.keyHandler(app, m) {
			return true
		}
		return app.dispatchMessage(msg)
	case InvalidateMsg:
		return true
	case FuncMsg:
		if m.Fn != nil {
			m.Fn()
		}
		return true
	default:
		return app.dispatchMessage(msg)
	}
}

func (a *App) dispatchMessage(msg Message) bool {
	result := a.screen.HandleMessage(msg)
	dirty := result.Handled
	for _, cmd := range result.Commands {
		if a.handleCommand(cmd) {
			dirty = true
		}
	}
	return dirty
}

func (a *App) handleCommand(cmd Command) bool {
	switch c := cmd.(type) {
	case Quit:
		a.running.Store(false)
		a.cancelTasks()
		return false
	case Refresh:
		a.screen.Buffer().MarkAllDirty()
		return true
	case SendMsg:
		if c.Message != nil {
			a.Post(c.Message)
		}
		return false
	case Effect:
		a.Spawn(c)
		return false
	default:
		if a.commandHandler != nil {
			return a.commandHandler(cmd)
		}
		return false
	}
}

// ExecuteCommand runs cmd through the app handler. Call it on the loop or
// inside Do.
func (a *App) ExecuteCommand(cmd Command) bool {
	if a == nil {
		return false
	}
	return a.handleCommand(cmd)
}

func (a *App) pollEvents() {
	for a.running.Load() {
		ev := a.backend.PollEvent()
		if ev == nil {
			return
		}
		switch e := ev.(type) {
		case terminal.KeyEvent:
			a.Post(KeyMsg{KeyEvent: e})
		case terminal.ResizeEvent:
			a.Post(ResizeMsg{Width: e.Width, Height: e.Height})
		case terminal.PasteEvent:
			a.Post(PasteMsg{Text: e.Text})
		}
	}
}

func (a *App) render() {
	a.screen.Render()
	buf := a.screen.Buffer()
	if buf.IsDirty() {
		rowWriter, hasRowWriter := a.backend.(backend.RowWriter)
		buf.ForEachDirtyRow(func(y int, cells []Cell) {
			if hasRowWriter {
				rowWriter.SetRow(y, 0, cells)
				return
			}
			for x, cell := range cells {
				if cell.Rune == 0 {
					continue
				}
				a.backend.SetContent(x, y, cell.Rune, nil, cell.Style)
			}
		})
		buf.ClearDirty()
	}
	if x, y, ok := a.screen.Cursor(); ok {
		a.backend.ShowCursor(x, y)
	} else {
		a.backend.HideCursor()
	}
	a.backend.Show()
	a.renders.Add(1)
}

// takeHooks claims the hooks queued so far. The loop calls it with the UI
// lock held, before rendering, so every claimed hook sees its changes drawn.
func (a *App) takeHooks() []func() {
	a.hooksMu.Lock()
	defer a.hooksMu.Unlock()
	hooks := a.afterRender
	a.afterRender = nil
	return hooks
}

// stopHooks runs the hooks no render will flush and makes later ones run
// immediately.
func (a *App) stopHooks() {
	a.hooksMu.Lock()
	a.stopped = true
	hooks := a.afterRender
	a.afterRender = nil
	a.hooksMu.Unlock()
	for _, fn := range hooks {
		go fn()
	}
}

func (a *App) cancelTasks() {
	a.pendingMu.Lock()
	cancel := a.taskCancel
	a.pendingMu.Unlock()
	if cancel != nil {
		cancel()
	}
}
