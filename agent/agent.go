// Package agent drives an App running on the simulation backend. Tests and
// scripted sessions press keys in editor notation and wait for the screen
// to show what they expect.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/odvcencio/furry-actions/backend/sim"
	"github.com/odvcencio/furry-actions/runtime"
	"github.com/odvcencio/furry-actions/terminal"
)

// Common errors returned by Agent methods.
var (
	ErrTimeout    = errors.New("operation timed out")
	ErrNoApp      = errors.New("no app configured")
	ErrUnknownKey = errors.New("unknown key notation")
	ErrRunning    = errors.New("app already started")
)

// Agent runs an App and interacts with it through the simulated terminal.
type Agent struct {
	app      *runtime.App
	sim      *sim.Backend
	tickRate time.Duration
	timeout  time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan error
}

// Config configures an Agent.
type Config struct {
	// App is the application to control. Its backend must be Sim.
	App *runtime.App
	// Sim is the simulation backend. If nil, one is created with Width and
	// Height (default 80x24).
	Sim           *sim.Backend
	Width, Height int
	// TickRate is how often Wait* methods poll the screen. Default 10ms.
	TickRate time.Duration
	// Timeout bounds every Wait* call. Default 2s.
	Timeout time.Duration
}

// New creates an agent.
func New(cfg Config) *Agent {
	s := cfg.Sim
	if s == nil {
		width, height := cfg.Width, cfg.Height
		if width <= 0 {
			width = 80
		}
		if height <= 0 {
			height = 24
		}
		s = sim.New(width, height)
	}
	tickRate := cfg.TickRate
	if tickRate <= 0 {
		tickRate = 10 * time.Millisecond
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Agent{app: cfg.App, sim: s, tickRate: tickRate, timeout: timeout}
}

// Backend returns the simulation backend.
func (a *Agent) Backend() *sim.Backend {
	if a == nil {
		return nil
	}
	return a.sim
}

// Start runs run (usually the app's Run method) on its own goroutine and
// waits for the first frame.
func (a *Agent) Start(ctx context.Context, run func(context.Context) error) error {
	if a == nil || a.app == nil {
		return ErrNoApp
	}
	a.mu.Lock()
	if a.done != nil {
		a.mu.Unlock()
		return ErrRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	a.cancel, a.done = cancel, done
	a.mu.Unlock()

	if run == nil {
		run = a.app.Run
	}
	go func() { done <- run(ctx) }()
	return a.WaitUntil(func() bool { return a.app.Renders() > 0 })
}

// Stop cancels the app and waits for it to return. A canceled context is
// not reported as an error.
func (a *Agent) Stop() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.mu.Unlock()
	if done == nil {
		return nil
	}
	cancel()
	select {
	case err := <-done:
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	case <-time.After(a.timeout):
		return ErrTimeout
	}
}

// Press injects keys in editor notation, e.g. "j", "<CR>", "<C-n>".
func (a *Agent) Press(keys ...string) error {
	if a == nil || a.sim == nil {
		return ErrNoApp
	}
	for _, key := range keys {
		ev, ok := terminal.ParseNotation(key)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownKey, key)
		}
		a.sim.InjectEvent(ev)
	}
	return nil
}

// Type injects text one rune at a time.
func (a *Agent) Type(text string) {
	if a == nil || a.sim == nil {
		return
	}
	for _, r := range text {
		a.sim.InjectKey(terminal.KeyRune, r)
	}
}

// Tick sleeps for one poll interval.
func (a *Agent) Tick() {
	if a == nil {
		return
	}
	time.Sleep(a.tickRate)
}

// WaitUntil polls cond until it holds or the timeout passes.
func (a *Agent) WaitUntil(cond func() bool) error {
	if a == nil {
		return ErrNoApp
	}
	deadline := time.Now().Add(a.timeout)
	for {
		if cond() {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrTimeout
		}
		a.Tick()
	}
}

// WaitFor waits until text appears on screen.
func (a *Agent) WaitFor(text string) error {
	if err := a.WaitUntil(func() bool { return a.ContainsText(text) }); err != nil {
		return fmt.Errorf("waiting for %q: %w\n%s", text, err, a.CaptureText())
	}
	return nil
}

// WaitGone waits until text is no longer on screen.
func (a *Agent) WaitGone(text string) error {
	if err := a.WaitUntil(func() bool { return !a.ContainsText(text) }); err != nil {
		return fmt.Errorf("waiting for %q to go: %w\n%s", text, err, a.CaptureText())
	}
	return nil
}

// Snapshot captures the screen and the widget tree.
func (a *Agent) Snapshot() Snapshot {
	if a == nil {
		return Snapshot{}
	}
	snap := Snapshot{Timestamp: time.Now()}
	if a.sim != nil {
		snap.Text = a.sim.Capture()
		snap.Lines = strings.Split(snap.Text, "\n")
		snap.Width, snap.Height = a.sim.Size()
		x, y, visible := a.sim.Cursor()
		if visible {
			snap.Cursor = &Point{X: x, Y: y}
		}
	}
	if a.app == nil {
		return snap
	}
	snap.Renders = a.app.Renders()
	a.app.Inspect(func() {
		screen := a.app.Screen()
		snap.LayerCount = screen.LayerCount()
		if root := screen.Root(); root != nil {
			walkWidgets(root, &snap.Widgets)
		}
	})
	return snap
}

func walkWidgets(w runtime.Widget, out *[]WidgetInfo) {
	if w == nil {
		return
	}
	info := WidgetInfo{ID: fmt.Sprintf("%p", w), Type: fmt.Sprintf("%T", w)}
	if bp, ok := w.(interface{ Bounds() runtime.Rect }); ok {
		info.Bounds = bp.Bounds()
	}
	if f, ok := w.(interface{ IsFocused() bool }); ok {
		info.Focused = f.IsFocused()
	}
	if cp, ok := w.(runtime.ChildProvider); ok {
		for _, child := range cp.ChildWidgets() {
			walkWidgets(child, &info.Children)
		}
	}
	*out = append(*out, info)
}

// ContainsText checks if the given text appears on screen.
func (a *Agent) ContainsText(text string) bool {
	if a == nil || a.sim == nil {
		return false
	}
	return a.sim.ContainsText(text)
}

// FindText returns the position of text on screen, or (-1, -1) if not found.
func (a *Agent) FindText(text string) (x, y int) {
	if a == nil || a.sim == nil {
		return -1, -1
	}
	return a.sim.FindText(text)
}

// CaptureText returns the raw text content of the screen.
func (a *Agent) CaptureText() string {
	if a == nil || a.sim == nil {
		return ""
	}
	return a.sim.Capture()
}
