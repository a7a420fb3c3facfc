package tuihost

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/odvcencio/furry-actions/host"
	"github.com/odvcencio/furry-actions/runtime"
	"github.com/odvcencio/furry-actions/theme"
	"github.com/odvcencio/furry-actions/widgets"
)

var errReleased = errors.New("tuihost: surface released")

// surface is a popup layer. It is pushed as a modal layer while shown so
// it takes every key until hidden.
type surface struct {
	h     *Host
	popup *widgets.Popup
	layer *runtime.Layer

	visible  atomic.Bool
	released atomic.Bool

	mu     sync.Mutex
	events map[host.Event]map[uint64]func()
	keys   map[uint64]func()
	nextID uint64
}

// NewSurface creates a hidden popup.
func (h *Host) NewSurface(context.Context) (host.Surface, error) {
	s := &surface{
		h:      h,
		popup:  widgets.NewPopup(),
		events: make(map[host.Event]map[uint64]func()),
		keys:   make(map[uint64]func()),
	}
	s.layer = &runtime.Layer{Root: s.popup, Modal: true}
	for group, style := range h.palette.Groups {
		s.popup.SetGroupStyle(group, style)
	}
	s.popup.OnCursorMoved(func(int) { s.fire(host.EventCursorMoved) })

	h.mu.Lock()
	h.surfaces = append(h.surfaces, s)
	h.mu.Unlock()
	return s, nil
}

// Surfaces returns the number of live surfaces.
func (h *Host) Surfaces() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.surfaces)
}

func (s *surface) SetLines(_ context.Context, lines []string) error {
	if s.released.Load() {
		return errReleased
	}
	s.h.app.Do(func() { s.popup.SetLines(lines) })
	return nil
}

func (s *surface) Clear(context.Context) error {
	if s.released.Load() {
		return errReleased
	}
	s.h.app.Do(func() { s.popup.SetLines(nil) })
	return nil
}

func (s *surface) Show(_ context.Context, p host.Placement) error {
	if s.released.Load() {
		return errReleased
	}
	hidden := s.h.cursorHidden()
	s.h.app.Do(func() {
		palette := s.h.palette
		if p.Options.NormalGroup != "" {
			s.popup.SetGroupStyle(theme.GroupNormal, palette.Style(p.Options.NormalGroup))
		}
		if p.Options.CursorLineGroup != "" {
			s.popup.SetGroupStyle(theme.GroupCursorLine, palette.Style(p.Options.CursorLineGroup))
		}
		s.popup.SetCursorLineEnabled(p.Options.CursorLine)
		s.popup.SetCursorHidden(hidden)

		screen := s.h.app.Screen()
		s.layer.Bounds = s.h.place(p)
		if screen.HasLayer(s.layer) {
			screen.Relayout(s.layer)
		} else {
			screen.PushLayer(s.layer)
		}
		s.visible.Store(true)
	})
	return nil
}

// place positions a popup next to the document cursor, clamped to the
// screen. Call it with the UI lock held.
func (h *Host) place(p host.Placement) runtime.Rect {
	sw, sh := h.app.Screen().Size()
	cx, cy := h.cursorCell()
	width := min(max(p.Width, 1), sw)
	height := min(max(p.Height, 1), sh)
	y := cy + 1
	if p.Anchor == host.AnchorAbove {
		y = cy - height
	}
	y = min(max(y, 0), max(sh-height, 0))
	x := min(max(cx, 0), max(sw-width, 0))
	return runtime.Rect{X: x, Y: y, Width: width, Height: height}
}

func (s *surface) Hide(context.Context) error {
	s.h.app.Do(func() {
		s.h.app.Screen().RemoveLayer(s.layer)
		s.visible.Store(false)
	})
	return nil
}

func (s *surface) Visible() bool {
	return s.visible.Load()
}

func (s *surface) CursorLine(context.Context) (int, error) {
	var line int
	s.h.app.Inspect(func() { line = s.popup.CursorLine() })
	return line, nil
}

func (s *surface) MoveCursor(_ context.Context, delta int) error {
	if s.released.Load() {
		return errReleased
	}
	s.h.app.Do(func() { s.popup.SetCursorLine(s.popup.CursorLine() + delta) })
	return nil
}

func (s *surface) SetHighlight(_ context.Context, ns string, line int, group string) error {
	if s.released.Load() {
		return errReleased
	}
	s.h.app.Do(func() { s.popup.AddHighlight(ns, line, group) })
	return nil
}

func (s *surface) ClearHighlight(_ context.Context, ns string) error {
	if s.released.Load() {
		return errReleased
	}
	s.h.app.Do(func() { s.popup.ClearHighlights(ns) })
	return nil
}

// Release hides the popup and drops every binding and event handler.
func (s *surface) Release(ctx context.Context) error {
	if !s.released.CompareAndSwap(false, true) {
		return nil
	}
	_ = s.Hide(ctx)
	s.mu.Lock()
	unbind := slices.Collect(maps.Values(s.keys))
	clear(s.keys)
	clear(s.events)
	s.mu.Unlock()
	for _, fn := range unbind {
		fn()
	}

	h := s.h
	h.mu.Lock()
	h.surfaces = slices.DeleteFunc(h.surfaces, func(o *surface) bool { return o == s })
	h.mu.Unlock()
	return nil
}

// fire queues every handler for ev, in registration order, behind the
// callbacks already waiting for delivery.
func (s *surface) fire(ev host.Event) {
	s.mu.Lock()
	handlers := s.events[ev]
	ids := slices.Sorted(maps.Keys(handlers))
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, handlers[id])
	}
	s.mu.Unlock()
	for _, fn := range fns {
		s.h.deliver.Schedule(fn)
	}
}

func (h *Host) surfaceOf(s host.Surface) (*surface, error) {
	sf, ok := s.(*surface)
	if !ok || sf.h != h {
		return nil, fmt.Errorf("tuihost: foreign surface %T", s)
	}
	if sf.released.Load() {
		return nil, errReleased
	}
	return sf, nil
}

// BindKey maps notation inside the popup. fn is queued for delivery in key
// order.
func (h *Host) BindKey(_ context.Context, s host.Surface, notation string, fn func()) (host.Disposable, error) {
	sf, err := h.surfaceOf(s)
	if err != nil {
		return nil, err
	}
	remove := sf.popup.Bind(notation, func() { h.deliver.Schedule(fn) })
	sf.mu.Lock()
	sf.nextID++
	id := sf.nextID
	sf.keys[id] = remove
	sf.mu.Unlock()
	return host.DisposeFunc(func() {
		sf.mu.Lock()
		_, live := sf.keys[id]
		delete(sf.keys, id)
		sf.mu.Unlock()
		if live {
			remove()
		}
	}), nil
}

// OnEvent registers fn for ev on the surface.
func (h *Host) OnEvent(_ context.Context, s host.Surface, ev host.Event, fn func()) (host.Disposable, error) {
	sf, err := h.surfaceOf(s)
	if err != nil {
		return nil, err
	}
	sf.mu.Lock()
	sf.nextID++
	id := sf.nextID
	if sf.events[ev] == nil {
		sf.events[ev] = make(map[uint64]func())
	}
	sf.events[ev][id] = fn
	sf.mu.Unlock()
	return host.DisposeFunc(func() {
		sf.mu.Lock()
		delete(sf.events[ev], id)
		sf.mu.Unlock()
	}), nil
}

var _ host.Surface = (*surface)(nil)
