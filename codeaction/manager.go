// Package codeaction owns the code action menu: it opens one session at a
// time, arms the surface key bindings and events once, and dispatches the
// confirmed action after the menu is gone.
package codeaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/odvcencio/furry-actions/actions"
	"github.com/odvcencio/furry-actions/config"
	"github.com/odvcencio/furry-actions/dispatch"
	"github.com/odvcencio/furry-actions/host"
	"github.com/odvcencio/furry-actions/menu"
	"github.com/odvcencio/furry-actions/selection"
	"github.com/odvcencio/furry-actions/state"
)

// DefaultDispatchDelay is used when the host has no redraw scheduler.
const DefaultDispatchDelay = 100 * time.Millisecond

var (
	// ErrUnsupportedHost is returned by Activate on hosts other than the
	// terminal editor.
	ErrUnsupportedHost = errors.New("codeaction: unsupported host")
	// ErrNoSurface means the host could not provide a floating surface.
	ErrNoSurface = errors.New("codeaction: no surface")
)

// Options configures a Manager.
type Options struct {
	Logger *slog.Logger
	// DispatchDelay replaces DefaultDispatchDelay for hosts without a
	// scheduler.
	DispatchDelay time.Duration
}

// OpenRequest are the optional trigger arguments. Line and Column are
// 1-based; the cursor moves there first when both parse.
type OpenRequest struct {
	SelectionMode string
	Line          string
	Column        string
}

// Manager coordinates one surface, one selection controller and one set of
// reactions across menu sessions. Its methods and reaction handlers are
// serialized.
type Manager struct {
	host       host.Host
	source     *actions.Source
	dispatcher *dispatch.Dispatcher
	notify     *notifier
	logger     *slog.Logger
	delay      time.Duration

	mu         sync.Mutex
	opts       config.Options
	surface    host.Surface
	controller *selection.Controller
	session    *Session
	cursor     cursorOverride
	armed      bool
	reactions  state.Subscriptions
	keys       state.Subscriptions
	boundKeys  config.Keys

	scheduled sync.WaitGroup
}

// NewManager creates a manager over h fetching from source.
func NewManager(h host.Host, source *actions.Source, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	delay := opts.DispatchDelay
	if delay <= 0 {
		delay = DefaultDispatchDelay
	}
	n := &notifier{out: h.Messenger, logger: logger}
	return &Manager{
		host:       h,
		source:     source,
		dispatcher: dispatch.New(h.Workspace, h.Commands, h.Services, n, logger),
		notify:     n,
		logger:     logger,
		delay:      delay,
		opts:       config.Load(h.Config),
	}
}

// Session returns the live session, if any.
func (m *Manager) Session() (Session, bool) {
	if m == nil {
		return Session{}, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return Session{}, false
	}
	return *m.session, true
}

// Selected exposes the selected row of the live session.
func (m *Manager) Selected() state.Readable[int] {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.controller == nil {
		return nil
	}
	return m.controller.Index()
}

// Armed reports whether the reactions are registered.
func (m *Manager) Armed() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.armed
}

// Open closes any live session, fetches candidates and shows them. An empty
// result is a silent no-op. Failures are reported to the user and returned.
func (m *Manager) Open(ctx context.Context, req OpenRequest) error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.moveCursor(ctx, req); err != nil {
		m.logger.Warn("move cursor failed", "err", err)
	}
	m.closeLocked(ctx)
	m.opts = config.Load(m.host.Config)

	candidates, err := m.source.FetchAt(ctx, m.host.Editor, m.host.Diagnostics, req.SelectionMode)
	if err != nil {
		m.notify.ShowMessage(host.LevelError, fmt.Sprintf("Fetch code actions failed: %v", err))
		return fmt.Errorf("fetch code actions: %w", err)
	}
	if len(candidates) == 0 {
		m.logger.Debug("no code actions")
		return nil
	}

	geo, err := m.host.Editor.Geometry(ctx)
	if err != nil {
		m.notify.ShowMessage(host.LevelError, fmt.Sprintf("Read window geometry failed: %v", err))
		return fmt.Errorf("read geometry: %w", err)
	}
	plan := menu.Layout(candidates, geo, m.opts)

	if err := m.ensureSurface(ctx); err != nil {
		m.notify.ShowMessage(host.LevelError, err.Error())
		return err
	}
	if err := menu.Render(ctx, plan, m.surface, m.opts); err != nil {
		_ = m.surface.Clear(ctx)
		m.notify.ShowMessage(host.LevelError, fmt.Sprintf("Show code actions failed: %v", err))
		return err
	}
	if m.opts.HideCursor && SupportsCursorOverride(m.host.Info.Version) {
		if err := m.cursor.apply(ctx, m.host.Editor); err != nil {
			m.logger.Warn("hide cursor failed", "err", err)
		}
	}

	m.controller.SetUseCursorLine(m.opts.UseCursorLine)
	if _, err := m.controller.Open(ctx, candidates); err != nil {
		m.logger.Warn("paint selection failed", "err", err)
	}
	m.session = newSession(candidates, plan)
	m.logger.Info("menu opened", "session", m.session.ID, "count", len(candidates), "anchor", plan.Anchor)

	if err := m.ensureArmed(ctx); err != nil {
		m.logger.Error("arm reactions failed", "session", m.session.ID, "err", err)
		m.closeLocked(ctx)
		m.notify.ShowMessage(host.LevelError, fmt.Sprintf("Bind menu keys failed: %v", err))
		return err
	}
	return nil
}

func (m *Manager) moveCursor(ctx context.Context, req OpenRequest) error {
	if req.Line == "" || req.Column == "" {
		return nil
	}
	line, err := strconv.Atoi(req.Line)
	if err != nil || line < 1 {
		return fmt.Errorf("invalid line %q", req.Line)
	}
	col, err := strconv.Atoi(req.Column)
	if err != nil || col < 1 {
		return fmt.Errorf("invalid column %q", req.Column)
	}
	return m.host.Editor.SetCursor(ctx, protocol.Position{
		Line:      protocol.UInteger(line - 1),
		Character: protocol.UInteger(col - 1),
	})
}

// ensureSurface creates the surface and its controller once; later sessions
// reuse them.
func (m *Manager) ensureSurface(ctx context.Context) error {
	if m.surface != nil {
		return nil
	}
	if m.host.Windows == nil {
		return ErrNoSurface
	}
	surface, err := m.host.Windows.NewSurface(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoSurface, err)
	}
	m.surface = surface
	m.controller = selection.New(surface, m.opts.UseCursorLine)
	return nil
}

// ensureArmed registers the reactions the first time it is called for the
// current surface. Later calls only rebind the menu keys when their
// notations changed since they were bound.
func (m *Manager) ensureArmed(ctx context.Context) error {
	if m.armed {
		if m.opts.Keys == m.boundKeys {
			return nil
		}
		m.logger.Debug("menu keys changed", "from", m.boundKeys, "to", m.opts.Keys)
		m.keys.Clear()
		return m.bindKeys(ctx)
	}
	if m.host.Bindings == nil {
		return errors.New("host has no key bindings")
	}
	if err := m.bindKeys(ctx); err != nil {
		return err
	}
	events := []struct {
		ev host.Event
		fn func()
	}{
		{host.EventBufLeave, m.onCancel},
		{host.EventWinLeave, m.onCancel},
		{host.EventCursorMoved, m.onCursorMoved},
	}
	for _, e := range events {
		d, err := m.host.Bindings.OnEvent(ctx, m.surface, e.ev, e.fn)
		if err != nil {
			m.keys.Clear()
			m.reactions.Clear()
			return fmt.Errorf("listen %s: %w", e.ev, err)
		}
		m.reactions.Add(d.Dispose)
	}
	state.Observe(&m.reactions, m.controller.Index(), func(i int) {
		m.logger.Debug("selection moved", "index", i)
	})
	m.armed = true
	return nil
}

func (m *Manager) bindKeys(ctx context.Context) error {
	keys := []struct {
		notation string
		fn       func()
	}{
		{m.opts.Keys.Confirm, m.onConfirm},
		{m.opts.Keys.Cancel, m.onCancel},
		{m.opts.Keys.Next, m.onNext},
		{m.opts.Keys.Prev, m.onPrev},
	}
	for _, k := range keys {
		if k.notation == "" {
			continue
		}
		d, err := m.host.Bindings.BindKey(ctx, m.surface, k.notation, k.fn)
		if err != nil {
			m.keys.Clear()
			m.boundKeys = config.Keys{}
			return fmt.Errorf("bind %s: %w", k.notation, err)
		}
		m.keys.Add(d.Dispose)
	}
	m.boundKeys = m.opts.Keys
	return nil
}

// Close hides the menu, restores the cursor and empties the surface for
// reuse. Closing a closed menu does nothing.
func (m *Manager) Close(ctx context.Context) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked(ctx)
}

func (m *Manager) closeLocked(ctx context.Context) {
	if m.session == nil {
		return
	}
	id, opened := m.session.ID, m.session.Opened
	m.session = nil
	m.controller.Cancel()
	if err := m.surface.Hide(ctx); err != nil {
		m.logger.Warn("hide surface failed", "session", id, "err", err)
	}
	if err := m.cursor.restore(ctx, m.host.Editor); err != nil {
		m.logger.Warn("restore cursor failed", "session", id, "err", err)
	}
	if err := m.surface.Clear(ctx); err != nil {
		m.logger.Warn("clear surface failed", "session", id, "err", err)
	}
	m.logger.Debug("menu closed", "session", id, "open", time.Since(opened).Round(time.Millisecond))
}

// Dispose releases the surface and every reaction. The manager can open
// again afterwards with a fresh surface.
func (m *Manager) Dispose(ctx context.Context) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil {
		m.session = nil
		if err := m.cursor.restore(ctx, m.host.Editor); err != nil {
			m.logger.Warn("restore cursor failed", "err", err)
		}
	}
	if m.controller != nil {
		m.controller.Dispose()
		m.controller = nil
	}
	if m.surface != nil {
		if err := m.surface.Release(ctx); err != nil {
			m.logger.Warn("release surface failed", "err", err)
		}
		m.surface = nil
	}
	m.keys.Clear()
	m.boundKeys = config.Keys{}
	m.reactions.Clear()
	m.armed = false
}

// Wait blocks until scheduled dispatches and the remote commands they sent
// have finished.
func (m *Manager) Wait() {
	if m == nil {
		return
	}
	m.scheduled.Wait()
	m.dispatcher.Wait()
}

func (m *Manager) onConfirm() {
	ctx := context.Background()
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return
	}
	id := m.session.ID
	candidate, ok, err := m.controller.Confirm(ctx)
	m.closeLocked(ctx)
	m.mu.Unlock()

	if err != nil {
		m.logger.Warn("confirm failed", "session", id, "err", err)
	}
	if ok {
		m.logger.Info("action confirmed", "session", id, "provider", candidate.ProviderID, "title", candidate.Title)
		m.scheduleDispatch(candidate)
	}
}

// scheduleDispatch applies candidate once the host has redrawn without the
// menu.
func (m *Manager) scheduleDispatch(candidate actions.Candidate) {
	m.scheduled.Add(1)
	run := func() {
		defer m.scheduled.Done()
		m.dispatcher.Apply(context.Background(), candidate)
	}
	if m.host.Scheduler != nil {
		m.host.Scheduler.AfterRedraw(run)
		return
	}
	time.AfterFunc(m.delay, run)
}

func (m *Manager) onCancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked(context.Background())
}

func (m *Manager) onNext() {
	m.withController(func(ctx context.Context, c *selection.Controller) error { return c.Next(ctx) })
}

func (m *Manager) onPrev() {
	m.withController(func(ctx context.Context, c *selection.Controller) error { return c.Prev(ctx) })
}

func (m *Manager) onCursorMoved() {
	m.withController(func(ctx context.Context, c *selection.Controller) error { return c.Sync(ctx) })
}

func (m *Manager) withController(fn func(context.Context, *selection.Controller) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil || m.controller == nil {
		return
	}
	if err := fn(context.Background(), m.controller); err != nil {
		m.logger.Warn("selection update failed", "session", m.session.ID, "err", err)
	}
}
