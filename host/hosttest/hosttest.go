// Package hosttest provides in-memory host primitives for tests.
//
// Unlike a real host, the fakes never call back on their own: tests trigger
// key bindings and events explicitly with Press and Fire, and run deferred
// work with Scheduler.Flush.
package hosttest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/odvcencio/furry-actions/host"
	"github.com/odvcencio/furry-actions/terminal"
)

// Log records side effects in order across every fake of a Fixture.
type Log struct {
	mu      sync.Mutex
	entries []string
}

// Add appends a formatted entry.
func (l *Log) Add(format string, args ...any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.entries = append(l.entries, fmt.Sprintf(format, args...))
	l.mu.Unlock()
}

// Entries returns a copy of the log.
func (l *Log) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

// Index returns the position of the first entry starting with prefix, or -1.
func (l *Log) Index(prefix string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.IndexFunc(l.entries, func(e string) bool { return strings.HasPrefix(e, prefix) })
}

// Count returns how many entries start with prefix.
func (l *Log) Count(prefix string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if strings.HasPrefix(e, prefix) {
			n++
		}
	}
	return n
}

// Editor is a fake current window.
type Editor struct {
	mu         sync.Mutex
	Doc        host.Document
	HasDoc     bool
	DocErr     error
	Pos        protocol.Position
	Selections map[string]protocol.Range
	Word       *protocol.Range
	Geo        host.Geometry
	Options    map[string]string
	Log        *Log
}

func (e *Editor) Document(context.Context) (host.Document, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Doc, e.HasDoc, e.DocErr
}

func (e *Editor) Cursor(context.Context) (protocol.Position, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Pos, nil
}

func (e *Editor) SetCursor(_ context.Context, pos protocol.Position) error {
	e.mu.Lock()
	e.Pos = pos
	e.mu.Unlock()
	e.Log.Add("cursor %d:%d", pos.Line, pos.Character)
	return nil
}

func (e *Editor) Selection(_ context.Context, mode string) (protocol.Range, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rng, ok := e.Selections[mode]
	return rng, ok, nil
}

func (e *Editor) WordRange(context.Context) (protocol.Range, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Word == nil {
		return protocol.Range{}, false, nil
	}
	return *e.Word, true, nil
}

func (e *Editor) Geometry(context.Context) (host.Geometry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Geo, nil
}

func (e *Editor) Option(_ context.Context, name string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Options[name], nil
}

func (e *Editor) SetOption(_ context.Context, name, value string) error {
	e.mu.Lock()
	if e.Options == nil {
		e.Options = make(map[string]string)
	}
	e.Options[name] = value
	e.mu.Unlock()
	e.Log.Add("option %s=%s", name, value)
	return nil
}

// Highlight is one recorded surface highlight.
type Highlight struct {
	Line  int
	Group string
}

// Surface is a fake floating window.
type Surface struct {
	mu         sync.Mutex
	lines      []string
	visible    bool
	released   bool
	cursor     int
	placement  host.Placement
	highlights map[string][]Highlight
	log        *Log
	// ShowErr fails the next Show.
	ShowErr error
}

var errReleased = errors.New("surface released")

func (s *Surface) SetLines(_ context.Context, lines []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return errReleased
	}
	s.lines = append([]string(nil), lines...)
	s.cursor = 0
	s.highlights = nil
	s.log.Add("setlines %d", len(lines))
	return nil
}

func (s *Surface) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return errReleased
	}
	s.lines = nil
	s.cursor = 0
	s.highlights = nil
	s.log.Add("clear")
	return nil
}

func (s *Surface) Show(_ context.Context, p host.Placement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ShowErr != nil {
		err := s.ShowErr
		s.ShowErr = nil
		return err
	}
	s.visible = true
	s.placement = p
	s.log.Add("show %s %dx%d", p.Anchor, p.Width, p.Height)
	return nil
}

func (s *Surface) Hide(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = false
	s.log.Add("hide")
	return nil
}

func (s *Surface) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

func (s *Surface) CursorLine(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor, nil
}

func (s *Surface) MoveCursor(_ context.Context, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.lines) == 0 {
		return nil
	}
	s.cursor = min(max(s.cursor+delta, 0), len(s.lines)-1)
	s.log.Add("move %d", s.cursor)
	return nil
}

// SetCursorLine moves the fake cursor directly, as the user would.
func (s *Surface) SetCursorLine(line int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = line
}

func (s *Surface) SetHighlight(_ context.Context, ns string, line int, group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.highlights == nil {
		s.highlights = make(map[string][]Highlight)
	}
	s.highlights[ns] = append(s.highlights[ns], Highlight{Line: line, Group: group})
	return nil
}

func (s *Surface) ClearHighlight(_ context.Context, ns string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.highlights, ns)
	return nil
}

func (s *Surface) Release(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = true
	s.visible = false
	s.log.Add("release")
	return nil
}

// Lines returns the current content.
func (s *Surface) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

// Highlights returns the highlights in ns.
func (s *Surface) Highlights(ns string) []Highlight {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Highlight(nil), s.highlights[ns]...)
}

// Placement returns the last Show placement.
func (s *Surface) Placement() host.Placement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.placement
}

// Released reports whether Release was called.
func (s *Surface) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// Windows creates fake surfaces.
type Windows struct {
	mu      sync.Mutex
	Created []*Surface
	Log     *Log
	Err     error
}

func (w *Windows) NewSurface(context.Context) (host.Surface, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.Err != nil {
		return nil, w.Err
	}
	s := &Surface{log: w.Log}
	w.Created = append(w.Created, s)
	w.Log.Add("newsurface")
	return s, nil
}

// Last returns the most recently created surface.
func (w *Windows) Last() *Surface {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.Created) == 0 {
		return nil
	}
	return w.Created[len(w.Created)-1]
}

// Count returns the number of surfaces created.
func (w *Windows) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.Created)
}

// Bindings records key and event registrations.
type Bindings struct {
	mu       sync.Mutex
	keys     map[string]func()
	events   map[host.Event]func()
	Bound    int
	Disposed int
}

func (b *Bindings) BindKey(_ context.Context, _ host.Surface, notation string, fn func()) (host.Disposable, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.keys == nil {
		b.keys = make(map[string]func())
	}
	key := terminal.NormalizeNotation(notation)
	b.keys[key] = fn
	b.Bound++
	return host.DisposeFunc(func() {
		b.mu.Lock()
		delete(b.keys, key)
		b.Disposed++
		b.mu.Unlock()
	}), nil
}

func (b *Bindings) OnEvent(_ context.Context, _ host.Surface, ev host.Event, fn func()) (host.Disposable, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.events == nil {
		b.events = make(map[host.Event]func())
	}
	b.events[ev] = fn
	b.Bound++
	return host.DisposeFunc(func() {
		b.mu.Lock()
		delete(b.events, ev)
		b.Disposed++
		b.mu.Unlock()
	}), nil
}

// Press runs the handler bound to notation and reports whether one exists.
func (b *Bindings) Press(notation string) bool {
	b.mu.Lock()
	fn := b.keys[terminal.NormalizeNotation(notation)]
	b.mu.Unlock()
	if fn == nil {
		return false
	}
	fn()
	return true
}

// Fire runs the handler for ev and reports whether one exists.
func (b *Bindings) Fire(ev host.Event) bool {
	b.mu.Lock()
	fn := b.events[ev]
	b.mu.Unlock()
	if fn == nil {
		return false
	}
	fn()
	return true
}

// Active returns the number of live registrations.
func (b *Bindings) Active() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.keys) + len(b.events)
}

// Config is a map-backed configuration store.
type Config map[string]any

func (c Config) Get(key string) (any, bool) {
	v, ok := c[key]
	return v, ok
}

// Diagnostics returns a fixed list for every query.
type Diagnostics struct {
	List    []protocol.Diagnostic
	Queries []protocol.Range
}

func (d *Diagnostics) InRange(_ context.Context, _ protocol.DocumentUri, rng protocol.Range) []protocol.Diagnostic {
	d.Queries = append(d.Queries, rng)
	return d.List
}

// Commands is a fake command registry.
type Commands struct {
	mu    sync.Mutex
	funcs map[string]host.CommandFunc
	Log   *Log
}

func (c *Commands) Has(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.funcs[id]
	return ok
}

func (c *Commands) Execute(ctx context.Context, id string, args ...any) (any, error) {
	c.mu.Lock()
	fn, ok := c.funcs[id]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("command %q not found", id)
	}
	c.Log.Add("execute %s", id)
	return fn(ctx, args...)
}

func (c *Commands) Register(id string, fn host.CommandFunc) (host.Disposable, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.funcs == nil {
		c.funcs = make(map[string]host.CommandFunc)
	}
	if _, ok := c.funcs[id]; ok {
		return nil, fmt.Errorf("command %q already registered", id)
	}
	c.funcs[id] = fn
	return host.DisposeFunc(func() {
		c.mu.Lock()
		delete(c.funcs, id)
		c.mu.Unlock()
	}), nil
}

// Call is one recorded remote request.
type Call struct {
	Method string
	Params any
}

// Client is a fake remote connection.
type Client struct {
	mu      sync.Mutex
	Down    bool
	Err     error
	Calls   []Call
	Log     *Log
	Release chan struct{}
}

func (c *Client) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.Down
}

func (c *Client) Call(ctx context.Context, method string, params any, _ any) error {
	if c.Release != nil {
		select {
		case <-c.Release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.mu.Lock()
	c.Calls = append(c.Calls, Call{Method: method, Params: params})
	err := c.Err
	c.mu.Unlock()
	c.Log.Add("remote %s", method)
	return err
}

// Recorded returns the calls made so far.
func (c *Client) Recorded() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.Calls...)
}

// Services maps provider ids to clients.
type Services map[string]*Client

func (s Services) Service(id string) (host.Client, bool) {
	c, ok := s[id]
	if !ok {
		return nil, false
	}
	return c, true
}

// Workspace records applied edits.
type Workspace struct {
	mu    sync.Mutex
	Edits []protocol.WorkspaceEdit
	Err   error
	Log   *Log
}

func (w *Workspace) ApplyEdit(_ context.Context, edit protocol.WorkspaceEdit) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.Err != nil {
		return w.Err
	}
	w.Edits = append(w.Edits, edit)
	w.Log.Add("applyedit")
	return nil
}

// Message is one shown message.
type Message struct {
	Level host.Level
	Text  string
}

// Messenger records messages.
type Messenger struct {
	mu       sync.Mutex
	messages []Message
	Log      *Log
	notify   chan struct{}
}

func (m *Messenger) ShowMessage(level host.Level, text string) {
	m.mu.Lock()
	m.messages = append(m.messages, Message{Level: level, Text: text})
	ch := m.notify
	m.mu.Unlock()
	m.Log.Add("message %s", text)
	if ch != nil {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Messages returns what was shown.
func (m *Messenger) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.messages...)
}

// Notify returns a channel that receives after each message.
func (m *Messenger) Notify() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.notify == nil {
		m.notify = make(chan struct{}, 16)
	}
	return m.notify
}

// Scheduler queues AfterRedraw callbacks until Flush.
type Scheduler struct {
	queue []func()
	mu    sync.Mutex
}

func (s *Scheduler) AfterRedraw(fn func()) {
	s.mu.Lock()
	s.queue = append(s.queue, fn)
	s.mu.Unlock()
}

// Pending returns the number of queued callbacks.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Flush runs queued callbacks in order.
func (s *Scheduler) Flush() int {
	s.mu.Lock()
	queue := s.queue
	s.queue = nil
	s.mu.Unlock()
	for _, fn := range queue {
		fn()
	}
	return len(queue)
}

// Fixture wires every fake to one Log.
type Fixture struct {
	Log         *Log
	Editor      *Editor
	Windows     *Windows
	Bindings    *Bindings
	Config      Config
	Diagnostics *Diagnostics
	Commands    *Commands
	Services    Services
	Workspace   *Workspace
	Messenger   *Messenger
	Scheduler   *Scheduler
	Info        host.Info
}

// New creates a fixture for a terminal host with a document open at
// file:///test.go and a 40 row screen.
func New() *Fixture {
	log := &Log{}
	return &Fixture{
		Log: log,
		Editor: &Editor{
			Doc:    host.Document{URI: "file:///test.go", LanguageID: "go"},
			HasDoc: true,
			Geo:    host.Geometry{ScreenHeight: 40, WindowRow: 0, CursorLine: 5},
			Options: map[string]string{
				"guicursor": "n-v-c:block",
			},
			Log: log,
		},
		Windows:     &Windows{Log: log},
		Bindings:    &Bindings{},
		Config:      Config{},
		Diagnostics: &Diagnostics{},
		Commands:    &Commands{Log: log},
		Services:    Services{},
		Workspace:   &Workspace{Log: log},
		Messenger:   &Messenger{Log: log},
		Scheduler:   &Scheduler{},
		Info:        host.Info{Variant: "terminal", Version: "0.5.0"},
	}
}

// Host bundles the fakes.
func (f *Fixture) Host() host.Host {
	return host.Host{
		Editor:      f.Editor,
		Windows:     f.Windows,
		Bindings:    f.Bindings,
		Config:      f.Config,
		Diagnostics: f.Diagnostics,
		Commands:    f.Commands,
		Services:    f.Services,
		Workspace:   f.Workspace,
		Messenger:   f.Messenger,
		Scheduler:   f.Scheduler,
		Info:        f.Info,
	}
}

// AddClient registers a running remote client for providerID.
func (f *Fixture) AddClient(providerID string) *Client {
	c := &Client{Log: f.Log}
	f.Services[providerID] = c
	return c
}

var (
	_ host.Editor      = (*Editor)(nil)
	_ host.Surface     = (*Surface)(nil)
	_ host.Windows     = (*Windows)(nil)
	_ host.Bindings    = (*Bindings)(nil)
	_ host.Config      = Config(nil)
	_ host.Diagnostics = (*Diagnostics)(nil)
	_ host.Commands    = (*Commands)(nil)
	_ host.Client      = (*Client)(nil)
	_ host.Services    = Services(nil)
	_ host.Workspace   = (*Workspace)(nil)
	_ host.Messenger   = (*Messenger)(nil)
	_ host.Scheduler   = (*Scheduler)(nil)
)
