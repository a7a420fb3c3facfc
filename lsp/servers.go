package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/odvcencio/furry-actions/actions"
	"github.com/odvcencio/furry-actions/host"
)

// ServerConfig is how to start one language server.
type ServerConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args,omitempty"`
}

// DefaultServers returns built-in language server mappings keyed by
// language id.
func DefaultServers() map[string]ServerConfig {
	return map[string]ServerConfig{
		"go":         {Command: "gopls"},
		"typescript": {Command: "typescript-language-server", Args: []string{"--stdio"}},
		"javascript": {Command: "typescript-language-server", Args: []string{"--stdio"}},
		"python":     {Command: "pyright-langserver", Args: []string{"--stdio"}},
		"rust":       {Command: "rust-analyzer"},
		"c":          {Command: "clangd"},
		"cpp":        {Command: "clangd"},
		"sh":         {Command: "bash-language-server", Args: []string{"start"}},
		"lua":        {Command: "lua-language-server"},
	}
}

// Handlers receive server traffic tagged with the server id.
type Handlers struct {
	Notify  func(id, method string, params json.RawMessage)
	Request func(ctx context.Context, id, method string, params json.RawMessage) (any, error)
}

// Registry owns the running servers in start order.
type Registry struct {
	logger *slog.Logger

	mu       sync.Mutex
	handlers Handlers
	order    []string
	clients  map[string]*Client
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger, clients: make(map[string]*Client)}
}

// SetHandlers wires h into servers registered afterwards.
func (r *Registry) SetHandlers(h Handlers) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = h
}

func (r *Registry) wire(id string, c *Client) {
	r.mu.Lock()
	h := r.handlers
	r.mu.Unlock()
	if h.Notify != nil {
		c.SetNotifyHandler(func(method string, params json.RawMessage) {
			h.Notify(id, method, params)
		})
	}
	if h.Request != nil {
		c.SetRequestHandler(func(ctx context.Context, method string, params json.RawMessage) (any, error) {
			return h.Request(ctx, id, method, params)
		})
	}
}

// Start launches cfg, performs the handshake and registers the client
// under id.
func (r *Registry) Start(ctx context.Context, id string, cfg ServerConfig, rootURI protocol.DocumentUri) (*Client, error) {
	c, err := NewClient(context.WithoutCancel(ctx), r.logger.With("provider", id), cfg.Command, cfg.Args...)
	if err != nil {
		return nil, err
	}
	r.wire(id, c)
	if err := c.Initialize(ctx, rootURI); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("%s: %w", id, err)
	}
	if err := r.Add(id, c); err != nil {
		_ = c.Close()
		return nil, err
	}
	r.logger.Info("language server started", "provider", id, "command", cfg.Command)
	return c, nil
}

// Add registers an already connected client and wires the handlers into it.
func (r *Registry) Add(id string, c *Client) error {
	r.mu.Lock()
	if _, ok := r.clients[id]; ok {
		r.mu.Unlock()
		return fmt.Errorf("server %q already registered", id)
	}
	r.clients[id] = c
	r.order = append(r.order, id)
	r.mu.Unlock()
	r.wire(id, c)
	return nil
}

// Client returns the client registered as id.
func (r *Registry) Client(id string) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	return c, ok
}

// Service implements host.Services.
func (r *Registry) Service(id string) (host.Client, bool) {
	c, ok := r.Client(id)
	if !ok {
		return nil, false
	}
	return c, true
}

// Providers returns one code action provider per server, in start order.
func (r *Registry) Providers() []actions.Provider {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]actions.Provider, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, NewProvider(id, r.clients[id]))
	}
	return out
}

// DidOpen announces a document to every running server.
func (r *Registry) DidOpen(item protocol.TextDocumentItem) {
	r.each(func(id string, c *Client) {
		if err := c.DidOpen(item); err != nil {
			r.logger.Warn("didOpen failed", "provider", id, "err", err)
		}
	})
}

// DidChange sends the full text of a document to every running server.
func (r *Registry) DidChange(uri protocol.DocumentUri, version int, text string) {
	r.each(func(id string, c *Client) {
		if err := c.DidChange(uri, version, text); err != nil {
			r.logger.Warn("didChange failed", "provider", id, "err", err)
		}
	})
}

func (r *Registry) each(fn func(id string, c *Client)) {
	r.mu.Lock()
	ids := append([]string(nil), r.order...)
	clients := make([]*Client, len(ids))
	for i, id := range ids {
		clients[i] = r.clients[id]
	}
	r.mu.Unlock()
	for i, c := range clients {
		if c.Running() {
			fn(ids[i], c)
		}
	}
}

// Shutdown stops every server.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	clients := r.clients
	r.clients = make(map[string]*Client)
	r.order = nil
	r.mu.Unlock()

	var errs []error
	for id, c := range clients {
		if err := c.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

var _ host.Services = (*Registry)(nil)
