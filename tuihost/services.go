package tuihost

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/odvcencio/furry-actions/host"
)

// Commands is the in-process command registry.
type Commands struct {
	mu    sync.Mutex
	funcs map[string]host.CommandFunc
}

// NewCommands creates an empty registry.
func NewCommands() *Commands {
	return &Commands{funcs: make(map[string]host.CommandFunc)}
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
	return fn(ctx, args...)
}

// Register adds fn under id. Registering an id twice is an error.
func (c *Commands) Register(id string, fn host.CommandFunc) (host.Disposable, error) {
	if fn == nil {
		return nil, fmt.Errorf("command %q: nil func", id)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
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

// Diagnostics keeps the last published diagnostics per document.
type Diagnostics struct {
	mu       sync.Mutex
	byURI    map[protocol.DocumentUri][]protocol.Diagnostic
	onChange func()
}

// NewDiagnostics creates an empty store. onChange runs after each publish.
func NewDiagnostics(onChange func()) *Diagnostics {
	return &Diagnostics{byURI: make(map[protocol.DocumentUri][]protocol.Diagnostic), onChange: onChange}
}

// Publish replaces the diagnostics of uri.
func (d *Diagnostics) Publish(uri protocol.DocumentUri, list []protocol.Diagnostic) {
	d.mu.Lock()
	if len(list) == 0 {
		delete(d.byURI, uri)
	} else {
		d.byURI[uri] = append([]protocol.Diagnostic(nil), list...)
	}
	d.mu.Unlock()
	if d.onChange != nil {
		d.onChange()
	}
}

// Count returns how many diagnostics uri has.
func (d *Diagnostics) Count(uri protocol.DocumentUri) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.byURI[uri])
}

// InRange returns the diagnostics of uri touching rng. Ranges are closed
// at both ends so a cursor at either edge of a diagnostic still sees it.
func (d *Diagnostics) InRange(_ context.Context, uri protocol.DocumentUri, rng protocol.Range) []protocol.Diagnostic {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []protocol.Diagnostic
	for _, diag := range d.byURI[uri] {
		if !before(rng.End, diag.Range.Start) && !before(diag.Range.End, rng.Start) {
			out = append(out, diag)
		}
	}
	return out
}

func before(a, b protocol.Position) bool {
	return a.Line < b.Line || (a.Line == b.Line && a.Character < b.Character)
}

// ServerNotification handles notifications from language server id.
func (h *Host) ServerNotification(id, method string, params json.RawMessage) {
	switch method {
	case protocol.ServerTextDocumentPublishDiagnostics:
		var p protocol.PublishDiagnosticsParams
		if err := json.Unmarshal(params, &p); err != nil {
			h.logger.Warn("bad diagnostics", "provider", id, "err", err)
			return
		}
		h.diags.Publish(p.URI, p.Diagnostics)
	case protocol.ServerWindowShowMessage:
		var p protocol.ShowMessageParams
		if err := json.Unmarshal(params, &p); err != nil {
			h.logger.Warn("bad message", "provider", id, "err", err)
			return
		}
		h.ShowMessage(levelOf(p.Type), id+": "+p.Message)
	case protocol.ServerWindowLogMessage:
		var p protocol.LogMessageParams
		if err := json.Unmarshal(params, &p); err == nil {
			h.logger.Debug("server log", "provider", id, "text", p.Message)
		}
	default:
		h.logger.Debug("unhandled notification", "provider", id, "method", method)
	}
}

// ServerRequest answers requests from language server id. Only
// workspace/applyEdit does anything; other requests get a null result.
func (h *Host) ServerRequest(ctx context.Context, id, method string, params json.RawMessage) (any, error) {
	if method != protocol.ServerWorkspaceApplyEdit {
		h.logger.Debug("unhandled request", "provider", id, "method", method)
		return nil, nil
	}
	// documentChanges entries stay raw so file operations keep their kind.
	var p struct {
		Edit struct {
			Changes         map[protocol.DocumentUri][]protocol.TextEdit `json:"changes"`
			DocumentChanges []json.RawMessage                            `json:"documentChanges"`
		} `json:"edit"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("decode %s: %w", method, err)
	}
	edit := protocol.WorkspaceEdit{Changes: p.Edit.Changes}
	for _, raw := range p.Edit.DocumentChanges {
		edit.DocumentChanges = append(edit.DocumentChanges, raw)
	}
	if err := h.ApplyEdit(ctx, edit); err != nil {
		reason := err.Error()
		h.logger.Warn("server edit failed", "provider", id, "err", err)
		return protocol.ApplyWorkspaceEditResponse{Applied: false, FailureReason: &reason}, nil
	}
	return protocol.ApplyWorkspaceEditResponse{Applied: true}, nil
}

func levelOf(t protocol.MessageType) host.Level {
	switch t {
	case protocol.MessageTypeError:
		return host.LevelError
	case protocol.MessageTypeWarning:
		return host.LevelWarning
	default:
		return host.LevelInfo
	}
}

var (
	_ host.Commands    = (*Commands)(nil)
	_ host.Diagnostics = (*Diagnostics)(nil)
)
