package lsp

import (
	"context"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/odvcencio/furry-actions/actions"
	"github.com/odvcencio/furry-actions/host"
)

// Provider answers code action queries from one server.
type Provider struct {
	id     string
	client *Client
}

// NewProvider wraps client under id. The id is also the service id the
// dispatcher uses to route commands back to this server.
func NewProvider(id string, client *Client) *Provider {
	return &Provider{id: id, client: client}
}

func (p *Provider) ID() string { return p.id }

// CodeActions returns nothing when the server is gone.
func (p *Provider) CodeActions(ctx context.Context, doc host.Document, rng protocol.Range, diagnostics []protocol.Diagnostic) ([]protocol.CodeAction, error) {
	if !p.client.Running() {
		return nil, nil
	}
	if diagnostics == nil {
		diagnostics = []protocol.Diagnostic{}
	}
	return p.client.CodeActions(ctx, protocol.CodeActionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: doc.URI},
		Range:        rng,
		Context:      protocol.CodeActionContext{Diagnostics: diagnostics},
	})
}

var _ actions.Provider = (*Provider)(nil)
