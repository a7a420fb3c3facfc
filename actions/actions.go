// Package actions gathers code actions from providers and ranks them.
package actions

import (
	"context"
	"fmt"
	"log/slog"

	protocol "github.com/tliron/glsp/protocol_3_16"
	"golang.org/x/sync/errgroup"

	"github.com/odvcencio/furry-actions/host"
)

// Candidate is one selectable action tagged with the provider that
// produced it.
type Candidate struct {
	ProviderID  string
	Title       string
	Kind        string
	IsPreferred bool
	// Disabled is the reason the action cannot be applied, or "".
	Disabled string
	Edit     *protocol.WorkspaceEdit
	Command  *protocol.Command
}

// FromCodeAction tags a protocol code action with providerID.
func FromCodeAction(providerID string, action protocol.CodeAction) Candidate {
	c := Candidate{
		ProviderID: providerID,
		Title:      action.Title,
		Edit:       action.Edit,
		Command:    action.Command,
	}
	if action.Kind != nil {
		c.Kind = string(*action.Kind)
	}
	if action.IsPreferred != nil {
		c.IsPreferred = *action.IsPreferred
	}
	if action.Disabled != nil {
		c.Disabled = action.Disabled.Reason
		if c.Disabled == "" {
			c.Disabled = "disabled"
		}
	}
	return c
}

// Provider answers code action queries for a document range.
type Provider interface {
	ID() string
	CodeActions(ctx context.Context, doc host.Document, rng protocol.Range, diagnostics []protocol.Diagnostic) ([]protocol.CodeAction, error)
}

// Source queries a fixed, ordered set of providers.
type Source struct {
	providers []Provider
	logger    *slog.Logger
}

// NewSource creates a source over providers, queried in the given order.
func NewSource(logger *slog.Logger, providers ...Provider) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{providers: providers, logger: logger}
}

// Providers returns the providers in query order.
func (s *Source) Providers() []Provider {
	if s == nil {
		return nil
	}
	return append([]Provider(nil), s.providers...)
}

// Fetch queries every provider concurrently and returns the merged, ranked
// candidates. Results keep provider order, then the order each provider
// returned. Any provider error fails the whole fetch.
func (s *Source) Fetch(ctx context.Context, doc host.Document, rng protocol.Range, diagnostics []protocol.Diagnostic) ([]Candidate, error) {
	if s == nil || len(s.providers) == 0 {
		return nil, nil
	}
	slots := make([][]protocol.CodeAction, len(s.providers))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range s.providers {
		g.Go(func() error {
			found, err := p.CodeActions(gctx, doc, rng, diagnostics)
			if err != nil {
				return fmt.Errorf("provider %s: %w", p.ID(), err)
			}
			slots[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []Candidate
	for i, found := range slots {
		id := s.providers[i].ID()
		for _, action := range found {
			merged = append(merged, FromCodeAction(id, action))
		}
	}
	s.logger.Debug("fetched code actions", "uri", doc.URI, "count", len(merged))
	return Rank(merged), nil
}

// FetchAt resolves the current document and range from editor, collects the
// diagnostics in range and fetches. It returns no candidates when the
// current buffer is not a document.
func (s *Source) FetchAt(ctx context.Context, editor host.Editor, diags host.Diagnostics, mode string) ([]Candidate, error) {
	doc, ok, err := editor.Document(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve document: %w", err)
	}
	if !ok {
		return nil, nil
	}
	rng, err := ResolveRange(ctx, editor, mode)
	if err != nil {
		return nil, err
	}
	var inRange []protocol.Diagnostic
	if diags != nil {
		inRange = diags.InRange(ctx, doc.URI, rng)
	}
	return s.Fetch(ctx, doc, rng, inRange)
}

// Rank moves preferred candidates ahead of the rest. Order within each group
// is unchanged.
func Rank(candidates []Candidate) []Candidate {
	if len(candidates) == 0 {
		return nil
	}
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.IsPreferred {
			out = append(out, c)
		}
	}
	for _, c := range candidates {
		if !c.IsPreferred {
			out = append(out, c)
		}
	}
	return out
}

// ResolveRange picks the range to query: the selection of mode when mode is
// set and a selection exists, else the word under the cursor, else the whole
// cursor line up to the start of the next one.
func ResolveRange(ctx context.Context, editor host.Editor, mode string) (protocol.Range, error) {
	if mode != "" {
		rng, ok, err := editor.Selection(ctx, mode)
		if err != nil {
			return protocol.Range{}, fmt.Errorf("resolve selection: %w", err)
		}
		if ok {
			return rng, nil
		}
	}
	rng, ok, err := editor.WordRange(ctx)
	if err != nil {
		return protocol.Range{}, fmt.Errorf("resolve word range: %w", err)
	}
	if ok {
		return rng, nil
	}
	pos, err := editor.Cursor(ctx)
	if err != nil {
		return protocol.Range{}, fmt.Errorf("resolve cursor: %w", err)
	}
	return protocol.Range{
		Start: protocol.Position{Line: pos.Line, Character: 0},
		End:   protocol.Position{Line: pos.Line + 1, Character: 0},
	}, nil
}
