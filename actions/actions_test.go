package actions

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/odvcencio/furry-actions/host"
	"github.com/odvcencio/furry-actions/host/hosttest"
)

type stubProvider struct {
	id      string
	actions []protocol.CodeAction
	err     error
	delay   time.Duration
	gotRng  protocol.Range
	gotDiag []protocol.Diagnostic
}

func (p *stubProvider) ID() string { return p.id }

func (p *stubProvider) CodeActions(ctx context.Context, _ host.Document, rng protocol.Range, diags []protocol.Diagnostic) ([]protocol.CodeAction, error) {
	p.gotRng, p.gotDiag = rng, diags
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return p.actions, p.err
}

func action(title string, preferred bool) protocol.CodeAction {
	a := protocol.CodeAction{Title: title}
	if preferred {
		a.IsPreferred = &preferred
	}
	return a
}

func titlesOf(cs []Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ProviderID + ":" + c.Title
	}
	return out
}

func TestRank_StablePartition(t *testing.T) {
	in := []Candidate{
		{Title: "a"},
		{Title: "b", IsPreferred: true},
		{Title: "c"},
		{Title: "d", IsPreferred: true},
		{Title: "e"},
	}
	var got []string
	for _, c := range Rank(in) {
		got = append(got, c.Title)
	}
	if diff := cmp.Diff([]string{"b", "d", "a", "c", "e"}, got); diff != "" {
		t.Fatalf("rank mismatch (-want +got):\n%s", diff)
	}
	if Rank(nil) != nil {
		t.Fatalf("expected nil for empty input")
	}
}

func TestFetch_ProviderOrderThenRank(t *testing.T) {
	slow := &stubProvider{id: "slow", delay: 20 * time.Millisecond, actions: []protocol.CodeAction{
		action("s1", false), action("s2", true),
	}}
	fast := &stubProvider{id: "fast", actions: []protocol.CodeAction{
		action("f1", false), action("f2", true),
	}}
	src := NewSource(nil, slow, fast)

	got, err := src.Fetch(context.Background(), host.Document{URI: "file:///a.go"}, protocol.Range{}, nil)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	want := []string{"slow:s2", "fast:f2", "slow:s1", "fast:f1"}
	if diff := cmp.Diff(want, titlesOf(got)); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestFetch_ErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	src := NewSource(nil,
		&stubProvider{id: "ok", actions: []protocol.CodeAction{action("x", false)}},
		&stubProvider{id: "bad", err: boom},
	)
	got, err := src.Fetch(context.Background(), host.Document{}, protocol.Range{}, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if !strings.Contains(err.Error(), "provider bad") {
		t.Fatalf("error should name the provider: %v", err)
	}
	if got != nil {
		t.Fatalf("expected no candidates on error, got %v", got)
	}
}

func TestFetch_EmptyIsNotAnError(t *testing.T) {
	src := NewSource(nil, &stubProvider{id: "a"}, &stubProvider{id: "b", actions: []protocol.CodeAction{}})
	got, err := src.Fetch(context.Background(), host.Document{}, protocol.Range{}, nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("got %v, %v; want no candidates and no error", got, err)
	}

	var none *Source
	if got, err := none.Fetch(context.Background(), host.Document{}, protocol.Range{}, nil); got != nil || err != nil {
		t.Fatalf("nil source should fetch nothing")
	}
}

func TestFromCodeAction(t *testing.T) {
	kind := protocol.CodeActionKind("quickfix")
	preferred := true
	edit := &protocol.WorkspaceEdit{}
	cmd := &protocol.Command{Title: "t", Command: "go.fix"}
	disabled := struct {
		Reason string `json:"reason"`
	}{Reason: "not now"}
	c := FromCodeAction("gopls", protocol.CodeAction{
		Title:       "Fix it",
		Kind:        &kind,
		IsPreferred: &preferred,
		Disabled:    &disabled,
		Edit:        edit,
		Command:     cmd,
	})
	if c.ProviderID != "gopls" || c.Kind != "quickfix" || !c.IsPreferred || c.Disabled != "not now" || c.Edit != edit || c.Command != cmd {
		t.Fatalf("unexpected candidate %+v", c)
	}
}

func TestResolveRange(t *testing.T) {
	ctx := context.Background()
	sel := protocol.Range{Start: protocol.Position{Line: 1, Character: 2}, End: protocol.Position{Line: 3, Character: 0}}
	word := protocol.Range{Start: protocol.Position{Line: 4, Character: 1}, End: protocol.Position{Line: 4, Character: 5}}

	fx := hosttest.New()
	fx.Editor.Pos = protocol.Position{Line: 4, Character: 3}
	fx.Editor.Selections = map[string]protocol.Range{"v": sel}
	fx.Editor.Word = &word

	tests := []struct {
		name string
		mode string
		word bool
		want protocol.Range
	}{
		{name: "selection", mode: "v", word: true, want: sel},
		{name: "missing selection falls back to word", mode: "V", word: true, want: word},
		{name: "word", word: true, want: word},
		{name: "whole line", want: protocol.Range{
			Start: protocol.Position{Line: 4},
			End:   protocol.Position{Line: 5},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx.Editor.Word = nil
			if tt.word {
				fx.Editor.Word = &word
			}
			got, err := ResolveRange(ctx, fx.Editor, tt.mode)
			if err != nil {
				t.Fatalf("ResolveRange: %v", err)
			}
			if got != tt.want {
				t.Fatalf("range = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFetchAt_PassesDiagnosticsAndSkipsNonDocuments(t *testing.T) {
	ctx := context.Background()
	fx := hosttest.New()
	diag := protocol.Diagnostic{Message: "unused"}
	fx.Diagnostics.List = []protocol.Diagnostic{diag}
	p := &stubProvider{id: "p", actions: []protocol.CodeAction{action("x", false)}}
	src := NewSource(nil, p)

	got, err := src.FetchAt(ctx, fx.Editor, fx.Diagnostics, "")
	if err != nil || len(got) != 1 {
		t.Fatalf("got %v, %v", got, err)
	}
	if len(p.gotDiag) != 1 || p.gotDiag[0].Message != "unused" {
		t.Fatalf("diagnostics not forwarded: %+v", p.gotDiag)
	}
	if len(fx.Diagnostics.Queries) != 1 || fx.Diagnostics.Queries[0] != p.gotRng {
		t.Fatalf("diagnostics queried for %+v, provider got %+v", fx.Diagnostics.Queries, p.gotRng)
	}

	fx.Editor.HasDoc = false
	if got, err := src.FetchAt(ctx, fx.Editor, fx.Diagnostics, ""); got != nil || err != nil {
		t.Fatalf("expected nothing without a document, got %v, %v", got, err)
	}
}
