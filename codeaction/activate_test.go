package codeaction

import (
	"context"
	"errors"
	"testing"

	"github.com/odvcencio/furry-actions/actions"
	"github.com/odvcencio/furry-actions/host"
	"github.com/odvcencio/furry-actions/host/hosttest"
)

func TestActivate_DeclinesUnsupportedHost(t *testing.T) {
	f := hosttest.New()
	f.Info.Variant = "gui"

	ext, err := Activate(context.Background(), f.Host(), actions.NewSource(nil), Options{})
	if !errors.Is(err, ErrUnsupportedHost) || ext != nil {
		t.Fatalf("activate = %v, %v", ext, err)
	}
	if f.Commands.Has(CommandOpen) {
		t.Fatalf("command registered on unsupported host")
	}
	msgs := f.Messenger.Messages()
	if len(msgs) != 1 || msgs[0].Level != host.LevelWarning {
		t.Fatalf("messages = %+v", msgs)
	}
}

func TestActivate_OpenCommandShowsMenu(t *testing.T) {
	f := hosttest.New()
	source := actions.NewSource(nil, &stubProvider{id: "stub", actions: sampleActions()})
	ext, err := Activate(context.Background(), f.Host(), source, Options{})
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	ctx := context.Background()

	if _, err := f.Commands.Execute(ctx, CommandOpen, "", "2", "1"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if f.Windows.Count() != 1 || !f.Windows.Last().Visible() {
		t.Fatalf("menu not shown: %v", f.Log.Entries())
	}
	if pos, _ := f.Editor.Cursor(ctx); pos.Line != 1 || pos.Character != 0 {
		t.Fatalf("cursor = %+v", pos)
	}

	ext.Dispose(ctx)
	if f.Commands.Has(CommandOpen) {
		t.Fatalf("command still registered after dispose")
	}
	if !f.Windows.Last().Released() {
		t.Fatalf("surface not released")
	}
}

func TestActivate_RequiresWindows(t *testing.T) {
	f := hosttest.New()
	h := f.Host()
	h.Windows = nil
	if _, err := Activate(context.Background(), h, actions.NewSource(nil), Options{}); !errors.Is(err, ErrNoSurface) {
		t.Fatalf("err = %v, want ErrNoSurface", err)
	}
}

func TestRequestFromArgs(t *testing.T) {
	got := requestFromArgs([]any{"v", 12, nil})
	if got != (OpenRequest{SelectionMode: "v", Line: "12"}) {
		t.Fatalf("request = %+v", got)
	}
	if requestFromArgs(nil) != (OpenRequest{}) {
		t.Fatalf("empty args produced a request")
	}
}

func TestFlatten(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"plain text", "plain text"},
		{"Run `go mod tidy` now", "Run go mod tidy now"},
		{"**bold** and _soft_\nbreak", "bold and soft break"},
		{"# Title\n\nBody [link](http://x)", "Title Body link"},
		{"Execute 'gopls.tidy' error: boom", "Execute 'gopls.tidy' error: boom"},
	}
	for _, tt := range tests {
		if got := Flatten(tt.in); got != tt.want {
			t.Fatalf("Flatten(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
