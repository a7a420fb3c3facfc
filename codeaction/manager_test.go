package codeaction

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/odvcencio/furry-actions/actions"
	"github.com/odvcencio/furry-actions/host"
	"github.com/odvcencio/furry-actions/host/hosttest"
	"github.com/odvcencio/furry-actions/selection"
)

type stubProvider struct {
	id      string
	actions []protocol.CodeAction
	err     error
}

func (p *stubProvider) ID() string { return p.id }

func (p *stubProvider) CodeActions(context.Context, host.Document, protocol.Range, []protocol.Diagnostic) ([]protocol.CodeAction, error) {
	return p.actions, p.err
}

func kind(k string) *protocol.CodeActionKind {
	v := protocol.CodeActionKind(k)
	return &v
}

func boolPtr(b bool) *bool { return &b }

func sampleActions() []protocol.CodeAction {
	return []protocol.CodeAction{
		{Title: "Refactor", Kind: kind("refactor"), Command: &protocol.Command{Command: "test.refactor"}},
		{Title: "Quick fix", Kind: kind("quickfix"), IsPreferred: boolPtr(true), Command: &protocol.Command{Command: "test.fix"}},
	}
}

type harness struct {
	f        *hosttest.Fixture
	provider *stubProvider
	m        *Manager
	executed atomic.Int32
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{f: hosttest.New(), provider: &stubProvider{id: "stub", actions: sampleActions()}}
	for _, id := range []string{"test.fix", "test.refactor"} {
		if _, err := h.f.Commands.Register(id, func(context.Context, ...any) (any, error) {
			h.executed.Add(1)
			return nil, nil
		}); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
	}
	h.m = NewManager(h.f.Host(), actions.NewSource(nil, h.provider), Options{})
	return h
}

func (h *harness) open(t *testing.T) {
	t.Helper()
	if err := h.m.Open(context.Background(), OpenRequest{}); err != nil {
		t.Fatalf("open: %v", err)
	}
}

func TestOpen_EmptyListCreatesNothing(t *testing.T) {
	h := newHarness(t)
	h.provider.actions = nil
	h.open(t)

	if h.f.Windows.Count() != 0 {
		t.Fatalf("surface created for empty list")
	}
	if h.f.Bindings.Bound != 0 || h.m.Armed() {
		t.Fatalf("reactions registered for empty list")
	}
	if _, ok := h.m.Session(); ok {
		t.Fatalf("session created for empty list")
	}
}

func TestOpen_ShowsRankedRows(t *testing.T) {
	h := newHarness(t)
	h.open(t)

	surface := h.f.Windows.Last()
	want := []string{
		" Quick fix  [quickfix]",
		" Refactor   [refactor]",
	}
	if diff := cmp.Diff(want, surface.Lines()); diff != "" {
		t.Fatalf("rows (-want +got):\n%s", diff)
	}
	wantLog := []string{
		"newsurface",
		"setlines 2",
		"show below 22x2",
		"option guicursor=n-v-c:block," + transparentCursor,
	}
	if diff := cmp.Diff(wantLog, h.f.Log.Entries()); diff != "" {
		t.Fatalf("log (-want +got):\n%s", diff)
	}
	if got := surface.Highlights(selection.Namespace); len(got) != 1 || got[0].Line != 0 {
		t.Fatalf("highlights = %v", got)
	}
	session, ok := h.m.Session()
	if !ok || len(session.Candidates) != 2 || session.Plan.Anchor != host.AnchorBelow {
		t.Fatalf("session = %+v, %v", session, ok)
	}
}

func TestOpen_TwiceArmsOnce(t *testing.T) {
	h := newHarness(t)
	h.open(t)
	bound := h.f.Bindings.Bound
	first, _ := h.m.Session()

	h.open(t)
	second, _ := h.m.Session()

	if bound != 7 || h.f.Bindings.Bound != bound {
		t.Fatalf("bound %d then %d, want 7 once", bound, h.f.Bindings.Bound)
	}
	if h.f.Windows.Count() != 1 {
		t.Fatalf("surfaces created = %d, want 1", h.f.Windows.Count())
	}
	if first.ID == second.ID {
		t.Fatalf("reopen kept the session id")
	}
	if h.f.Log.Count("hide") != 1 {
		t.Fatalf("reopen did not close the previous session")
	}
}

func TestClose_Idempotent(t *testing.T) {
	h := newHarness(t)
	h.open(t)
	ctx := context.Background()

	h.m.Close(ctx)
	after := h.f.Log.Entries()
	h.m.Close(ctx)

	if diff := cmp.Diff(after, h.f.Log.Entries()); diff != "" {
		t.Fatalf("second close changed state (-first +second):\n%s", diff)
	}
	if h.f.Log.Count("hide") != 1 || h.f.Log.Count("clear") != 1 || h.f.Log.Count("release") != 0 {
		t.Fatalf("log = %v", after)
	}
	if got, _ := h.f.Editor.Option(ctx, OptionCursor); got != "n-v-c:block" {
		t.Fatalf("cursor shape = %q, want restored", got)
	}
	if h.f.Windows.Last().Visible() {
		t.Fatalf("surface still visible")
	}
}

func TestConfirm_DispatchesAfterHide(t *testing.T) {
	h := newHarness(t)
	h.open(t)

	h.f.Bindings.Press("<C-n>")
	h.f.Bindings.Fire(host.EventCursorMoved)
	if got := h.m.Selected().Get(); got != 1 {
		t.Fatalf("selected = %d, want 1", got)
	}
	h.f.Bindings.Press("<CR>")

	if h.executed.Load() != 0 {
		t.Fatalf("dispatched before redraw")
	}
	if h.f.Scheduler.Pending() != 1 {
		t.Fatalf("pending = %d, want 1", h.f.Scheduler.Pending())
	}
	h.f.Scheduler.Flush()
	h.m.Wait()

	hide := h.f.Log.Index("hide")
	exec := h.f.Log.Index("execute test.refactor")
	if hide < 0 || exec < 0 || hide > exec {
		t.Fatalf("hide at %d, execute at %d: %v", hide, exec, h.f.Log.Entries())
	}
	if _, ok := h.m.Session(); ok {
		t.Fatalf("session still live after confirm")
	}
}

func TestConfirm_TimerFallbackWithoutScheduler(t *testing.T) {
	f := hosttest.New()
	hostWithoutScheduler := f.Host()
	hostWithoutScheduler.Scheduler = nil
	done := make(chan struct{})
	if _, err := f.Commands.Register("test.fix", func(context.Context, ...any) (any, error) {
		close(done)
		return nil, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	m := NewManager(hostWithoutScheduler, actions.NewSource(nil, &stubProvider{id: "stub", actions: sampleActions()}), Options{DispatchDelay: time.Millisecond})
	if err := m.Open(context.Background(), OpenRequest{}); err != nil {
		t.Fatalf("open: %v", err)
	}
	f.Bindings.Press("<CR>")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("dispatch never ran")
	}
	m.Wait()
}

func TestCancel_NeverDispatches(t *testing.T) {
	for _, trigger := range []func(h *harness){
		func(h *harness) { h.f.Bindings.Press("<Esc>") },
		func(h *harness) { h.f.Bindings.Fire(host.EventBufLeave) },
		func(h *harness) { h.f.Bindings.Fire(host.EventWinLeave) },
	} {
		h := newHarness(t)
		h.open(t)
		trigger(h)

		if _, ok := h.m.Session(); ok {
			t.Fatalf("session still live after cancel")
		}
		// A stale confirm after cancel must not dispatch either.
		h.f.Bindings.Press("<CR>")
		h.f.Scheduler.Flush()
		h.m.Wait()
		if h.executed.Load() != 0 || h.f.Log.Count("execute") != 0 {
			t.Fatalf("cancel dispatched: %v", h.f.Log.Entries())
		}
	}
}

func TestReopen_ReplacesRows(t *testing.T) {
	h := newHarness(t)
	h.open(t)
	h.m.Close(context.Background())

	h.provider.actions = []protocol.CodeAction{{Title: "Organize imports"}}
	h.open(t)

	want := []string{" Organize imports  [-]"}
	if diff := cmp.Diff(want, h.f.Windows.Last().Lines()); diff != "" {
		t.Fatalf("rows (-want +got):\n%s", diff)
	}
	if h.f.Windows.Count() != 1 {
		t.Fatalf("surface not reused")
	}
}

func TestDispose_ReleasesEverything(t *testing.T) {
	h := newHarness(t)
	h.open(t)
	surface := h.f.Windows.Last()
	ctx := context.Background()

	h.m.Dispose(ctx)
	if !surface.Released() {
		t.Fatalf("surface not released")
	}
	if h.f.Bindings.Active() != 0 || h.m.Armed() {
		t.Fatalf("reactions left: %d", h.f.Bindings.Active())
	}
	if got, _ := h.f.Editor.Option(ctx, OptionCursor); got != "n-v-c:block" {
		t.Fatalf("cursor shape = %q, want restored", got)
	}
	if h.f.Bindings.Press("<CR>") {
		t.Fatalf("confirm still bound after dispose")
	}

	h.m.Dispose(ctx)
	h.open(t)
	if h.f.Windows.Count() != 2 || !h.m.Armed() {
		t.Fatalf("reopen after dispose: surfaces=%d armed=%v", h.f.Windows.Count(), h.m.Armed())
	}
}

func TestOpen_FetchFailureIsReported(t *testing.T) {
	h := newHarness(t)
	h.provider.err = errors.New("boom")

	if err := h.m.Open(context.Background(), OpenRequest{}); err == nil {
		t.Fatalf("expected error")
	}
	msgs := h.f.Messenger.Messages()
	if len(msgs) != 1 || msgs[0].Level != host.LevelError || msgs[0].Text != "Fetch code actions failed: provider stub: boom" {
		t.Fatalf("messages = %+v", msgs)
	}
	if h.f.Windows.Count() != 0 {
		t.Fatalf("surface created after failed fetch")
	}
}

func TestOpen_MovesCursorFirst(t *testing.T) {
	h := newHarness(t)
	if err := h.m.Open(context.Background(), OpenRequest{Line: "3", Column: "5"}); err != nil {
		t.Fatalf("open: %v", err)
	}
	if entries := h.f.Log.Entries(); len(entries) == 0 || entries[0] != "cursor 2:4" {
		t.Fatalf("log = %v", entries)
	}
}

func TestOpen_OldHostKeepsCursor(t *testing.T) {
	h := newHarness(t)
	h.f.Info.Version = "0.3.9"
	h.m = NewManager(h.f.Host(), actions.NewSource(nil, h.provider), Options{})
	h.open(t)
	if h.f.Log.Count("option") != 0 {
		t.Fatalf("cursor overridden on old host: %v", h.f.Log.Entries())
	}
}

func TestOpen_UseCursorLineSkipsBand(t *testing.T) {
	h := newHarness(t)
	h.f.Config["actions.useCursorLine"] = true
	h.open(t)

	surface := h.f.Windows.Last()
	if got := surface.Highlights(selection.Namespace); len(got) != 0 {
		t.Fatalf("band painted with native cursor line: %v", got)
	}
	if !surface.Placement().Options.CursorLine {
		t.Fatalf("native cursor line not enabled")
	}
	if diff := cmp.Diff([]string{" Quick fix  [quickfix]", " Refactor   [refactor]"}, surface.Lines()); diff != "" {
		t.Fatalf("rows (-want +got):\n%s", diff)
	}
}

func TestSupportsCursorOverride(t *testing.T) {
	tests := []struct {
		version string
		want    bool
	}{
		{"0.4.0", true},
		{"v0.10.2", true},
		{"0.3.9", false},
		{"", false},
		{"nightly", false},
	}
	for _, tt := range tests {
		if got := SupportsCursorOverride(tt.version); got != tt.want {
			t.Fatalf("SupportsCursorOverride(%q) = %v, want %v", tt.version, got, tt.want)
		}
	}
}

func TestOpen_RebindsChangedKeys(t *testing.T) {
	h := newHarness(t)
	h.open(t)
	h.m.Close(context.Background())

	h.f.Config["actions.keys.confirm"] = "<Tab>"
	h.open(t)

	if h.f.Bindings.Active() != 7 {
		t.Fatalf("active bindings = %d, want 7", h.f.Bindings.Active())
	}
	if h.f.Bindings.Press("<CR>") {
		t.Fatalf("old confirm key still bound")
	}
	if !h.f.Bindings.Press("<Tab>") {
		t.Fatalf("new confirm key not bound")
	}
	h.f.Scheduler.Flush()
	h.m.Wait()
	if h.executed.Load() != 1 {
		t.Fatalf("executed = %d, want 1", h.executed.Load())
	}

	// Unchanged keys are not bound again.
	bound := h.f.Bindings.Bound
	h.open(t)
	if h.f.Bindings.Bound != bound {
		t.Fatalf("bound %d then %d", bound, h.f.Bindings.Bound)
	}
}

func TestClose_LogsOpenDuration(t *testing.T) {
	var buf bytes.Buffer
	f := hosttest.New()
	provider := &stubProvider{id: "stub", actions: sampleActions()}
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	m := NewManager(f.Host(), actions.NewSource(nil, provider), Options{Logger: logger})
	ctx := context.Background()

	if err := m.Open(ctx, OpenRequest{}); err != nil {
		t.Fatalf("open: %v", err)
	}
	session, _ := m.Session()
	if session.Opened.IsZero() {
		t.Fatalf("session has no open time")
	}
	m.Close(ctx)

	var closed string
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, `msg="menu closed"`) {
			closed = line
		}
	}
	if !strings.Contains(closed, "session="+session.ID.String()) || !strings.Contains(closed, " open=") {
		t.Fatalf("close log = %q", closed)
	}
}
