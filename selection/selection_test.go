package selection

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/odvcencio/furry-actions/actions"
	"github.com/odvcencio/furry-actions/host/hosttest"
)

func openController(t *testing.T, titles ...string) (*Controller, *hosttest.Surface) {
	t.Helper()
	ctx := context.Background()
	surface := &hosttest.Surface{}
	if err := surface.SetLines(ctx, titles); err != nil {
		t.Fatalf("set lines: %v", err)
	}
	candidates := make([]actions.Candidate, len(titles))
	for i, title := range titles {
		candidates[i] = actions.Candidate{Title: title}
	}
	c := New(surface, false)
	opened, err := c.Open(ctx, candidates)
	if err != nil || !opened {
		t.Fatalf("open = %v, %v", opened, err)
	}
	return c, surface
}

func TestOpen_EmptyStaysClosed(t *testing.T) {
	surface := &hosttest.Surface{}
	c := New(surface, false)
	opened, err := c.Open(context.Background(), nil)
	if err != nil || opened {
		t.Fatalf("open = %v, %v", opened, err)
	}
	if c.IsOpen() {
		t.Fatalf("expected closed")
	}
	if got := surface.Highlights(Namespace); len(got) != 0 {
		t.Fatalf("unexpected highlights %v", got)
	}
}

func TestOpen_PaintsFirstRow(t *testing.T) {
	c, surface := openController(t, "a", "b")
	if !c.IsOpen() || c.Index().Get() != 0 {
		t.Fatalf("open=%v index=%d", c.IsOpen(), c.Index().Get())
	}
	want := []hosttest.Highlight{{Line: 0, Group: GroupSelected}}
	if diff := cmp.Diff(want, surface.Highlights(Namespace)); diff != "" {
		t.Fatalf("highlights (-want +got):\n%s", diff)
	}
}

func TestNextSync_MovesSingleBand(t *testing.T) {
	ctx := context.Background()
	c, surface := openController(t, "a", "b", "c")

	var seen []int
	unsubscribe := c.Index().Subscribe(func(i int) { seen = append(seen, i) })
	defer unsubscribe()

	for range 5 {
		if err := c.Next(ctx); err != nil {
			t.Fatalf("next: %v", err)
		}
		if err := c.Sync(ctx); err != nil {
			t.Fatalf("sync: %v", err)
		}
	}
	if c.Index().Get() != 2 {
		t.Fatalf("index = %d, want 2 (clamped by surface)", c.Index().Get())
	}
	want := []hosttest.Highlight{{Line: 2, Group: GroupSelected}}
	if diff := cmp.Diff(want, surface.Highlights(Namespace)); diff != "" {
		t.Fatalf("highlights (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 2}, seen); diff != "" {
		t.Fatalf("index changes (-want +got):\n%s", diff)
	}

	if err := c.Prev(ctx); err != nil {
		t.Fatalf("prev: %v", err)
	}
	if err := c.Sync(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if c.Index().Get() != 1 {
		t.Fatalf("index = %d, want 1", c.Index().Get())
	}
}

func TestSync_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	c, surface := openController(t, "a", "b", "c", "d")
	for _, line := range []int{3, 1, 2} {
		surface.SetCursorLine(line)
		if err := c.Sync(ctx); err != nil {
			t.Fatalf("sync: %v", err)
		}
	}
	want := []hosttest.Highlight{{Line: 2, Group: GroupSelected}}
	if diff := cmp.Diff(want, surface.Highlights(Namespace)); diff != "" {
		t.Fatalf("highlights (-want +got):\n%s", diff)
	}
}

func TestSync_NativeCursorLineSkipsBand(t *testing.T) {
	ctx := context.Background()
	c, surface := openController(t, "a", "b")
	_ = surface.ClearHighlight(ctx, Namespace)
	c.SetUseCursorLine(true)

	surface.SetCursorLine(1)
	if err := c.Sync(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if c.Index().Get() != 1 {
		t.Fatalf("index = %d, want 1", c.Index().Get())
	}
	if got := surface.Highlights(Namespace); len(got) != 0 {
		t.Fatalf("unexpected highlights %v", got)
	}
}

func TestConfirm_ResolvesCursorRowAndCloses(t *testing.T) {
	ctx := context.Background()
	c, surface := openController(t, "a", "b", "c")
	surface.SetCursorLine(1)

	got, ok, err := c.Confirm(ctx)
	if err != nil || !ok {
		t.Fatalf("confirm = %v, %v", ok, err)
	}
	if got.Title != "b" {
		t.Fatalf("confirmed %q, want b", got.Title)
	}
	if c.IsOpen() {
		t.Fatalf("expected closed after confirm")
	}
	if _, ok, _ := c.Confirm(ctx); ok {
		t.Fatalf("second confirm resolved a candidate")
	}
}

func TestConfirm_RowWithoutCandidate(t *testing.T) {
	c, surface := openController(t, "a")
	surface.SetCursorLine(4)
	if _, ok, err := c.Confirm(context.Background()); ok || err != nil {
		t.Fatalf("confirm = %v, %v", ok, err)
	}
	if c.IsOpen() {
		t.Fatalf("expected closed")
	}
}

func TestClosed_OperationsAreNoOps(t *testing.T) {
	ctx := context.Background()
	surface := &hosttest.Surface{}
	_ = surface.SetLines(ctx, []string{"a", "b"})
	c := New(surface, false)

	if err := c.Next(ctx); err != nil {
		t.Fatalf("next: %v", err)
	}
	if err := c.Sync(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if line, _ := surface.CursorLine(ctx); line != 0 {
		t.Fatalf("closed controller moved the cursor to %d", line)
	}
	if got := surface.Highlights(Namespace); got != nil {
		t.Fatalf("closed controller painted %v", got)
	}
	if c.Cancel() {
		t.Fatalf("cancel reported open")
	}

	var nilController *Controller
	if nilController.IsOpen() || nilController.Cancel() {
		t.Fatalf("nil controller reported open")
	}
}

func TestCancelAndDispose(t *testing.T) {
	ctx := context.Background()
	c, surface := openController(t, "a", "b")
	surface.SetCursorLine(1)
	_ = c.Sync(ctx)

	if !c.Cancel() {
		t.Fatalf("cancel reported closed")
	}
	if len(c.Candidates()) != 0 {
		t.Fatalf("candidates kept after cancel")
	}

	c.Dispose()
	if c.IsOpen() || c.Index().Get() != 0 {
		t.Fatalf("dispose left open=%v index=%d", c.IsOpen(), c.Index().Get())
	}
}
