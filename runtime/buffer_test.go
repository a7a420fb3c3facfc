package runtime

import (
	"testing"

	"github.com/odvcencio/furry-actions/backend"
)

func TestBuffer_SetStringWide(t *testing.T) {
	buf := NewBuffer(6, 1)
	buf.ClearDirty()

	n := buf.SetString(0, 0, "a世b", backend.DefaultStyle())
	if n != 4 {
		t.Fatalf("columns = %d, want 4", n)
	}
	if got := buf.Get(2, 0).Rune; got != 0 {
		t.Fatalf("continuation cell = %q, want 0", got)
	}
	if got := buf.Row(0); got != "a世b  " {
		t.Fatalf("row = %q", got)
	}
	if !buf.IsRowDirty(0) {
		t.Fatalf("expected row to be dirty")
	}
}

func TestBuffer_SetStringClipsWideAtEdge(t *testing.T) {
	buf := NewBuffer(3, 1)
	buf.SetString(0, 0, "ab世", backend.DefaultStyle())
	if got := buf.Row(0); got != "ab " {
		t.Fatalf("row = %q, want %q", got, "ab ")
	}
}

func TestBuffer_DirtyRows(t *testing.T) {
	buf := NewBuffer(4, 3)
	buf.ClearDirty()
	if buf.IsDirty() {
		t.Fatalf("expected clean buffer")
	}

	buf.Set(1, 2, 'x', backend.DefaultStyle())
	buf.Set(1, 2, 'x', backend.DefaultStyle())
	var rows []int
	buf.ForEachDirtyRow(func(y int, cells []Cell) {
		rows = append(rows, y)
		if len(cells) != 4 {
			t.Fatalf("row width = %d", len(cells))
		}
	})
	if len(rows) != 1 || rows[0] != 2 {
		t.Fatalf("dirty rows = %v, want [2]", rows)
	}

	buf.ClearDirty()
	buf.Set(1, 2, 'x', backend.DefaultStyle())
	if buf.IsDirty() {
		t.Fatalf("rewriting the same cell should not dirty the row")
	}
}

func TestBuffer_FillClipsToBounds(t *testing.T) {
	buf := NewBuffer(3, 2)
	buf.Fill(Rect{X: 1, Y: 1, Width: 10, Height: 10}, '#', backend.DefaultStyle())
	if buf.Row(0) != "   " || buf.Row(1) != " ##" {
		t.Fatalf("rows = %q %q", buf.Row(0), buf.Row(1))
	}
}
