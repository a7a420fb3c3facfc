package scroll

import "testing"

func TestWindow_Reveal(t *testing.T) {
	tests := []struct {
		name string
		in   Window
		line int
		want int
	}{
		{name: "already visible", in: Window{Offset: 2, Height: 3, Count: 10}, line: 3, want: 2},
		{name: "above", in: Window{Offset: 5, Height: 3, Count: 10}, line: 1, want: 1},
		{name: "below", in: Window{Offset: 0, Height: 3, Count: 10}, line: 6, want: 4},
		{name: "past end", in: Window{Offset: 0, Height: 3, Count: 10}, line: 40, want: 7},
		{name: "empty", in: Window{Offset: 4, Height: 3}, line: 2, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Reveal(tt.line).Offset; got != tt.want {
				t.Fatalf("offset = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWindow_ClampAndRows(t *testing.T) {
	w := Window{Offset: 9, Height: 4, Count: 6}.Clamp()
	if w.Offset != 2 {
		t.Fatalf("offset = %d, want 2", w.Offset)
	}
	first, last := w.Rows()
	if first != 2 || last != 6 {
		t.Fatalf("rows = [%d,%d), want [2,6)", first, last)
	}

	short := Window{Height: 10, Count: 3}
	if first, last := short.Rows(); first != 0 || last != 3 {
		t.Fatalf("rows = [%d,%d), want [0,3)", first, last)
	}
}

func TestWindow_By(t *testing.T) {
	w := Window{Height: 2, Count: 5}
	if got := w.By(10).Offset; got != 3 {
		t.Fatalf("offset = %d, want 3", got)
	}
	if got := w.By(-1).Offset; got != 0 {
		t.Fatalf("offset = %d, want 0", got)
	}
	if !w.By(1).Visible(2) || w.By(1).Visible(0) {
		t.Fatalf("unexpected visibility after scroll")
	}
}
