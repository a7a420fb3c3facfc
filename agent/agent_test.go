package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/odvcencio/furry-actions/backend"
	"github.com/odvcencio/furry-actions/backend/sim"
	"github.com/odvcencio/furry-actions/runtime"
	"github.com/odvcencio/furry-actions/terminal"
	"github.com/odvcencio/furry-actions/widgets"
)

type testInput struct {
	bounds  runtime.Rect
	focused bool
	value   string
}

func (t *testInput) Layout(bounds runtime.Rect) {
	t.bounds = bounds
}

func (t *testInput) Render(ctx runtime.RenderContext) {
	if ctx.Buffer == nil {
		return
	}
	ctx.Buffer.Fill(t.bounds, ' ', backend.DefaultStyle())
	ctx.Buffer.SetString(t.bounds.X, t.bounds.Y, "> "+t.value, backend.DefaultStyle())
}

func (t *testInput) HandleMessage(msg runtime.Message) runtime.HandleResult {
	if !t.focused {
		return runtime.Unhandled()
	}
	key, ok := msg.(runtime.KeyMsg)
	if !ok {
		return runtime.Unhandled()
	}
	switch key.Key {
	case terminal.KeyBackspace:
		if len(t.value) > 0 {
			t.value = t.value[:len(t.value)-1]
		}
		return runtime.Handled()
	case terminal.KeyRune:
		if key.Rune != 0 && !key.Ctrl {
			t.value += string(key.Rune)
			return runtime.Handled()
		}
	}
	return runtime.Unhandled()
}

func (t *testInput) Bounds() runtime.Rect { return t.bounds }
func (t *testInput) IsFocused() bool      { return t.focused }

func newAgent(t *testing.T) (*Agent, *testInput) {
	t.Helper()
	be := sim.New(30, 4)
	input := &testInput{focused: true}
	root := widgets.NewColumn(
		widgets.ColumnChild{Widget: input, Height: 1},
		widgets.ColumnChild{Widget: widgets.NewTextView("status")},
	)
	app := runtime.NewApp(runtime.AppConfig{Backend: be, Root: root})
	a := New(Config{App: app, Sim: be})
	if err := a.Start(context.Background(), nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() {
		if err := a.Stop(); err != nil {
			t.Errorf("stop: %v", err)
		}
	})
	return a, input
}

func TestAgent_TypeAndWait(t *testing.T) {
	a, _ := newAgent(t)

	a.Type("hey")
	if err := a.WaitFor("> hey"); err != nil {
		t.Fatal(err)
	}
	if err := a.Press("<BS>", "<BS>"); err != nil {
		t.Fatalf("press: %v", err)
	}
	if err := a.WaitGone("> hey"); err != nil {
		t.Fatal(err)
	}
	if err := a.WaitFor("> h"); err != nil {
		t.Fatal(err)
	}
	if x, y := a.FindText("status"); x != 0 || y != 1 {
		t.Fatalf("status at %d,%d", x, y)
	}
}

func TestAgent_Snapshot(t *testing.T) {
	a, _ := newAgent(t)

	snap := a.Snapshot()
	if snap.Width != 30 || snap.Height != 4 || snap.LayerCount != 1 || snap.Renders == 0 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if len(snap.Widgets) != 1 {
		t.Fatalf("widgets = %+v", snap.Widgets)
	}
	root := snap.Widgets[0]
	if root.Type != "*widgets.Column" || len(root.Children) != 2 {
		t.Fatalf("root = %+v", root)
	}
	input := root.Children[0]
	if input.Type != "*agent.testInput" || !input.Focused || input.Bounds.Height != 1 {
		t.Fatalf("input = %+v", input)
	}
	if snap.Lines[0] != ">" {
		t.Fatalf("first line = %q", snap.Lines[0])
	}
}

func TestAgent_Errors(t *testing.T) {
	a, _ := newAgent(t)
	if err := a.Press("<Nope>"); !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("press = %v", err)
	}
	if err := a.Start(context.Background(), nil); !errors.Is(err, ErrRunning) {
		t.Fatalf("second start = %v", err)
	}
	if err := New(Config{}).Start(context.Background(), nil); !errors.Is(err, ErrNoApp) {
		t.Fatalf("start without app = %v", err)
	}
}

func TestAgent_StopWithoutStart(t *testing.T) {
	if err := New(Config{}).Stop(); err != nil {
		t.Fatalf("stop = %v", err)
	}
}
