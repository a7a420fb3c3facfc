package widgets

import "github.com/odvcencio/furry-actions/runtime"

// ColumnChild is one row band of a Column. Height 0 means the band takes
// whatever the fixed bands leave over.
type ColumnChild struct {
	Widget runtime.Widget
	Height int
}

// Column stacks children top to bottom and routes input to them in order.
type Column struct {
	Base
	Children []ColumnChild
}

// NewColumn creates a column.
func NewColumn(children ...ColumnChild) *Column {
	return &Column{Children: children}
}

// Layout splits bounds between children.
func (c *Column) Layout(bounds runtime.Rect) {
	if c == nil {
		return
	}
	c.Base.Layout(bounds)
	fixed, flex := 0, 0
	for _, child := range c.Children {
		if child.Height > 0 {
			fixed += child.Height
		} else {
			flex++
		}
	}
	spare := max(bounds.Height-fixed, 0)
	y := bounds.Y
	for _, child := range c.Children {
		h := child.Height
		if h <= 0 {
			h = spare / max(flex, 1)
		}
		h = min(h, bounds.Y+bounds.Height-y)
		if child.Widget != nil {
			child.Widget.Layout(runtime.Rect{X: bounds.X, Y: y, Width: bounds.Width, Height: max(h, 0)})
		}
		y += max(h, 0)
	}
}

// Render draws every child.
func (c *Column) Render(ctx runtime.RenderContext) {
	if c == nil {
		return
	}
	for _, child := range c.Children {
		if child.Widget != nil {
			child.Widget.Render(ctx)
		}
	}
}

// HandleMessage offers msg to each child until one handles it.
func (c *Column) HandleMessage(msg runtime.Message) runtime.HandleResult {
	if c == nil {
		return runtime.Unhandled()
	}
	for _, child := range c.Children {
		if child.Widget == nil {
			continue
		}
		if result := child.Widget.HandleMessage(msg); result.Handled {
			return result
		}
	}
	return runtime.Unhandled()
}

// CursorPosition returns the first child cursor that is visible.
func (c *Column) CursorPosition() (int, int, bool) {
	if c == nil {
		return 0, 0, false
	}
	for _, child := range c.Children {
		if cp, ok := child.Widget.(runtime.CursorProvider); ok {
			if x, y, visible := cp.CursorPosition(); visible {
				return x, y, true
			}
		}
	}
	return 0, 0, false
}

// ChildWidgets returns the children.
func (c *Column) ChildWidgets() []runtime.Widget {
	if c == nil {
		return nil
	}
	out := make([]runtime.Widget, 0, len(c.Children))
	for _, child := range c.Children {
		out = append(out, child.Widget)
	}
	return out
}
