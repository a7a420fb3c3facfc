package runtime

// Layer is one entry in the screen's layer stack.
type Layer struct {
	Root Widget
	// Modal layers receive input exclusively while on top.
	Modal bool
	// Bounds overrides the full-screen layout when non-empty.
	Bounds Rect
}

// Screen owns the layer stack and the render buffer.
type Screen struct {
	width, height int
	layers        []*Layer
	buffer        *Buffer
}

// NewScreen creates a screen with the given dimensions.
func NewScreen(w, h int) *Screen {
	return &Screen{
		width:  w,
		height: h,
		buffer: NewBuffer(w, h),
	}
}

// Size returns the screen dimensions.
func (s *Screen) Size() (w, h int) {
	return s.width, s.height
}

// Resize changes the screen dimensions and re-lays out every layer.
func (s *Screen) Resize(w, h int) {
	s.width, s.height = w, h
	s.buffer.Resize(w, h)
	for _, layer := range s.layers {
		s.layout(layer)
	}
}

// Buffer returns the render buffer.
func (s *Screen) Buffer() *Buffer {
	return s.buffer
}

// SetRoot replaces the base layer's root.
func (s *Screen) SetRoot(root Widget) {
	if len(s.layers) == 0 {
		s.layers = append(s.layers, &Layer{})
	}
	s.layers[0].Root = root
	s.layout(s.layers[0])
	s.buffer.MarkAllDirty()
}

// Root returns the base layer's root widget.
func (s *Screen) Root() Widget {
	if len(s.layers) == 0 {
		return nil
	}
	return s.layers[0].Root
}

// PushLayer adds a layer above the others.
func (s *Screen) PushLayer(layer *Layer) {
	if layer == nil {
		return
	}
	if len(s.layers) == 0 {
		s.layers = append(s.layers, &Layer{})
	}
	s.layers = append(s.layers, layer)
	s.layout(layer)
}

// RemoveLayer drops layer from the stack. The base layer cannot be removed.
func (s *Screen) RemoveLayer(layer *Layer) bool {
	for i := 1; i < len(s.layers); i++ {
		if s.layers[i] == layer {
			s.layers = append(s.layers[:i], s.layers[i+1:]...)
			s.buffer.MarkAllDirty()
			return true
		}
	}
	return false
}

// HasLayer reports whether layer is on the stack.
func (s *Screen) HasLayer(layer *Layer) bool {
	for _, l := range s.layers {
		if l == layer {
			return true
		}
	}
	return false
}

// Relayout re-applies the layout of layer, e.g. after its Bounds changed.
func (s *Screen) Relayout(layer *Layer) {
	if layer == nil {
		return
	}
	s.layout(layer)
	s.buffer.MarkAllDirty()
}

// LayerCount returns the number of layers including the base.
func (s *Screen) LayerCount() int {
	return len(s.layers)
}

func (s *Screen) layout(layer *Layer) {
	if layer == nil || layer.Root == nil {
		return
	}
	bounds := Rect{Width: s.width, Height: s.height}
	if !layer.Bounds.Empty() {
		bounds = layer.Bounds
	}
	layer.Root.Layout(bounds)
}

// Render draws every layer bottom to top.
func (s *Screen) Render() {
	ctx := RenderContext{Buffer: s.buffer, Bounds: Rect{Width: s.width, Height: s.height}}
	for _, layer := range s.layers {
		if layer.Root != nil {
			layer.Root.Render(ctx)
		}
	}
}

// Cursor returns the hardware cursor requested by the topmost layer that
// implements CursorProvider.
func (s *Screen) Cursor() (x, y int, ok bool) {
	for i := len(s.layers) - 1; i >= 0; i-- {
		if cp, isProvider := s.layers[i].Root.(CursorProvider); isProvider {
			return cp.CursorPosition()
		}
	}
	return 0, 0, false
}

// HandleMessage offers msg to layers from the top down. A modal layer stops
// propagation even when it does not handle the message.
func (s *Screen) HandleMessage(msg Message) HandleResult {
	for i := len(s.layers) - 1; i >= 0; i-- {
		layer := s.layers[i]
		if layer.Root == nil {
			continue
		}
		result := layer.Root.HandleMessage(msg)
		if result.Handled || layer.Modal {
			return result
		}
	}
	return Unhandled()
}
