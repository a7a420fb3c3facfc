package widgets

import (
	"sync"

	"github.com/mattn/go-runewidth"

	"github.com/odvcencio/furry-actions/backend"
	"github.com/odvcencio/furry-actions/runtime"
	"github.com/odvcencio/furry-actions/state"
)

// StatusLine shows a message from a signal on the left and a short ruler
// on the right.
type StatusLine struct {
	Base
	source    state.Readable[string]
	scheduler state.Scheduler
	subs      state.Subscriptions
	ruler     func() string

	mu      sync.Mutex
	text    string
	style   backend.Style
	mounted bool
}

// NewStatusLine creates a status line bound to source. Updates are delivered
// through scheduler; nil delivers them on the writer's goroutine.
func NewStatusLine(source state.Readable[string], scheduler state.Scheduler) *StatusLine {
	s := &StatusLine{
		source:    source,
		scheduler: scheduler,
		style:     backend.DefaultStyle().Reverse(true),
	}
	if source != nil {
		s.text = source.Get()
	}
	return s
}

// SetStyle sets the bar style.
func (s *StatusLine) SetStyle(style backend.Style) {
	s.style = style
}

// SetRuler sets the callback that produces the right-aligned text.
func (s *StatusLine) SetRuler(fn func() string) {
	s.ruler = fn
}

// Text returns the message being shown.
func (s *StatusLine) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// Mount subscribes to the source.
func (s *StatusLine) Mount() {
	s.subs.Clear()
	s.mu.Lock()
	s.mounted = true
	s.mu.Unlock()
	if s.source == nil {
		return
	}
	s.setText(s.source.Get())
	s.subs.Add(s.source.SubscribeWithScheduler(s.scheduler, s.onSignal))
}

// Unmount drops the subscription.
func (s *StatusLine) Unmount() {
	s.mu.Lock()
	s.mounted = false
	s.mu.Unlock()
	s.subs.Clear()
}

func (s *StatusLine) onSignal(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mounted {
		s.text = text
	}
}

func (s *StatusLine) setText(text string) {
	s.mu.Lock()
	s.text = text
	s.mu.Unlock()
}

// Render draws the bar.
func (s *StatusLine) Render(ctx runtime.RenderContext) {
	bounds := s.bounds
	if bounds.Empty() {
		return
	}
	ctx.Buffer.Fill(runtime.Rect{X: bounds.X, Y: bounds.Y, Width: bounds.Width, Height: 1}, ' ', s.style)
	right := ""
	if s.ruler != nil {
		right = s.ruler()
	}
	rightWidth := runewidth.StringWidth(right)
	avail := bounds.Width - rightWidth - 1
	if rightWidth > 0 && avail >= 0 {
		ctx.Buffer.SetString(bounds.X+bounds.Width-rightWidth, bounds.Y, right, s.style)
	} else {
		avail = bounds.Width
	}
	ctx.Buffer.SetString(bounds.X, bounds.Y, truncateString(s.Text(), avail), s.style)
}
