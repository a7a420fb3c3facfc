// Package selection tracks which menu row is selected and keeps the
// highlight band on the surface in step with the surface cursor.
package selection

import (
	"context"
	"fmt"
	"sync"

	"github.com/odvcencio/furry-actions/actions"
	"github.com/odvcencio/furry-actions/host"
	"github.com/odvcencio/furry-actions/state"
)

// Namespace holds the single highlight band painted over the selected row.
const Namespace = "furry-actions-line"

// GroupSelected is the highlight group of the band.
const GroupSelected = "PmenuSel"

// Controller is the Closed / Open(i) state machine of one menu surface.
// Every method is a no-op while closed.
type Controller struct {
	surface       host.Surface
	useCursorLine bool

	mu         sync.Mutex
	open       bool
	candidates []actions.Candidate
	index      *state.Signal[int]
}

// New creates a closed controller driving surface. With useCursorLine the
// surface draws its own cursor line and no band is painted.
func New(surface host.Surface, useCursorLine bool) *Controller {
	return &Controller{
		surface:       surface,
		useCursorLine: useCursorLine,
		index:         state.NewComparableSignal(0),
	}
}

// SetUseCursorLine switches between the native cursor line and the painted
// band. It takes effect on the next repaint.
func (c *Controller) SetUseCursorLine(on bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.useCursorLine = on
	c.mu.Unlock()
}

// Open moves to Open(0) with candidates and paints the first row. It reports
// false and stays closed when candidates is empty.
func (c *Controller) Open(ctx context.Context, candidates []actions.Candidate) (bool, error) {
	if c == nil || len(candidates) == 0 {
		return false, nil
	}
	c.mu.Lock()
	c.open = true
	c.candidates = append([]actions.Candidate(nil), candidates...)
	c.mu.Unlock()
	c.index.Set(0)
	return true, c.paint(ctx, 0)
}

// IsOpen reports whether the controller is in the Open state.
func (c *Controller) IsOpen() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Index exposes the selected row.
func (c *Controller) Index() state.Readable[int] {
	if c == nil {
		return nil
	}
	return c.index
}

// Candidates returns the list of the open session.
func (c *Controller) Candidates() []actions.Candidate {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]actions.Candidate(nil), c.candidates...)
}

// Next moves the surface cursor one row down. The highlight follows on the
// next Sync.
func (c *Controller) Next(ctx context.Context) error {
	return c.move(ctx, 1)
}

// Prev moves the surface cursor one row up.
func (c *Controller) Prev(ctx context.Context) error {
	return c.move(ctx, -1)
}

func (c *Controller) move(ctx context.Context, delta int) error {
	if !c.IsOpen() {
		return nil
	}
	if err := c.surface.MoveCursor(ctx, delta); err != nil {
		return fmt.Errorf("move selection: %w", err)
	}
	return nil
}

// Sync reads the surface cursor line, makes it the selected row and repaints
// the band. Out of range lines are clamped to the list.
func (c *Controller) Sync(ctx context.Context) error {
	if !c.IsOpen() {
		return nil
	}
	line, err := c.surface.CursorLine(ctx)
	if err != nil {
		return fmt.Errorf("read surface cursor: %w", err)
	}
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return nil
	}
	line = min(max(line, 0), len(c.candidates)-1)
	c.mu.Unlock()

	c.index.Set(line)
	return c.paint(ctx, line)
}

// paint replaces the band with one on line.
func (c *Controller) paint(ctx context.Context, line int) error {
	c.mu.Lock()
	native := c.useCursorLine
	c.mu.Unlock()
	if native {
		return nil
	}
	if err := c.surface.ClearHighlight(ctx, Namespace); err != nil {
		return fmt.Errorf("clear highlight: %w", err)
	}
	if err := c.surface.SetHighlight(ctx, Namespace, line, GroupSelected); err != nil {
		return fmt.Errorf("set highlight: %w", err)
	}
	return nil
}

// Confirm resolves the row under the surface cursor and closes. ok is false
// when the controller was closed or the row has no candidate.
func (c *Controller) Confirm(ctx context.Context) (candidate actions.Candidate, ok bool, err error) {
	if !c.IsOpen() {
		return actions.Candidate{}, false, nil
	}
	line, err := c.surface.CursorLine(ctx)
	if err != nil {
		c.Cancel()
		return actions.Candidate{}, false, fmt.Errorf("read surface cursor: %w", err)
	}

	c.mu.Lock()
	candidates := c.candidates
	wasOpen := c.open
	c.open = false
	c.candidates = nil
	c.mu.Unlock()
	if !wasOpen || line < 0 || line >= len(candidates) {
		return actions.Candidate{}, false, nil
	}
	c.index.Set(line)
	return candidates[line], true, nil
}

// Cancel closes without resolving a candidate. It reports whether the
// controller was open.
func (c *Controller) Cancel() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	wasOpen := c.open
	c.open = false
	c.candidates = nil
	return wasOpen
}

// Dispose forces Closed from any state.
func (c *Controller) Dispose() {
	if c == nil {
		return
	}
	c.Cancel()
	c.index.Set(0)
}
