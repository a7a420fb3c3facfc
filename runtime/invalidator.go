package runtime

import "sync/atomic"

// Invalidator coalesces render requests into a single pending message.
type Invalidator struct {
	post    PostFunc
	pending atomic.Bool
}

// NewInvalidator wires an invalidator to post.
func NewInvalidator(post PostFunc) *Invalidator {
	return &Invalidator{post: post}
}

// Invalidate requests a render unless one is already queued.
func (i *Invalidator) Invalidate() {
	if i == nil || i.post == nil {
		return
	}
	if i.pending.CompareAndSwap(false, true) {
		if !i.post(InvalidateMsg{}) {
			i.pending.Store(false)
		}
	}
}

func (i *Invalidator) reset() {
	if i == nil {
		return
	}
	i.pending.Store(false)
}
