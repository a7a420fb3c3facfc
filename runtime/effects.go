package runtime

import (
	"context"
	"time"
)

// After posts msg once delay has elapsed. A non-positive delay posts
// immediately.
func After(delay time.Duration, msg Message) Effect {
	return Effect{
		Run: func(ctx context.Context, post PostFunc) {
			if msg == nil || post == nil {
				return
			}
			if delay <= 0 {
				post(msg)
				return
			}
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-ctx.Done():
			case <-timer.C:
				post(msg)
			}
		},
	}
}

// Go wraps fn as an effect that ignores the post function.
func Go(fn func(ctx context.Context)) Effect {
	return Effect{
		Run: func(ctx context.Context, _ PostFunc) {
			if fn != nil {
				fn(ctx)
			}
		},
	}
}
