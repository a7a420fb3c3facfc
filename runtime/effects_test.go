package runtime

import (
	"context"
	"testing"
	"time"
)

func TestAfter_PostsAfterDelay(t *testing.T) {
	posted := make(chan Message, 1)
	effect := After(5*time.Millisecond, ResizeMsg{Width: 1, Height: 1})
	go effect.Run(context.Background(), func(msg Message) bool {
		posted <- msg
		return true
	})

	select {
	case msg := <-posted:
		if _, ok := msg.(ResizeMsg); !ok {
			t.Fatalf("unexpected message %#v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("expected After to post")
	}
}

func TestAfter_CanceledContextDropsMessage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	posted := false
	After(time.Hour, InvalidateMsg{}).Run(ctx, func(Message) bool {
		posted = true
		return true
	})
	if posted {
		t.Fatalf("expected canceled After to drop its message")
	}
}

func TestAfter_ZeroDelayPostsImmediately(t *testing.T) {
	posted := false
	After(0, InvalidateMsg{}).Run(context.Background(), func(Message) bool {
		posted = true
		return true
	})
	if !posted {
		t.Fatalf("expected immediate post")
	}
}
