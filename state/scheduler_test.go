package state

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestQueue_Flush(t *testing.T) {
	queue := &Queue{}
	calls := 0

	queue.Schedule(func() { calls++ })
	queue.Schedule(nil)
	queue.Schedule(func() { calls++ })

	if flushed := queue.Flush(); flushed != 2 {
		t.Fatalf("expected 2 callbacks flushed, got %d", flushed)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if flushed := queue.Flush(); flushed != 0 {
		t.Fatalf("expected empty queue, got %d", flushed)
	}
}

func TestSerial_RunsInOrder(t *testing.T) {
	s := NewSerial()
	var (
		mu  sync.Mutex
		got []int
	)
	done := make(chan struct{})
	const n = 200
	for i := range n {
		s.Schedule(func() {
			mu.Lock()
			got = append(got, i)
			last := len(got) == n
			mu.Unlock()
			if last {
				close(done)
			}
		})
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("listeners did not finish")
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("position %d ran listener %d", i, v)
		}
	}
}

func TestSerial_OneAtATime(t *testing.T) {
	s := NewSerial()
	var active, peak atomic.Int32
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		s.Schedule(func() {
			defer wg.Done()
			if n := active.Add(1); n > peak.Load() {
				peak.Store(n)
			}
			time.Sleep(time.Millisecond)
			active.Add(-1)
		})
	}
	wg.Wait()
	if peak.Load() != 1 {
		t.Fatalf("peak concurrency = %d, want 1", peak.Load())
	}
}
