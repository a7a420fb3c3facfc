package state

import "sync"

// Scheduler decides where a listener runs.
type Scheduler interface {
	Schedule(fn func())
}

// Queue holds listeners until Flush. The zero value is ready to use.
type Queue struct {
	mu      sync.Mutex
	pending []func()
}

// Schedule appends fn.
func (q *Queue) Schedule(fn func()) {
	if q == nil || fn == nil {
		return
	}
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	q.mu.Unlock()
}

// Len returns how many listeners are waiting.
func (q *Queue) Len() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Flush runs everything queued so far and returns the count.
func (q *Queue) Flush() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	pending := q.pending
	q.pending = nil
	q.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
	return len(pending)
}

// Serial runs listeners one at a time in the order they were scheduled. A
// drain goroutine is started when work arrives and exits once the queue is
// empty, so an idle Serial holds no goroutine.
type Serial struct {
	queue Queue

	mu      sync.Mutex
	running bool
}

// NewSerial creates an idle Serial.
func NewSerial() *Serial {
	return &Serial{}
}

// Schedule queues fn behind everything scheduled before it.
func (s *Serial) Schedule(fn func()) {
	if s == nil || fn == nil {
		return
	}
	s.queue.Schedule(fn)
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()
	go s.drain()
}

func (s *Serial) drain() {
	for {
		s.queue.Flush()
		s.mu.Lock()
		if s.queue.Len() == 0 {
			s.running = false
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
	}
}
