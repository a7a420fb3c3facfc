// Package state holds small observable values shared between the menu
// controller and whatever displays it.
package state

import "sync"

// EqualFunc reports whether two values are the same for change detection.
type EqualFunc[T any] func(a, b T) bool

// EqualComparable compares with ==.
func EqualComparable[T comparable](a, b T) bool {
	return a == b
}

type listener[T any] struct {
	id        uint64
	fn        func(T)
	scheduler Scheduler
}

// Signal holds a value and tells listeners when it changes.
// Listeners are notified in subscription order.
type Signal[T any] struct {
	mu        sync.Mutex
	value     T
	version   uint64
	equal     EqualFunc[T]
	listeners []listener[T]
	nextID    uint64
}

// NewSignal creates a signal holding initial.
func NewSignal[T any](initial T) *Signal[T] {
	return &Signal[T]{value: initial}
}

// NewComparableSignal creates a signal that ignores writes of an equal value.
func NewComparableSignal[T comparable](initial T) *Signal[T] {
	return &Signal[T]{value: initial, equal: EqualComparable[T]}
}

// SetEqualFunc replaces the change check. A nil func treats every Set as a
// change.
func (s *Signal[T]) SetEqualFunc(fn EqualFunc[T]) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.equal = fn
	s.mu.Unlock()
}

// Get returns the current value.
func (s *Signal[T]) Get() T {
	if s == nil {
		var zero T
		return zero
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Version counts accepted writes.
func (s *Signal[T]) Version() uint64 {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Set stores value and notifies listeners. It returns false when the equal
// func rejected the write.
func (s *Signal[T]) Set(value T) bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	if s.equal != nil && s.equal(s.value, value) {
		s.mu.Unlock()
		return false
	}
	s.value = value
	s.version++
	listeners := append([]listener[T](nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		fn := l.fn
		if l.scheduler == nil {
			fn(value)
			continue
		}
		l.scheduler.Schedule(func() { fn(value) })
	}
	return true
}

// Update applies fn to the current value and stores the result.
// fn runs outside the lock.
func (s *Signal[T]) Update(fn func(T) T) bool {
	if s == nil || fn == nil {
		return false
	}
	return s.Set(fn(s.Get()))
}

// Subscribe registers fn for change notifications. The returned func
// unsubscribes and is safe to call more than once.
func (s *Signal[T]) Subscribe(fn func(T)) func() {
	return s.SubscribeWithScheduler(nil, fn)
}

// SubscribeWithScheduler registers fn to run through scheduler. A nil
// scheduler runs fn on the goroutine calling Set.
func (s *Signal[T]) SubscribeWithScheduler(scheduler Scheduler, fn func(T)) func() {
	if s == nil || fn == nil {
		return func() {}
	}
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listener[T]{id: id, fn: fn, scheduler: scheduler})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(id) })
	}
}

func (s *Signal[T]) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, l := range s.listeners {
		if l.id == id {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			return
		}
	}
}

// Listeners returns the number of active subscriptions.
func (s *Signal[T]) Listeners() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}
