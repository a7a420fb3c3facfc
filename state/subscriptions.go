package state

import "sync"

// Subscriptions owns a set of release funcs, such as signal unsubscribers
// or host key bindings, and releases them together.
type Subscriptions struct {
	mu       sync.Mutex
	releases []func()
}

// Add tracks release.
func (s *Subscriptions) Add(release func()) {
	if s == nil || release == nil {
		return
	}
	s.mu.Lock()
	s.releases = append(s.releases, release)
	s.mu.Unlock()
}

// Observe subscribes fn to sig and tracks the unsubscribe.
func Observe[T any](s *Subscriptions, sig Readable[T], fn func(T)) {
	if s == nil || sig == nil || fn == nil {
		return
	}
	s.Add(sig.Subscribe(fn))
}

// Len returns the number of tracked releases.
func (s *Subscriptions) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.releases)
}

// Clear runs every release in reverse registration order and forgets them.
func (s *Subscriptions) Clear() {
	if s == nil {
		return
	}
	s.mu.Lock()
	releases := s.releases
	s.releases = nil
	s.mu.Unlock()
	for i := len(releases) - 1; i >= 0; i-- {
		releases[i]()
	}
}
