package state

// Readable is the read side of a Signal.
type Readable[T any] interface {
	Get() T
	Subscribe(fn func(T)) func()
	SubscribeWithScheduler(scheduler Scheduler, fn func(T)) func()
}

// Writable is a Readable that can be written.
type Writable[T any] interface {
	Readable[T]
	Set(value T) bool
	Update(fn func(T) T) bool
}

var (
	_ Writable[int] = (*Signal[int])(nil)
)
