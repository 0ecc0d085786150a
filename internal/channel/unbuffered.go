// internal/channel/unbuffered.go
package channel

// Unbuffered is a pipe with no buffer. Every Send hands the item
// directly to a waiting receiver, which makes ordering bugs surface
// immediately in debug builds.
type Unbuffered[T any] struct {
	ch chan T
}

// NewUnbuffered creates a rendezvous pipe.
func NewUnbuffered[T any]() *Unbuffered[T] {
	return &Unbuffered[T]{ch: make(chan T)}
}

// Send blocks until a receiver takes the item.
func (u *Unbuffered[T]) Send(v T) {
	u.ch <- v
}

// TrySend succeeds only when a receiver is already waiting.
func (u *Unbuffered[T]) TrySend(v T) bool {
	select {
	case u.ch <- v:
		return true
	default:
		return false
	}
}

// Receive exposes the pipe for select loops.
func (u *Unbuffered[T]) Receive() <-chan T {
	return u.ch
}

// Len is always 0; nothing is ever held.
func (u *Unbuffered[T]) Len() int {
	return 0
}

// Close closes the pipe.
func (u *Unbuffered[T]) Close() {
	close(u.ch)
}
