package channel

// Buffered is a pipe backed by a buffered channel. Sends complete
// without a rendezvous while the buffer has room.
type Buffered[T any] struct {
	ch chan T
}

// NewBuffered creates a pipe holding up to size items.
func NewBuffered[T any](size int) *Buffered[T] {
	return &Buffered[T]{ch: make(chan T, size)}
}

// Send blocks when the buffer is full.
func (b *Buffered[T]) Send(v T) {
	b.ch <- v
}

// TrySend reports false instead of blocking on a full buffer.
func (b *Buffered[T]) TrySend(v T) bool {
	select {
	case b.ch <- v:
		return true
	default:
		return false
	}
}

// Receive exposes the buffer for select loops.
func (b *Buffered[T]) Receive() <-chan T {
	return b.ch
}

// Len reports how many items are buffered.
func (b *Buffered[T]) Len() int {
	return len(b.ch)
}

// Close closes the pipe. Receivers drain whatever is buffered first.
func (b *Buffered[T]) Close() {
	close(b.ch)
}
