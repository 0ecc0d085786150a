// Package channel wraps Go channels behind small generic interfaces so
// producers and consumers can be wired together without either side
// knowing whether the pipe buffers.
package channel

// Receiver is the consuming end of a pipe.
type Receiver[T any] interface {
	// Receive exposes the underlying channel for select loops.
	Receive() <-chan T
	// Len reports how many items are waiting.
	Len() int
}

// Sender is the producing end of a pipe.
type Sender[T any] interface {
	// Send blocks until the item is accepted.
	Send(T)
	// TrySend delivers the item only if it fits right now. It reports
	// false when the pipe is full, so callers on a hot path can shed
	// load instead of stalling.
	TrySend(T) bool
}

// Channel is a pipe with both ends exposed.
type Channel[T any] interface {
	Receiver[T]
	Sender[T]
	Close()
}
