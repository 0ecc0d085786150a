//go:build debug

package channel

// New builds the default pipe for a producer/consumer pair. Debug
// builds ignore size and force a rendezvous on every Send, so a
// consumer that falls behind shows up as a hang, not a delay.
func New[T any](size int) Channel[T] {
	return NewUnbuffered[T]()
}
