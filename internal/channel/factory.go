//go:build !debug

package channel

// New builds the default pipe for a producer/consumer pair. Normal
// builds buffer up to size items so producers rarely stall.
func New[T any](size int) Channel[T] {
	return NewBuffered[T](size)
}
