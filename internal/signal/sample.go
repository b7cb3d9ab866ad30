package signal

import "time"

// Sample is one frame's reduced brightness observation. The capture layer
// averages a color frame down to a single scalar before it reaches the
// pipeline; samples are immutable once created.
type Sample struct {
	Timestamp time.Time
	Amplitude float64
}

// RollingBuffer holds the most recent values pushed into it, up to a fixed
// capacity. Once full, each push evicts the oldest element. Windows in this
// pipeline are small (<=60 elements), so eviction by copy is cheaper than a
// ring index would make it look.
type RollingBuffer[T any] struct {
	values   []T
	capacity int
}

// NewRollingBuffer constructs a buffer with the given capacity.
func NewRollingBuffer[T any](capacity int) *RollingBuffer[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &RollingBuffer[T]{
		values:   make([]T, 0, capacity),
		capacity: capacity,
	}
}

// Push appends a value, evicting the oldest element when full.
func (b *RollingBuffer[T]) Push(v T) {
	if len(b.values) == b.capacity {
		copy(b.values, b.values[1:])
		b.values[len(b.values)-1] = v
		return
	}
	b.values = append(b.values, v)
}

// Len reports the number of buffered values. Always <= capacity.
func (b *RollingBuffer[T]) Len() int {
	return len(b.values)
}

// Capacity reports the fixed capacity.
func (b *RollingBuffer[T]) Capacity() int {
	return b.capacity
}

// At returns the i-th oldest buffered value.
func (b *RollingBuffer[T]) At(i int) T {
	return b.values[i]
}

// Last returns the most recent value, or false when empty.
func (b *RollingBuffer[T]) Last() (T, bool) {
	var zero T
	if len(b.values) == 0 {
		return zero, false
	}
	return b.values[len(b.values)-1], true
}

// Values returns the buffered values oldest-first. The slice is shared with
// the buffer; callers must not mutate it.
func (b *RollingBuffer[T]) Values() []T {
	return b.values
}

// Tail returns the most recent n values oldest-first, or everything when
// fewer than n are buffered.
func (b *RollingBuffer[T]) Tail(n int) []T {
	if n >= len(b.values) {
		return b.values
	}
	return b.values[len(b.values)-n:]
}

// Reset discards all buffered values.
func (b *RollingBuffer[T]) Reset() {
	b.values = b.values[:0]
}
