// Package ring provides a fixed-capacity buffer that evicts its oldest
// element when full.
package ring

import "encoding/json"

// Buffer holds at most Cap() items in insertion order. The zero value is not
// usable; construct with New.
type Buffer[T any] struct {
	items []T
	start int
	size  int
}

// New returns an empty buffer holding at most capacity items.
// A capacity below one is treated as one.
func New[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer[T]{items: make([]T, capacity)}
}

// Cap returns the maximum number of items retained.
func (b *Buffer[T]) Cap() int {
	return len(b.items)
}

// Len returns the number of items currently held.
func (b *Buffer[T]) Len() int {
	return b.size
}

// Push appends v, dropping the oldest item when the buffer is full.
func (b *Buffer[T]) Push(v T) {
	if b.size < len(b.items) {
		b.items[(b.start+b.size)%len(b.items)] = v
		b.size++
		return
	}
	b.items[b.start] = v
	b.start = (b.start + 1) % len(b.items)
}

// Last returns the most recently pushed item.
func (b *Buffer[T]) Last() (T, bool) {
	var zero T
	if b.size == 0 {
		return zero, false
	}
	return b.items[(b.start+b.size-1)%len(b.items)], true
}

// Items returns the held items, oldest first. The slice is a copy.
func (b *Buffer[T]) Items() []T {
	out := make([]T, b.size)
	for i := 0; i < b.size; i++ {
		out[i] = b.items[(b.start+i)%len(b.items)]
	}
	return out
}

// Clone returns an independent copy of the buffer. Items are copied shallowly.
func (b *Buffer[T]) Clone() *Buffer[T] {
	c := New[T](len(b.items))
	for _, v := range b.Items() {
		c.Push(v)
	}
	return c
}

// MarshalJSON encodes the buffer as a JSON array, oldest first.
func (b *Buffer[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Items())
}

// UnmarshalJSON decodes a JSON array into the buffer, keeping the existing
// capacity and only the newest items that fit.
func (b *Buffer[T]) UnmarshalJSON(data []byte) error {
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	if len(b.items) == 0 {
		b.items = make([]T, max(len(items), 1))
	}
	b.start, b.size = 0, 0
	for _, v := range items {
		b.Push(v)
	}
	return nil
}
