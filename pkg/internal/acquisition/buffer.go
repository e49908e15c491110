// Package acquisition holds the per-stream recording buffers.
//
// A Buffer only accepts appends while its gate is open. Close shuts the gate
// and hands the accumulated samples to the caller in one step, so a sample is
// either in the detached slice or rejected; it can never land after Close.
package acquisition

import (
	"sync"
	"sync/atomic"
)

// Buffer is an append-only, gated sample buffer for one stream.
type Buffer[T any] struct {
	mu       sync.Mutex
	open     bool
	items    []T
	rejected atomic.Uint64
}

// NewBuffer returns a closed, empty buffer.
func NewBuffer[T any]() *Buffer[T] {
	return &Buffer[T]{}
}

// Open clears the buffer and starts accepting appends.
func (b *Buffer[T]) Open() {
	b.mu.Lock()
	b.items = nil
	b.open = true
	b.mu.Unlock()
}

// Append adds v if the gate is open. It reports whether v was kept.
func (b *Buffer[T]) Append(v T) bool {
	b.mu.Lock()
	if !b.open {
		b.mu.Unlock()
		b.rejected.Add(1)
		return false
	}
	b.items = append(b.items, v)
	b.mu.Unlock()
	return true
}

// Replace swaps the contents for vs if the gate is open.
func (b *Buffer[T]) Replace(vs []T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		b.rejected.Add(1)
		return false
	}
	b.items = append([]T(nil), vs...)
	return true
}

// Close shuts the gate and detaches the contents.
func (b *Buffer[T]) Close() []T {
	b.mu.Lock()
	out := b.items
	b.items = nil
	b.open = false
	b.mu.Unlock()
	return out
}

// Restore puts detached contents back without reopening the gate.
func (b *Buffer[T]) Restore(items []T) {
	b.mu.Lock()
	b.items = items
	b.mu.Unlock()
}

// Take detaches the contents of a closed buffer, e.g. after Restore.
func (b *Buffer[T]) Take() []T {
	b.mu.Lock()
	out := b.items
	b.items = nil
	b.mu.Unlock()
	return out
}

// Reset closes the gate and drops the contents.
func (b *Buffer[T]) Reset() {
	b.mu.Lock()
	b.items = nil
	b.open = false
	b.mu.Unlock()
}

// Len returns the number of buffered items.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// IsOpen reports whether appends are accepted.
func (b *Buffer[T]) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// Rejected returns how many appends arrived while the gate was closed.
func (b *Buffer[T]) Rejected() uint64 {
	return b.rejected.Load()
}
