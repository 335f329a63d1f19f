// This file implements a lock-free MPSC ring buffer (Disruptor pattern)
// with cache-line padding to prevent false sharing between producer and
// consumer. It backs inqueue.go: every join/ready/motion/debug operation
// from the transport layer is pushed here by an HTTP/WebSocket goroutine
// and drained by the single tick-owning consumer goroutine (spec §5).
//
// Origin: LMAX Disruptor (2011), Vyukov MPSC queue.
package game

import (
	"runtime"
	"sync/atomic"
)

// cacheLineSize is the typical CPU cache line size (64 bytes on x86-64).
const cacheLineSize = 64

// padding keeps adjacent fields off the same cache line.
type padding [cacheLineSize]byte

// lockFreeQueue is a multi-producer single-consumer ring buffer. Capacity
// is rounded up to a power of 2 so index wrapping is a mask, not a modulo.
type lockFreeQueue[T any] struct {
	_pad0 padding

	head uint64 // write position (producers) - own cache line
	_pad1 padding

	tail uint64 // read position (consumer) - own cache line
	_pad2 padding

	mask uint64
	_pad3 padding

	data []T
}

// newLockFreeQueue creates a queue with at least the requested capacity.
func newLockFreeQueue[T any](capacity int) *lockFreeQueue[T] {
	c := 1
	for c < capacity {
		c <<= 1
	}
	return &lockFreeQueue[T]{
		mask: uint64(c - 1),
		data: make([]T, c),
	}
}

// tryPush attempts to enqueue item without blocking. Safe for concurrent
// producers.
func (q *lockFreeQueue[T]) tryPush(item T) bool {
	for {
		head := atomic.LoadUint64(&q.head)
		tail := atomic.LoadUint64(&q.tail)

		if head-tail > q.mask {
			return false // full
		}

		if atomic.CompareAndSwapUint64(&q.head, head, head+1) {
			q.data[head&q.mask] = item
			return true
		}

		runtime.Gosched()
	}
}

// tryPop dequeues the oldest item. Must only be called by a single
// consumer (the tick loop).
func (q *lockFreeQueue[T]) tryPop() (T, bool) {
	var zero T

	tail := atomic.LoadUint64(&q.tail)
	head := atomic.LoadUint64(&q.head)

	if tail >= head {
		return zero, false
	}

	item := q.data[tail&q.mask]
	atomic.StoreUint64(&q.tail, tail+1)
	return item, true
}

// drain reads every currently-available item, up to maxItems, in FIFO
// order. Called once per tick boundary before the tick body runs.
func (q *lockFreeQueue[T]) drain(maxItems int) []T {
	result := make([]T, 0, maxItems)
	for len(result) < maxItems {
		item, ok := q.tryPop()
		if !ok {
			break
		}
		result = append(result, item)
	}
	return result
}

// len returns an approximate (possibly stale) item count.
func (q *lockFreeQueue[T]) len() int {
	head := atomic.LoadUint64(&q.head)
	tail := atomic.LoadUint64(&q.tail)
	if head < tail {
		return 0
	}
	return int(head - tail)
}
