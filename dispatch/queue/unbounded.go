package queue

import (
	"sync"

	"github.com/LerianStudio/lib-dispatch/dispatch"
)

// Unbounded creates a queue with no capacity limit: Send never blocks and
// never reports ErrQueueFull. Memory is the only backpressure, so producers
// that can outrun the consumer for long periods should prefer Bounded.
func Unbounded[T any]() (dispatch.Sender[T], dispatch.Receiver[T]) {
	shared := &unboundedQueue[T]{senders: 1}
	shared.cond = sync.NewCond(&shared.mu)

	return &unboundedSender[T]{queue: shared}, &unboundedReceiver[T]{queue: shared}
}

// unboundedQueue stores items in a head-indexed slice. Consumed slots are
// zeroed so the GC can reclaim payloads, and the backing array is reset
// whenever the queue fully drains.
type unboundedQueue[T any] struct {
	mu   sync.Mutex
	cond *sync.Cond

	items []T
	head  int

	senders     int
	sendersGone bool
	recvClosed  bool
}

func (shared *unboundedQueue[T]) size() int {
	return len(shared.items) - shared.head
}

// pop removes the head item. Caller must hold mu and guarantee size() > 0.
func (shared *unboundedQueue[T]) pop() T {
	var zero T

	item := shared.items[shared.head]
	shared.items[shared.head] = zero
	shared.head++

	if shared.head == len(shared.items) {
		shared.items = shared.items[:0]
		shared.head = 0
	}

	return item
}

type unboundedSender[T any] struct {
	queue *unboundedQueue[T]

	mu     sync.Mutex
	closed bool
}

// Send enqueues item without blocking.
func (handle *unboundedSender[T]) Send(item T) error {
	if handle == nil {
		return dispatch.ErrSenderClosed
	}

	handle.mu.Lock()
	closed := handle.closed
	handle.mu.Unlock()

	if closed {
		return dispatch.ErrSenderClosed
	}

	shared := handle.queue

	shared.mu.Lock()
	defer shared.mu.Unlock()

	if shared.recvClosed {
		return dispatch.ErrQueueDisconnected
	}

	shared.items = append(shared.items, item)
	shared.cond.Signal()

	return nil
}

// Clone returns a new handle to the same queue. Cloning a closed handle
// yields another closed handle.
//
//nolint:ireturn
func (handle *unboundedSender[T]) Clone() dispatch.Sender[T] {
	handle.mu.Lock()
	defer handle.mu.Unlock()

	if handle.closed {
		return &unboundedSender[T]{queue: handle.queue, closed: true}
	}

	shared := handle.queue

	shared.mu.Lock()
	shared.senders++
	shared.mu.Unlock()

	return &unboundedSender[T]{queue: handle.queue}
}

// Close releases the handle. The queue disconnects when the last handle
// closes.
func (handle *unboundedSender[T]) Close() error {
	handle.mu.Lock()

	if handle.closed {
		handle.mu.Unlock()

		return nil
	}

	handle.closed = true
	handle.mu.Unlock()

	shared := handle.queue

	shared.mu.Lock()
	shared.senders--

	if shared.senders == 0 {
		shared.sendersGone = true
		shared.cond.Broadcast()
	}
	shared.mu.Unlock()

	return nil
}

type unboundedReceiver[T any] struct {
	queue *unboundedQueue[T]
}

// Recv blocks until an item arrives or the queue disconnects. Items enqueued
// before the last sender closed are drained before the disconnect surfaces.
func (receiver *unboundedReceiver[T]) Recv() (T, error) {
	var zero T

	shared := receiver.queue

	shared.mu.Lock()
	defer shared.mu.Unlock()

	for {
		if shared.recvClosed {
			return zero, dispatch.ErrQueueDisconnected
		}

		if shared.size() > 0 {
			return shared.pop(), nil
		}

		if shared.sendersGone {
			return zero, dispatch.ErrQueueDisconnected
		}

		shared.cond.Wait()
	}
}

// TryRecv returns immediately with an item, ErrQueueEmpty, or
// ErrQueueDisconnected.
func (receiver *unboundedReceiver[T]) TryRecv() (T, error) {
	var zero T

	shared := receiver.queue

	shared.mu.Lock()
	defer shared.mu.Unlock()

	if shared.recvClosed {
		return zero, dispatch.ErrQueueDisconnected
	}

	if shared.size() > 0 {
		return shared.pop(), nil
	}

	if shared.sendersGone {
		return zero, dispatch.ErrQueueDisconnected
	}

	return zero, dispatch.ErrQueueEmpty
}

// Close tears down the consumer side. Buffered items are abandoned and
// producers observe ErrQueueDisconnected.
func (receiver *unboundedReceiver[T]) Close() error {
	shared := receiver.queue

	shared.mu.Lock()
	shared.recvClosed = true
	shared.cond.Broadcast()
	shared.mu.Unlock()

	return nil
}
