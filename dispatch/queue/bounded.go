package queue

import (
	"sync"

	"github.com/LerianStudio/lib-dispatch/dispatch"
)

// Bounded creates a queue holding at most capacity items. Send blocks while
// the queue is full, giving producers backpressure. Capacities below 1 are
// clamped to 1.
func Bounded[T any](capacity int) (dispatch.Sender[T], dispatch.Receiver[T]) {
	if capacity < 1 {
		capacity = 1
	}

	shared := &boundedQueue[T]{
		items:       make(chan T, capacity),
		senders:     1,
		sendersDone: make(chan struct{}),
		recvClosed:  make(chan struct{}),
	}

	return &boundedSender[T]{queue: shared}, &boundedReceiver[T]{queue: shared}
}

// boundedQueue is the state shared by every handle of one logical queue.
// items is never closed; disconnection is signaled through sendersDone and
// recvClosed so a racing Send can never panic.
type boundedQueue[T any] struct {
	items chan T

	mu      sync.Mutex
	senders int

	sendersOnce sync.Once
	sendersDone chan struct{}

	recvOnce   sync.Once
	recvClosed chan struct{}
}

func (shared *boundedQueue[T]) addSender() {
	shared.mu.Lock()
	defer shared.mu.Unlock()

	shared.senders++
}

func (shared *boundedQueue[T]) removeSender() {
	shared.mu.Lock()
	shared.senders--
	last := shared.senders == 0
	shared.mu.Unlock()

	if last {
		shared.sendersOnce.Do(func() { close(shared.sendersDone) })
	}
}

func (shared *boundedQueue[T]) closeReceiver() {
	shared.recvOnce.Do(func() { close(shared.recvClosed) })
}

type boundedSender[T any] struct {
	queue *boundedQueue[T]

	mu     sync.Mutex
	closed bool
}

// Send enqueues item, blocking while the queue is full. It unblocks with
// ErrQueueDisconnected if the receiver is torn down while waiting.
func (handle *boundedSender[T]) Send(item T) error {
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

	select {
	case <-shared.recvClosed:
		return dispatch.ErrQueueDisconnected
	default:
	}

	select {
	case shared.items <- item:
		return nil
	case <-shared.recvClosed:
		return dispatch.ErrQueueDisconnected
	}
}

// Clone returns a new handle to the same queue. Cloning a closed handle
// yields another closed handle.
//
//nolint:ireturn
func (handle *boundedSender[T]) Clone() dispatch.Sender[T] {
	handle.mu.Lock()
	defer handle.mu.Unlock()

	if handle.closed {
		return &boundedSender[T]{queue: handle.queue, closed: true}
	}

	handle.queue.addSender()

	return &boundedSender[T]{queue: handle.queue}
}

// Close releases the handle. The queue disconnects when the last handle
// closes.
func (handle *boundedSender[T]) Close() error {
	handle.mu.Lock()

	if handle.closed {
		handle.mu.Unlock()

		return nil
	}

	handle.closed = true
	handle.mu.Unlock()

	handle.queue.removeSender()

	return nil
}

type boundedReceiver[T any] struct {
	queue *boundedQueue[T]
}

// Recv blocks until an item arrives or the queue disconnects. Items buffered
// before the last sender closed are drained before the disconnect surfaces.
func (receiver *boundedReceiver[T]) Recv() (T, error) {
	var zero T

	shared := receiver.queue

	select {
	case <-shared.recvClosed:
		return zero, dispatch.ErrQueueDisconnected
	default:
	}

	select {
	case item := <-shared.items:
		return item, nil
	case <-shared.recvClosed:
		return zero, dispatch.ErrQueueDisconnected
	case <-shared.sendersDone:
		// Producers are gone; whatever is buffered still counts.
		select {
		case item := <-shared.items:
			return item, nil
		default:
			return zero, dispatch.ErrQueueDisconnected
		}
	}
}

// TryRecv returns immediately with an item, ErrQueueEmpty, or
// ErrQueueDisconnected.
func (receiver *boundedReceiver[T]) TryRecv() (T, error) {
	var zero T

	shared := receiver.queue

	select {
	case <-shared.recvClosed:
		return zero, dispatch.ErrQueueDisconnected
	default:
	}

	select {
	case item := <-shared.items:
		return item, nil
	default:
	}

	select {
	case <-shared.sendersDone:
		// Re-check: an item may have landed between the two selects.
		select {
		case item := <-shared.items:
			return item, nil
		default:
			return zero, dispatch.ErrQueueDisconnected
		}
	default:
		return zero, dispatch.ErrQueueEmpty
	}
}

// Close tears down the consumer side. Buffered items are abandoned and
// producers observe ErrQueueDisconnected.
func (receiver *boundedReceiver[T]) Close() error {
	receiver.queue.closeReceiver()

	return nil
}
