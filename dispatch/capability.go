package dispatch

// Sender is the producer half of a queue capability pair. Handles are cheap
// to clone; every clone enqueues into the same logical queue and may be used
// from its own goroutine.
//
// Items sent through one handle are received in send order (FIFO per
// producer). No ordering is guaranteed across distinct handles.
//
// Closing a handle releases it without affecting its clones. When the last
// handle closes, the queue disconnects: the receiver drains whatever is
// already enqueued and then observes ErrQueueDisconnected. Close must not be
// called concurrently with Send on the same handle.
type Sender[T any] interface {
	// Send enqueues item. It returns ErrSenderClosed when called on a closed
	// handle, ErrQueueDisconnected when the receiver side is gone, and
	// ErrQueueFull when a bounded implementation rejects instead of blocking.
	// Enqueue failures are always reported, never silently dropped.
	Send(item T) error

	// Clone returns an additional handle to the same logical queue. Cloning
	// a closed handle yields a closed handle.
	Clone() Sender[T]

	// Close releases the handle. Closing an already-closed handle is a no-op.
	Close() error
}

// Receiver is the consumer half of a queue capability pair. It is held by
// exactly one consumer and is not required to be duplicable.
type Receiver[T any] interface {
	// Recv blocks until an item is available or the queue is disconnected.
	// Items enqueued before disconnection are drained first; only then does
	// Recv fail with ErrQueueDisconnected. The condition is terminal and the
	// receiver must not be used again afterwards.
	Recv() (T, error)

	// TryRecv is the non-blocking variant. It fails with ErrQueueEmpty when
	// the queue is connected but holds nothing, and ErrQueueDisconnected once
	// the queue is drained and disconnected.
	TryRecv() (T, error)

	// Close tears down the consumer side. Blocked and subsequent Recv calls
	// fail with ErrQueueDisconnected, and producers see the same from Send.
	Close() error
}
