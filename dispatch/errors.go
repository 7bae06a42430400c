package dispatch

import (
	"errors"
	"fmt"
)

// Queue condition sentinels. Concrete queue implementations wrap these so
// callers can classify failures with errors.Is regardless of backing.
var (
	// ErrQueueDisconnected marks a queue that will never yield another item:
	// every sender handle has been closed (or the receiver itself was torn
	// down). The condition is terminal.
	ErrQueueDisconnected = errors.New("queue is disconnected")

	// ErrQueueEmpty is returned by TryRecv when the queue is connected but
	// currently holds no items.
	ErrQueueEmpty = errors.New("queue is empty")

	// ErrQueueFull is returned by bounded implementations that reject rather
	// than block when capacity is exhausted.
	ErrQueueFull = errors.New("queue is full")

	// ErrSenderClosed is returned by Send on a handle that has already been
	// closed. Cloning a closed handle yields another closed handle.
	ErrSenderClosed = errors.New("sender handle is closed")
)

// Dispatcher construction and lifecycle sentinels.
var (
	ErrReceiverRequired   = errors.New("queue receiver is required")
	ErrNetworkRequired    = errors.New("network is required")
	ErrDispatcherRequired = errors.New("dispatcher is required")
	ErrDispatcherRunning  = errors.New("dispatcher is already running")
	ErrShutdownTimeout    = errors.New("dispatcher shutdown timed out")
)

// DispatchError reports the terminal failure that ended a dispatch loop. It
// always wraps the receive-side cause, so
// errors.Is(err, ErrQueueDisconnected) holds for conforming queues.
type DispatchError struct {
	Cause error
}

// Error implements the error interface.
func (e *DispatchError) Error() string {
	if e == nil || e.Cause == nil {
		return "dispatch loop terminated"
	}

	return fmt.Sprintf("dispatch loop terminated: %v", e.Cause)
}

// Unwrap exposes the receive failure for errors.Is and errors.As.
func (e *DispatchError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Cause
}
