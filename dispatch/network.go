package dispatch

import "context"

// Network is the delivery collaborator the dispatch loop hands messages to.
// It owns peer connections and byte transport; this package treats it as
// opaque beyond this contract.
//
// Send attempts one-shot delivery of payload to the named recipient. Errors
// (unknown peer, closed connection, I/O failure) are per-message: the
// Dispatcher logs and drops the message, then keeps running.
//
// Implementations must be safe for concurrent use; the Dispatcher shares the
// value with any other callers without additional locking.
type Network interface {
	Send(ctx context.Context, recipient string, payload []byte) error
}
