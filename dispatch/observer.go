package dispatch

import "context"

// DeliveryObserver receives the outcome of every delivery attempt made by a
// Dispatcher. It makes the failure-absorption policy observable without
// capturing log output: a dropped message is reported here with its cause
// even though the loop keeps running.
//
// Callbacks run synchronously on the dispatch goroutine after each attempt,
// so implementations should return quickly. A nil observer disables
// notifications.
type DeliveryObserver interface {
	// MessageDelivered reports a successful delivery of size payload bytes.
	MessageDelivered(ctx context.Context, recipient string, size int)

	// MessageDropped reports a permanently dropped message and the delivery
	// failure that caused the drop.
	MessageDropped(ctx context.Context, recipient string, size int, cause error)
}
