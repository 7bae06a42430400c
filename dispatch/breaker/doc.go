// Package breaker wraps a dispatch Network with a circuit breaker.
//
// The dispatch loop absorbs every delivery failure, so a dead transport
// would otherwise be hammered once per queued message. Wrapping the network
// lets sends fast-fail while the circuit is open and recover through
// half-open trials, without changing the loop's drop semantics.
package breaker
