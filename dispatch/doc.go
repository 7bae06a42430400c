// Package dispatch provides a transport-agnostic outbound-message dispatch
// loop.
//
// Producers enqueue OutboundMessage values through cloneable Sender handles;
// a single Dispatcher drains the paired Receiver and forwards each message to
// a Network collaborator. Delivery failures are absorbed per message (the
// message is dropped and the loop continues); only queue disconnection ends
// the loop, surfaced to Run's caller as a *DispatchError.
//
// Concrete queue backings live in the queue and redisqueue subpackages, and a
// broker-backed Network adapter in amqpnet.
package dispatch
