// Package amqpnet adapts an AMQP 0-9-1 channel to the dispatch Network
// interface.
//
// Each delivery is published as one persistent message whose routing key is
// the recipient identity, so a direct or topic exchange can fan deliveries
// out to per-peer queues. The adapter stamps a message id, a timestamp, and
// the dispatching identity (as AppId) on every publication.
package amqpnet
