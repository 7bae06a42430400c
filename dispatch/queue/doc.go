// Package queue provides in-process implementations of the dispatch queue
// capability pair.
//
// Bounded is channel-backed with blocking backpressure; Unbounded never
// blocks producers. Both honor the same contract: FIFO per sender handle,
// cloneable senders, drain-then-disconnect once the last handle closes.
package queue
