// Package redisqueue backs the dispatch capability pair with a Redis list,
// letting producers and the dispatch loop live in different processes.
//
// Messages are JSON envelopes pushed with LPUSH and popped with BRPOP, so
// ordering is first-in first-out across everything pushed to the same key.
// Closing the last local sender handle pushes a disconnect marker; a receiver
// that pops the marker reports the queue as disconnected from then on.
//
// Guarantees that depend on shared in-process state are necessarily
// best-effort here: a sender cannot observe that a remote receiver closed,
// and envelopes pushed after the disconnect marker stay in the list
// unobserved.
package redisqueue
