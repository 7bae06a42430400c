// Package backoff provides exponential backoff delays with jitter for
// retrying transient failures against external brokers.
package backoff
