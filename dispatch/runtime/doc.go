// Package runtime provides panic-safe goroutine helpers.
//
// Library goroutines (broker close monitors, shutdown waiters) must never
// crash the embedding process. SafeGo and RecoverAndLog recover panics and
// record them through the configured logger instead.
package runtime
