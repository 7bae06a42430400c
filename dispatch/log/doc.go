// Package log defines the structured logging contract used across
// lib-dispatch.
//
// The library never logs through a concrete backend directly. Components
// accept a Logger and default to the no-op implementation when none is
// provided, so embedding applications decide where (and whether) dispatch
// activity is recorded. An adapter for go.uber.org/zap lives in the sibling
// zap package.
package log
