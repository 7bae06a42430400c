// Package zap adapts go.uber.org/zap to the log.Logger contract used by
// lib-dispatch.
//
// When the wrapped context carries an active OpenTelemetry span, trace_id and
// span_id fields are appended automatically so dispatch logs correlate with
// distributed traces.
package zap
