// Package observe provides the tracing, metrics and logging used around every
// outbound dependency call.
//
// An Observer owns the OpenTelemetry providers and the process logger. A
// Middleware built from it wraps one call: it opens a span named
// upstream.<dependency>.<operation>, records call counters and latency, and
// logs the outcome with the call metadata attached.
package observe
