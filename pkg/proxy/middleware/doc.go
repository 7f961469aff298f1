// Package middleware provides HTTP middleware for cross-cutting concerns.
//
// Middleware functions are chained in a specific order:
//
//	handler = Recovery(Logging(RequestID(CORS(handler))))
//
// Order (innermost to outermost):
//  1. CORS: add Cross-Origin Resource Sharing headers
//  2. RequestID: generate and propagate a request ID
//  3. Logging: log request/response details
//  4. Recovery: recover from panics
//
// There is deliberately no per-request timeout middleware: accelerator
// generations run for minutes and the only deadline that applies to a
// session is the client's own connection. Per-call timeouts live in the
// backend client instead.
//
// The logging response writer passes http.Flusher through to the
// underlying writer so SSE and NDJSON streaming keep flushing per chunk.
package middleware
