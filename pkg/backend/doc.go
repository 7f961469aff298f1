// Package backend implements the HTTP client for accelerator inference
// backends.
//
// A backend exposes an asynchronous generation protocol:
//
//   - POST /api/generate          starts a generation (fire-and-forget)
//   - GET  /api/generate_provider polls the next output chunk
//   - POST /api/reset             clears corrupted internal cache state
//   - GET  /health                liveness probe
//
// The Client wraps a single long-lived, pooled http.Client shared by all
// in-flight sessions. Individual calls carry short timeouts; the overall
// generation has none, because total generation time is backend-paced and
// can span minutes.
//
// Poll responses that cannot be parsed are treated as empty chunks rather
// than errors, favoring availability over strict validation.
package backend
