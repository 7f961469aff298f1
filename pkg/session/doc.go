// Package session drives a single generation from start to completion
// against one accelerator backend endpoint.
//
// A session is ephemeral: it exists only for the duration of one inbound
// request and holds the pinned endpoint, the prompt, the accumulated
// output, and the fault-retry counter. Nothing is shared across requests.
//
// The driver walks a small state machine:
//
//	STARTED → POLLING → (FAULT_DETECTED → RESETTING → RESTARTED → POLLING) → DONE
//
// POLLING calls the backend's poll operation at a fixed short interval
// until a done chunk arrives. When a chunk contains the backend's fault
// signature (a cache-overflow error leaking into the output stream), the
// output accumulated so far is discarded, the same endpoint is reset,
// and after a short cooldown the original prompt is restarted on that
// endpoint. Recovery is attempted a bounded number of times; exhausting
// the budget ends the session with an explicit error marker embedded in
// the response content, never a transport-level failure, so single-shot
// clients still receive a well-formed response object.
//
// In streaming mode chunks already forwarded before a fault are not
// retracted; the client sees the truncated stream continue with fresh
// post-reset content. This is a deliberate, documented inconsistency.
package session
