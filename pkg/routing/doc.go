// Package routing selects accelerator backend endpoints for outbound
// calls using round-robin rotation with failover.
//
// A single process-wide rotation cursor is advanced atomically on every
// selection, successful or not, so consecutive requests favor different
// endpoints. Exact fairness under concurrency is best-effort.
//
// Failover is bounded: a selection attempt tries each configured endpoint
// at most once. When every endpoint has failed, the selection itself
// fails with an *UnavailableError, which callers must surface as a hard
// error rather than retrying further.
//
// The endpoint chosen for a session's start-generation call is pinned for
// that session: all subsequent poll and reset calls must target it, since
// polling a different endpoint would read an unrelated generation.
package routing
