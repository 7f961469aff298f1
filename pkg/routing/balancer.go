package routing

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"halcyon-ai/relay/pkg/backend"
)

// Balancer distributes sessions across a fixed, ordered set of backend
// endpoints. It is safe for concurrent use; the rotation cursor is the
// only shared mutable state and is advanced atomically.
type Balancer struct {
	endpoints []backend.Endpoint
	cursor    atomic.Int64
	logger    *slog.Logger
}

// UnavailableError indicates every configured endpoint failed to accept
// the call within one full rotation. It maps to a hard 5xx for the
// inbound request.
type UnavailableError struct {
	// Attempts is the number of endpoints tried (the full rotation).
	Attempts int

	// LastErr is the error from the final attempt.
	LastErr error
}

// Error implements the error interface.
func (e *UnavailableError) Error() string {
	return fmt.Sprintf("all %d backend endpoints unavailable: %v", e.Attempts, e.LastErr)
}

// Unwrap returns the last attempt's error for error chain support.
func (e *UnavailableError) Unwrap() error {
	return e.LastErr
}

// NewBalancer creates a balancer over the given addresses, preserving
// their configured order as the rotation order.
func NewBalancer(addresses []string) (*Balancer, error) {
	if len(addresses) == 0 {
		return nil, fmt.Errorf("no backend endpoints configured")
	}

	endpoints := make([]backend.Endpoint, len(addresses))
	for i, addr := range addresses {
		endpoints[i] = backend.Endpoint{Address: addr, Ordinal: i}
	}

	return &Balancer{
		endpoints: endpoints,
		logger:    slog.Default().With("component", "routing.balancer"),
	}, nil
}

// Endpoints returns the configured endpoints in rotation order.
func (b *Balancer) Endpoints() []backend.Endpoint {
	out := make([]backend.Endpoint, len(b.endpoints))
	copy(out, b.endpoints)
	return out
}

// Len returns the number of configured endpoints.
func (b *Balancer) Len() int {
	return len(b.endpoints)
}

// Next returns the next endpoint in rotation order and advances the
// shared cursor. The cursor moves on every call regardless of what the
// caller does with the endpoint.
func (b *Balancer) Next() backend.Endpoint {
	count := b.cursor.Add(1) - 1

	// Keep the counter in a bounded range so it never overflows.
	if count >= 1_000_000_000 {
		b.cursor.CompareAndSwap(count+1, 0)
		count = count % int64(len(b.endpoints))
	}

	return b.endpoints[int(count%int64(len(b.endpoints)))]
}

// Do invokes call against successive endpoints until one succeeds,
// trying each configured endpoint at most once. It returns the endpoint
// that accepted the call; the caller must pin that endpoint for the rest
// of the session.
//
// If the context is cancelled the cancellation error is returned
// directly; remaining endpoints are not tried. If every endpoint fails,
// Do returns an *UnavailableError wrapping the final failure.
func (b *Balancer) Do(ctx context.Context, call func(context.Context, backend.Endpoint) error) (backend.Endpoint, error) {
	var lastErr error

	for attempt := 0; attempt < len(b.endpoints); attempt++ {
		if err := ctx.Err(); err != nil {
			return backend.Endpoint{}, err
		}

		ep := b.Next()
		err := call(ctx, ep)
		if err == nil {
			return ep, nil
		}

		lastErr = err
		b.logger.Warn("backend endpoint failed, trying next",
			"endpoint", ep.Address,
			"attempt", attempt+1,
			"of", len(b.endpoints),
			"error", err,
		)
	}

	return backend.Endpoint{}, &UnavailableError{
		Attempts: len(b.endpoints),
		LastErr:  lastErr,
	}
}
