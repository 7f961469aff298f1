package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Client is the shared HTTP transport for all accelerator backends.
// One Client serves every configured endpoint; it holds a long-lived
// connection pool and is safe for concurrent use.
type Client struct {
	config ClientConfig
	http   *http.Client
	logger *slog.Logger
}

// NewClient creates a backend client with a pooled transport.
func NewClient(config ClientConfig) *Client {
	config = config.withDefaults()

	transport := &http.Transport{
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &Client{
		config: config,
		// Per-call deadlines come from contexts, not a client-wide
		// timeout: a client timeout would also bound poll response
		// streaming, which the call sites control themselves.
		http:   &http.Client{Transport: transport},
		logger: slog.Default().With("component", "backend.client"),
	}
}

// StartGeneration issues a fire-and-forget start-generation call. The
// backend begins producing output that must be collected with PollChunk
// against the same endpoint.
func (c *Client) StartGeneration(ctx context.Context, ep Endpoint, req GenerateRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal generate request: %w", err)
	}

	// The start response body carries no information the proxy uses;
	// generation output arrives via polling.
	if _, err := c.do(ctx, ep, "start", http.MethodPost, ep.Address+"/api/generate", body); err != nil {
		return err
	}
	return nil
}

// PollChunk fetches the next chunk of generation output from the endpoint
// that owns the session. A malformed response body degrades to an empty
// chunk so that polling can continue.
func (c *Client) PollChunk(ctx context.Context, ep Endpoint) (PollChunk, error) {
	data, err := c.do(ctx, ep, "poll", http.MethodGet, ep.Address+"/api/generate_provider", nil)
	if err != nil {
		return PollChunk{}, err
	}

	var chunk PollChunk
	if err := json.Unmarshal(data, &chunk); err != nil {
		c.logger.Debug("malformed poll response, treating as empty chunk",
			"endpoint", ep.Address,
			"error", err,
		)
		return PollChunk{}, nil
	}

	return chunk, nil
}

// Reset clears the endpoint's corrupted internal cache state after a
// detected fault. It must target the endpoint that produced the fault.
func (c *Client) Reset(ctx context.Context, ep Endpoint) error {
	if _, err := c.do(ctx, ep, "reset", http.MethodPost, ep.Address+"/api/reset", []byte("{}")); err != nil {
		return err
	}
	return nil
}

// Health probes the endpoint's own health endpoint.
func (c *Client) Health(ctx context.Context, ep Endpoint) error {
	callCtx, cancel := context.WithTimeout(ctx, c.config.HealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, ep.Address+"/health", nil)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(ep, "health", "error")
		return c.transportError(callCtx, ep, "health", c.config.HealthTimeout, err)
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.observe(ep, "health", "error")
		return &StatusError{Endpoint: ep, Op: "health", StatusCode: resp.StatusCode}
	}
	c.observe(ep, "health", "ok")
	return nil
}

// do performs one backend call with the per-call timeout, reads the full
// response body, and maps transport failures onto the package error
// types. The body must be consumed here: the call context is cancelled
// when do returns, and cancellation kills any body read still in flight.
func (c *Client) do(ctx context.Context, ep Endpoint, op, method, url string, body []byte) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.config.CallTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(callCtx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(ep, op, "error")
		return nil, c.transportError(callCtx, ep, op, c.config.CallTimeout, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.observe(ep, op, "error")
		return nil, c.transportError(callCtx, ep, op, c.config.CallTimeout, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(data) > 512 {
			data = data[:512]
		}
		c.observe(ep, op, "error")
		return nil, &StatusError{
			Endpoint:   ep,
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}

	c.observe(ep, op, "ok")
	return data, nil
}

// observe reports one call outcome to the configured observer.
func (c *Client) observe(ep Endpoint, op, status string) {
	if c.config.Observer != nil {
		c.config.Observer.RecordBackendCall(ep.Address, op, status)
	}
}

// transportError distinguishes per-call timeouts from other transport
// failures. Caller cancellation is passed through untouched.
func (c *Client) transportError(callCtx context.Context, ep Endpoint, op string, timeout time.Duration, err error) error {
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Endpoint: ep, Op: op, Timeout: timeout}
	}
	if errors.Is(err, context.Canceled) {
		return context.Canceled
	}
	return &UnreachableError{Endpoint: ep, Op: op, Cause: err}
}

// drain discards and closes a response body so the connection can be
// reused by the pool.
func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck
	resp.Body.Close()
}
