package backend

import "time"

// Endpoint identifies one configured accelerator backend instance.
// The set of endpoints is fixed at startup; membership never changes at
// runtime. No per-endpoint health state is kept across requests: health
// is discovered only by failed calls within a request's attempt loop.
type Endpoint struct {
	// Address is the backend base URL (e.g., "http://127.0.0.1:8000").
	Address string

	// Ordinal is the endpoint's position in the configured rotation order.
	Ordinal int
}

// String returns the endpoint address for logging.
func (e Endpoint) String() string {
	return e.Address
}

// GenerateRequest is the body of a start-generation call.
type GenerateRequest struct {
	// Prompt is the flattened conversation text, ending with the
	// assistant cue.
	Prompt string `json:"prompt"`

	// Temperature is the sampling temperature forwarded to the backend.
	Temperature float64 `json:"temperature"`

	// TopK is the top-k sampling cutoff. The backend's wire name uses a
	// hyphen, not an underscore.
	TopK int `json:"top-k"`
}

// PollChunk is one unit of generation output returned by a poll call.
type PollChunk struct {
	// Text is the chunk of generated text, possibly empty.
	Text string `json:"response"`

	// Done reports whether generation has completed. A done chunk may
	// still carry trailing text.
	Done bool `json:"done"`
}

// ClientConfig contains configuration for the backend HTTP client.
type ClientConfig struct {
	// CallTimeout bounds each individual start/poll/reset call.
	// Default: 10s.
	CallTimeout time.Duration

	// HealthTimeout bounds health probe calls. Default: 5s.
	HealthTimeout time.Duration

	// MaxIdleConns is the connection pool size. Default: 32.
	MaxIdleConns int

	// MaxIdleConnsPerHost is the per-backend pool size. Default: 8.
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long idle connections are kept. Default: 90s.
	IdleConnTimeout time.Duration

	// Observer, when set, receives the outcome of every backend call.
	Observer CallObserver
}

// CallObserver receives backend call outcomes. op is "start", "poll",
// "reset", or "health"; status is "ok" or "error". Implementations must
// be safe for concurrent use.
type CallObserver interface {
	RecordBackendCall(endpoint, op, status string)
}

// withDefaults returns the config with zero fields replaced by defaults.
func (c ClientConfig) withDefaults() ClientConfig {
	if c.CallTimeout <= 0 {
		c.CallTimeout = 10 * time.Second
	}
	if c.HealthTimeout <= 0 {
		c.HealthTimeout = 5 * time.Second
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 32
	}
	if c.MaxIdleConnsPerHost <= 0 {
		c.MaxIdleConnsPerHost = 8
	}
	if c.IdleConnTimeout <= 0 {
		c.IdleConnTimeout = 90 * time.Second
	}
	return c
}
