package session

import (
	"time"

	"halcyon-ai/relay/pkg/backend"
)

// State is a phase of the generation state machine.
type State int

// Generation states. StateDone is terminal.
const (
	StateStarted State = iota
	StatePolling
	StateFaultDetected
	StateResetting
	StateRestarted
	StateDone
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateStarted:
		return "STARTED"
	case StatePolling:
		return "POLLING"
	case StateFaultDetected:
		return "FAULT_DETECTED"
	case StateResetting:
		return "RESETTING"
	case StateRestarted:
		return "RESTARTED"
	case StateDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// Session is the ephemeral per-request generation state. It is created by
// Driver.Start and consumed by exactly one Collect or Stream call; it is
// not safe for concurrent use and carries no cross-request identity.
type Session struct {
	// Endpoint is the backend that accepted the start call. Every poll
	// and reset for this session targets it; polling another endpoint
	// would read an unrelated generation.
	Endpoint backend.Endpoint

	// Prompt is the flattened prompt, kept for fault-recovery restarts.
	Prompt string

	// Temperature is the sampling temperature used for this session.
	Temperature float64

	// Retries counts fault-recovery restarts performed so far.
	Retries int

	// StartedAt is when the start call was accepted. Reset on restart so
	// duration reporting covers the accepted generation only.
	StartedAt time.Time

	state State
}

// State returns the session's current state.
func (s *Session) State() State {
	return s.state
}

// Chunk is one unit of streamed output delivered to a protocol adapter.
// The final chunk has Done set and empty text.
type Chunk struct {
	Text string
	Done bool
}
