package usage

import "time"

// Protocol values recorded with each row.
const (
	ProtocolOpenAI = "openai"
	ProtocolOllama = "ollama"
)

// Record is one completed generation request.
type Record struct {
	// ID is the completion ID returned to the client.
	ID string

	// Protocol is ProtocolOpenAI or ProtocolOllama.
	Protocol string

	// Model is the model name echoed to the client.
	Model string

	// Endpoint is the backend address that served the session.
	Endpoint string

	// Streamed reports whether the response was streamed.
	Streamed bool

	// PromptTokens and CompletionTokens are whitespace estimates.
	PromptTokens     int
	CompletionTokens int

	// FaultRetries is how many reset+restart cycles the session needed.
	FaultRetries int

	// Duration is the wall-clock time from start call to final chunk.
	Duration time.Duration

	// CreatedAt is set by the store when zero.
	CreatedAt time.Time
}
