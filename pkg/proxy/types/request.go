package types

import "fmt"

// ChatCompletionRequest represents an OpenAI-compatible chat completion
// request. It matches the OpenAI Chat Completions API format so that
// existing OpenAI SDKs work against the proxy unmodified. Fields the
// accelerator backends cannot honor (top_p, stop, max_tokens) are
// accepted and ignored.
type ChatCompletionRequest struct {
	// Model is the ID of the model to use. The proxy serves a single
	// model; the value is echoed back in responses.
	Model string `json:"model"`

	// Messages is the conversation history as a list of messages.
	Messages []ChatMessage `json:"messages"`

	// Temperature controls randomness in the response (0.0 to 2.0).
	// Optional, defaults to 0.7.
	Temperature *float64 `json:"temperature,omitempty"`

	// MaxTokens is accepted for SDK compatibility and ignored.
	MaxTokens *int `json:"max_tokens,omitempty"`

	// TopP is accepted for SDK compatibility and ignored.
	TopP *float64 `json:"top_p,omitempty"`

	// N is the number of completions to generate. Only 1 is supported.
	N *int `json:"n,omitempty"`

	// Stream enables server-sent events (SSE) streaming.
	// Optional, defaults to false.
	Stream bool `json:"stream,omitempty"`

	// Stop is accepted for SDK compatibility and ignored.
	Stop []string `json:"stop,omitempty"`

	// User is a unique identifier for the end-user making the request.
	User string `json:"user,omitempty"`
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is the author of the message ("system", "user", or "assistant").
	Role string `json:"role"`

	// Content is the text content of the message.
	Content string `json:"content"`

	// Name is the name of the author (optional).
	Name string `json:"name,omitempty"`
}

// OllamaChatRequest represents an Ollama-style request. The same shape
// serves /api/chat (messages populated) and /api/generate (prompt
// populated); when both are present, messages win.
type OllamaChatRequest struct {
	// Model is the model name; echoed back in responses.
	Model string `json:"model"`

	// Messages is the conversation history (for /api/chat).
	Messages []ChatMessage `json:"messages,omitempty"`

	// Prompt is a raw prompt string (for /api/generate).
	Prompt string `json:"prompt,omitempty"`

	// Stream selects NDJSON streaming. A missing field means a single
	// buffered response.
	Stream *bool `json:"stream,omitempty"`

	// Options carries Ollama generation options; only temperature is
	// honored.
	Options *OllamaOptions `json:"options,omitempty"`
}

// OllamaOptions is the subset of Ollama generation options the proxy
// reads.
type OllamaOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
}

// Streaming reports whether the request asked for NDJSON streaming.
// An omitted stream field means buffered.
func (r *OllamaChatRequest) Streaming() bool {
	if r.Stream == nil {
		return false
	}
	return *r.Stream
}

// Validate checks that required fields are present and values are
// within acceptable ranges.
func (r *ChatCompletionRequest) Validate() error {
	if r.Model == "" {
		return &ValidationError{
			Field:   "model",
			Message: "model is required",
		}
	}

	if len(r.Messages) == 0 {
		return &ValidationError{
			Field:   "messages",
			Message: "messages must contain at least one message",
		}
	}

	if r.Temperature != nil && (*r.Temperature < 0.0 || *r.Temperature > 2.0) {
		return &ValidationError{
			Field:   "temperature",
			Message: "temperature must be between 0.0 and 2.0",
		}
	}

	if r.N != nil && *r.N != 1 {
		return &ValidationError{
			Field:   "n",
			Message: "only n=1 is supported",
		}
	}

	for i, msg := range r.Messages {
		if msg.Role == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("messages[%d].role", i),
				Message: "message role is required",
			}
		}
	}

	return nil
}

// Validate checks that the Ollama request carries a model and either
// messages or a prompt.
func (r *OllamaChatRequest) Validate() error {
	if r.Model == "" {
		return &ValidationError{
			Field:   "model",
			Message: "model is required",
		}
	}

	if len(r.Messages) == 0 && r.Prompt == "" {
		return &ValidationError{
			Field:   "messages",
			Message: "either messages or prompt is required",
		}
	}

	for i, msg := range r.Messages {
		if msg.Role == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("messages[%d].role", i),
				Message: "message role is required",
			}
		}
	}

	return nil
}

// ValidationError represents a request validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Message
}
