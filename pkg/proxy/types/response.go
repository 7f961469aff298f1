package types

// ChatCompletionResponse represents an OpenAI-compatible chat completion
// response. This is returned for non-streaming requests.
type ChatCompletionResponse struct {
	// ID is a unique identifier for the chat completion ("chatcmpl-<uuid>").
	ID string `json:"id"`

	// Object is always "chat.completion".
	Object string `json:"object"`

	// Created is the Unix timestamp of when the completion was created.
	Created int64 `json:"created"`

	// Model is the model name echoed from the request.
	Model string `json:"model"`

	// Choices is a list of completion choices; the proxy always
	// produces exactly one.
	Choices []Choice `json:"choices"`

	// Usage contains whitespace-estimated token counts.
	Usage Usage `json:"usage"`
}

// Choice represents a single completion choice.
type Choice struct {
	// Index is the index of this choice in the list of choices.
	Index int `json:"index"`

	// Message is the generated message.
	Message ChatMessage `json:"message"`

	// FinishReason explains why generation stopped; always "stop" here,
	// the backends do not report truncation.
	FinishReason string `json:"finish_reason"`
}

// Usage contains token usage statistics. Counts are estimated by
// whitespace splitting; the backends expose no tokenizer.
type Usage struct {
	// PromptTokens is the estimated number of tokens in the prompt.
	PromptTokens int `json:"prompt_tokens"`

	// CompletionTokens is the estimated number of tokens generated.
	CompletionTokens int `json:"completion_tokens"`

	// TotalTokens is the sum of the two estimates.
	TotalTokens int `json:"total_tokens"`
}

// ChatCompletionStreamChunk represents one chunk in a streaming
// response, sent as a Server-Sent Event when stream=true.
type ChatCompletionStreamChunk struct {
	// ID is a unique identifier shared by all chunks of one completion.
	ID string `json:"id"`

	// Object is always "chat.completion.chunk".
	Object string `json:"object"`

	// Created is the Unix timestamp of when the chunk was created.
	Created int64 `json:"created"`

	// Model is the model name echoed from the request.
	Model string `json:"model"`

	// Choices is a list of streaming choices.
	Choices []StreamChoice `json:"choices"`
}

// StreamChoice represents a single choice in a streaming response.
type StreamChoice struct {
	// Index is the index of this choice in the list of choices.
	Index int `json:"index"`

	// Delta contains incremental content.
	Delta Delta `json:"delta"`

	// FinishReason is null on content chunks and "stop" on the final
	// chunk before the [DONE] sentinel.
	FinishReason *string `json:"finish_reason"`
}

// Delta contains incremental content in a streaming response.
type Delta struct {
	// Role is the role of the message author (only in the first chunk).
	Role string `json:"role,omitempty"`

	// Content is the incremental text content.
	Content string `json:"content,omitempty"`
}

// ModelList is the GET /v1/models payload.
type ModelList struct {
	// Object is always "list".
	Object string `json:"object"`

	// Data holds the advertised models.
	Data []Model `json:"data"`
}

// Model describes one entry in the model list.
type Model struct {
	// ID is the model identifier clients pass back in requests.
	ID string `json:"id"`

	// Object is always "model".
	Object string `json:"object"`

	// Created is the Unix timestamp the model became available.
	Created int64 `json:"created"`

	// OwnedBy names the owning organization.
	OwnedBy string `json:"owned_by"`
}
