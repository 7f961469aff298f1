package types

// OllamaResponse is the Ollama wire shape shared by /api/chat and
// /api/generate, both as a buffered body and as one NDJSON line.
// Message and Response always carry the same text: older clients read
// the legacy response field while newer ones read message.content.
type OllamaResponse struct {
	// Model is the model name echoed from the request.
	Model string `json:"model"`

	// CreatedAt is an RFC 3339 timestamp.
	CreatedAt string `json:"created_at"`

	// Message holds the generated text in chat form.
	Message ChatMessage `json:"message"`

	// Response mirrors Message.Content for legacy generate clients.
	Response string `json:"response"`

	// Done is false on streaming content lines and true on the final
	// line and on buffered responses.
	Done bool `json:"done"`

	// TotalDuration is the wall-clock generation time in nanoseconds.
	// Only set when Done is true.
	TotalDuration int64 `json:"total_duration,omitempty"`

	// LoadDuration is reported as zero; the backends preload models.
	LoadDuration int64 `json:"load_duration,omitempty"`

	// PromptEvalCount is the estimated prompt token count.
	PromptEvalCount int `json:"prompt_eval_count,omitempty"`

	// EvalCount is the estimated completion token count.
	EvalCount int `json:"eval_count,omitempty"`

	// Context is always empty; the proxy keeps no conversation state.
	Context []int `json:"context,omitempty"`
}

// OllamaTagList is the GET /api/tags payload.
type OllamaTagList struct {
	Models []OllamaModel `json:"models"`
}

// OllamaModel describes one model entry in the tag list.
type OllamaModel struct {
	// Name is the model name including tag ("model:latest").
	Name string `json:"name"`

	// Model duplicates Name; newer Ollama clients read this field.
	Model string `json:"model"`

	// ModifiedAt is an RFC 3339 timestamp.
	ModifiedAt string `json:"modified_at"`

	// Size is a nominal size in bytes; the proxy does not host weights.
	Size int64 `json:"size"`

	// Digest identifies the model build.
	Digest string `json:"digest"`

	// Details carries family and quantization metadata.
	Details OllamaModelDetails `json:"details"`
}

// OllamaModelDetails is the details block of a tag list entry.
type OllamaModelDetails struct {
	Format            string   `json:"format"`
	Family            string   `json:"family"`
	Families          []string `json:"families"`
	ParameterSize     string   `json:"parameter_size"`
	QuantizationLevel string   `json:"quantization_level"`
}
