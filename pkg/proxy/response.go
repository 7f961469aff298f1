package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"halcyon-ai/relay/pkg/proxy/types"
)

// NewCompletionID generates a unique completion ID in OpenAI's
// "chatcmpl-<id>" format.
func NewCompletionID() string {
	return "chatcmpl-" + uuid.NewString()
}

// FormatChatCompletionResponse wraps completed generation text in the
// OpenAI chat completion format: a single assistant choice with
// finish_reason "stop" and whitespace-estimated usage counts.
func FormatChatCompletionResponse(id, model, promptText, content string) *types.ChatCompletionResponse {
	promptTokens := EstimateTokens(promptText)
	completionTokens := EstimateTokens(content)

	return &types.ChatCompletionResponse{
		ID:      id,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []types.Choice{
			{
				Index: 0,
				Message: types.ChatMessage{
					Role:    "assistant",
					Content: content,
				},
				FinishReason: "stop",
			},
		},
		Usage: types.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
	}
}

// FormatStreamChunk wraps one text delta in the OpenAI streaming chunk
// format. All chunks of one completion share the same id. finishReason
// is empty on content chunks and "stop" on the final chunk.
func FormatStreamChunk(id, model, delta, finishReason string) *types.ChatCompletionStreamChunk {
	chunk := &types.ChatCompletionStreamChunk{
		ID:      id,
		Object:  "chat.completion.chunk",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []types.StreamChoice{
			{
				Index: 0,
				Delta: types.Delta{Content: delta},
			},
		},
	}

	if finishReason != "" {
		chunk.Choices[0].FinishReason = &finishReason
	}

	return chunk
}

// FormatOllamaResponse wraps generation text in the Ollama format, with
// the text mirrored into both the message and the legacy response
// field. Duration and usage fields are populated only when done is set.
func FormatOllamaResponse(model, promptText, content string, done bool, elapsed time.Duration) *types.OllamaResponse {
	resp := &types.OllamaResponse{
		Model:     model,
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
		Message: types.ChatMessage{
			Role:    "assistant",
			Content: content,
		},
		Response: content,
		Done:     done,
	}

	if done {
		resp.TotalDuration = elapsed.Nanoseconds()
		resp.PromptEvalCount = EstimateTokens(promptText)
		resp.EvalCount = EstimateTokens(content)
		resp.Context = []int{}
	}

	return resp
}

// WriteJSONResponse writes a JSON response with the given status code.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON response: %w", err)
	}

	return nil
}

// WriteErrorResponse writes an OpenAI-compatible error response with the
// status code derived from the error type.
func WriteErrorResponse(w http.ResponseWriter, errResp *types.ErrorResponse) error {
	statusCode := errResp.Error.HTTPStatusCode()
	return WriteJSONResponse(w, statusCode, errResp)
}

// SetSSEHeaders sets the headers for Server-Sent Events streaming.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

// WriteSSEChunk writes one chunk as an SSE event:
//
//	data: {"id":"chatcmpl-...","object":"chat.completion.chunk",...}
//
// followed by a blank line, and flushes so clients see it immediately.
func WriteSSEChunk(w http.ResponseWriter, chunk *types.ChatCompletionStreamChunk) error {
	data, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("failed to marshal SSE chunk: %w", err)
	}

	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("failed to write SSE chunk: %w", err)
	}

	flush(w)
	return nil
}

// WriteSSEDone writes the literal "[DONE]" terminator that ends an
// OpenAI SSE stream.
func WriteSSEDone(w http.ResponseWriter) error {
	if _, err := fmt.Fprint(w, "data: [DONE]\n\n"); err != nil {
		return fmt.Errorf("failed to write SSE done marker: %w", err)
	}

	flush(w)
	return nil
}

// SetNDJSONHeaders sets the headers for Ollama's newline-delimited JSON
// streaming.
func SetNDJSONHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
}

// WriteNDJSONLine writes one response object as a single NDJSON line and
// flushes it.
func WriteNDJSONLine(w http.ResponseWriter, resp *types.OllamaResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal NDJSON line: %w", err)
	}

	if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
		return fmt.Errorf("failed to write NDJSON line: %w", err)
	}

	flush(w)
	return nil
}

func flush(w http.ResponseWriter) {
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}
