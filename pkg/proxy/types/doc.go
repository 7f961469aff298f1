// Package types defines the wire types for both client protocols the
// proxy speaks.
//
// Request types:
//   - ChatCompletionRequest: body for POST /v1/chat/completions
//   - OllamaChatRequest: body for POST /api/chat and POST /api/generate
//   - ChatMessage: one message in the conversation history
//
// Response types:
//   - ChatCompletionResponse: non-streaming OpenAI response
//   - ChatCompletionStreamChunk: one SSE event when stream=true
//   - OllamaResponse: Ollama response, both buffered and NDJSON lines
//   - ModelList / OllamaTagList: model discovery payloads
//
// Error types:
//   - ErrorResponse / ErrorDetail: OpenAI-compatible error envelope,
//     used for every error on every route so OpenAI SDKs parse them
//
// Field names follow each upstream API's snake_case JSON convention.
// The accelerator backends only consume text, so message content is a
// plain string rather than the multimodal content-part array.
package types
