// Package handlers implements the per-route HTTP handlers.
//
// Each handler translates one client dialect into the shared generation
// pipeline: render the conversation to a prompt, start a session through
// the balancer, drive it to completion (buffered or streaming), and
// render the result back in the caller's wire format.
//
// Handlers:
//   - ChatCompletionsHandler: POST /v1/chat/completions (OpenAI)
//   - OllamaHandler: POST /api/chat and POST /api/generate
//   - ModelsHandler: GET /v1/models
//   - TagsHandler: GET /api/tags
//   - HealthHandler: GET /health, probing every backend
//
// Dependencies are passed in as small interfaces (Generator,
// UsageRecorder, HealthProber) so tests can run handlers against the
// mock backend without the full server wiring.
package handlers
