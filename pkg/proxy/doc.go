// Package proxy implements the protocol adapter layer between chat
// clients and the accelerator session driver.
//
// The proxy accepts two client dialects against one backend protocol:
//
//   - OpenAI chat completions (POST /v1/chat/completions), buffered
//     JSON or SSE streaming with a literal "data: [DONE]" terminator
//   - Ollama (POST /api/chat, POST /api/generate), buffered JSON or
//     newline-delimited JSON streaming with a final done:true line
//
// This package holds the pieces shared by both dialects: request
// parsing with size limits, response formatting, SSE and NDJSON
// writers, token estimation, and the error-to-HTTP mapping. The
// per-route handlers live in the handlers subpackage and the wire
// types in the types subpackage.
//
// # Token estimation
//
// The backends expose no tokenizer, so usage counts are estimated by
// whitespace splitting. The estimates exist to keep response schemas
// complete for SDK clients, not for billing.
//
// # Error mapping
//
// Errors surface in OpenAI's error envelope on every route:
//
//   - request parsing and validation failures: 400
//   - every backend refused the start call: 503
//   - a backend call timed out: 504
//   - a backend answered with an unexpected status: 502
//   - anything else: 500
//
// Backend faults detected mid-generation never reach this mapping; the
// session driver degrades them to in-band content.
package proxy
