// Package server assembles the HTTP surface of the relay proxy: route
// registration, the middleware chain, and graceful lifecycle handling.
//
// The server exposes the OpenAI-compatible endpoints
// (/v1/chat/completions, /v1/models), the Ollama-compatible endpoints
// (/api/chat, /api/generate, /api/tags), the aggregate /health check,
// and, when metrics are enabled, the Prometheus exposition endpoint.
//
// The server never sets a write timeout by default: generations on the
// accelerator fleet can stream for minutes.
package server
