package proxy

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"halcyon-ai/relay/pkg/proxy/types"
)

const (
	// MaxRequestBodySize is the maximum allowed request body size (10MB).
	MaxRequestBodySize = 10 * 1024 * 1024

	// RequestIDHeader is the HTTP header for request ID propagation.
	RequestIDHeader = "X-Request-ID"
)

// ParseChatCompletionRequest parses an HTTP request body into a
// ChatCompletionRequest. It enforces the size limit, validates the JSON,
// and validates required fields.
func ParseChatCompletionRequest(r *http.Request) (*types.ChatCompletionRequest, error) {
	body, err := readBody(r)
	if err != nil {
		return nil, err
	}

	var req types.ChatCompletionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, &RequestError{
			Message: fmt.Sprintf("invalid JSON: %v", err),
			Code:    types.CodeInvalidJSON,
			Param:   "body",
		}
	}

	if err := req.Validate(); err != nil {
		return nil, asRequestError(err)
	}

	return &req, nil
}

// ParseOllamaRequest parses an HTTP request body into an
// OllamaChatRequest. The same shape serves /api/chat and /api/generate.
func ParseOllamaRequest(r *http.Request) (*types.OllamaChatRequest, error) {
	body, err := readBody(r)
	if err != nil {
		return nil, err
	}

	var req types.OllamaChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, &RequestError{
			Message: fmt.Sprintf("invalid JSON: %v", err),
			Code:    types.CodeInvalidJSON,
			Param:   "body",
		}
	}

	if err := req.Validate(); err != nil {
		return nil, asRequestError(err)
	}

	return &req, nil
}

// readBody reads the request body under the size limit.
func readBody(r *http.Request) ([]byte, error) {
	limitedReader := io.LimitReader(r.Body, MaxRequestBodySize)

	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}

	if len(body) >= MaxRequestBodySize {
		return nil, &RequestError{
			Message: fmt.Sprintf("request body exceeds maximum size of %d bytes", MaxRequestBodySize),
			Code:    types.CodeRequestTooLarge,
			Param:   "body",
		}
	}

	return body, nil
}

// asRequestError converts a types.ValidationError into a RequestError,
// passing any other error through.
func asRequestError(err error) error {
	if valErr, ok := err.(*types.ValidationError); ok {
		return &RequestError{
			Message: valErr.Message,
			Code:    types.CodeInvalidValue,
			Param:   valErr.Field,
		}
	}
	return err
}

// ExtractRequestID extracts the request ID from the X-Request-ID header.
// If the header is not present, it returns an empty string and the
// middleware generates one.
func ExtractRequestID(r *http.Request) string {
	return r.Header.Get(RequestIDHeader)
}

// RequestError represents a request parsing or validation error.
type RequestError struct {
	Message string
	Code    string
	Param   string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return e.Message
}

// ToErrorResponse converts a RequestError to an OpenAI-compatible error
// response.
func (e *RequestError) ToErrorResponse() *types.ErrorResponse {
	return types.NewInvalidRequestError(e.Message, e.Param, e.Code)
}
