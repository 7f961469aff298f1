package proxy

import (
	"errors"
	"fmt"

	"halcyon-ai/relay/pkg/backend"
	"halcyon-ai/relay/pkg/proxy/types"
	"halcyon-ai/relay/pkg/routing"
)

// HandleError converts errors from parsing, routing, and the backend
// client into OpenAI-compatible error responses.
//
// Only errors raised before any content reaches the client go through
// this mapping. Faults detected mid-generation are degraded to in-band
// content by the session driver and never surface here.
func HandleError(err error) *types.ErrorResponse {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.ToErrorResponse()
	}

	var unavailableErr *routing.UnavailableError
	if errors.As(err, &unavailableErr) {
		return types.NewServiceUnavailableError(
			fmt.Sprintf("no backend accepted the request after %d attempts", unavailableErr.Attempts),
		)
	}

	var timeoutErr *backend.TimeoutError
	if errors.As(err, &timeoutErr) {
		return types.NewGatewayTimeoutError(
			fmt.Sprintf("backend request timed out: %v", timeoutErr),
		)
	}

	var statusErr *backend.StatusError
	if errors.As(err, &statusErr) {
		return types.NewBadGatewayError(
			fmt.Sprintf("backend returned unexpected status: %v", statusErr),
		)
	}

	var unreachableErr *backend.UnreachableError
	if errors.As(err, &unreachableErr) {
		return types.NewServiceUnavailableError(
			fmt.Sprintf("backend unreachable: %v", unreachableErr),
		)
	}

	return types.NewServerError(
		"An internal error occurred. Please try again later.",
	)
}
