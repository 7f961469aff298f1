package proxy

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"halcyon-ai/relay/pkg/backend"
	"halcyon-ai/relay/pkg/proxy/types"
	"halcyon-ai/relay/pkg/routing"
)

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantType   string
		wantStatus int
	}{
		{
			name:       "request error",
			err:        &RequestError{Message: "model is required", Code: types.CodeInvalidValue, Param: "model"},
			wantType:   types.ErrorTypeInvalidRequest,
			wantStatus: 400,
		},
		{
			name:       "rotation exhausted",
			err:        &routing.UnavailableError{Attempts: 3, LastErr: errors.New("refused")},
			wantType:   types.ErrorTypeServiceUnavailable,
			wantStatus: 503,
		},
		{
			name:       "backend timeout",
			err:        &backend.TimeoutError{Endpoint: backend.Endpoint{Address: "http://b1:8080"}, Op: "start", Timeout: 10 * time.Second},
			wantType:   types.ErrorTypeGatewayTimeout,
			wantStatus: 504,
		},
		{
			name:       "backend bad status",
			err:        &backend.StatusError{Endpoint: backend.Endpoint{Address: "http://b1:8080"}, Op: "start", StatusCode: 500},
			wantType:   types.ErrorTypeBadGateway,
			wantStatus: 502,
		},
		{
			name:       "backend unreachable",
			err:        &backend.UnreachableError{Endpoint: backend.Endpoint{Address: "http://b1:8080"}, Op: "poll", Cause: errors.New("refused")},
			wantType:   types.ErrorTypeServiceUnavailable,
			wantStatus: 503,
		},
		{
			name:       "unknown error",
			err:        errors.New("boom"),
			wantType:   types.ErrorTypeServerError,
			wantStatus: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := HandleError(tt.err)
			if resp.Error.Type != tt.wantType {
				t.Errorf("type = %q, want %q", resp.Error.Type, tt.wantType)
			}
			if got := resp.Error.HTTPStatusCode(); got != tt.wantStatus {
				t.Errorf("status = %d, want %d", got, tt.wantStatus)
			}
		})
	}
}

func TestHandleError_WrappedErrors(t *testing.T) {
	inner := &routing.UnavailableError{Attempts: 2, LastErr: errors.New("refused")}
	wrapped := fmt.Errorf("starting generation: %w", inner)

	resp := HandleError(wrapped)
	if resp.Error.Type != types.ErrorTypeServiceUnavailable {
		t.Errorf("type = %q, want service_unavailable for wrapped error", resp.Error.Type)
	}
}
