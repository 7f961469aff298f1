package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestIDMiddleware_GeneratesID(t *testing.T) {
	var seenID string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	if seenID == "" {
		t.Fatal("no request ID in handler context")
	}
	if got := w.Header().Get(RequestIDHeader); got != seenID {
		t.Errorf("response header ID = %q, context ID = %q", got, seenID)
	}
}

func TestRequestIDMiddleware_HonorsClientID(t *testing.T) {
	var seenID string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
	}))

	r := httptest.NewRequest("GET", "/health", nil)
	r.Header.Set(RequestIDHeader, "client-supplied-id")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if seenID != "client-supplied-id" {
		t.Errorf("context ID = %q, want client-supplied-id", seenID)
	}
	if got := w.Header().Get(RequestIDHeader); got != "client-supplied-id" {
		t.Errorf("response header ID = %q, want client-supplied-id", got)
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	r := httptest.NewRequest("GET", "/health", nil)
	if got := GetRequestID(r.Context()); got != "" {
		t.Errorf("GetRequestID() = %q, want empty for bare context", got)
	}
}
