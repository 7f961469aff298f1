package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORSMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		config     *CORSConfig
		method     string
		origin     string
		wantOrigin string
		wantStatus int
	}{
		{
			name:       "wildcard origin",
			config:     DefaultCORSConfig(),
			method:     "POST",
			origin:     "https://chat.example.com",
			wantOrigin: "https://chat.example.com",
			wantStatus: http.StatusOK,
		},
		{
			name: "listed origin",
			config: &CORSConfig{
				Enabled:        true,
				AllowedOrigins: []string{"https://chat.example.com"},
			},
			method:     "POST",
			origin:     "https://chat.example.com",
			wantOrigin: "https://chat.example.com",
			wantStatus: http.StatusOK,
		},
		{
			name: "unlisted origin",
			config: &CORSConfig{
				Enabled:        true,
				AllowedOrigins: []string{"https://chat.example.com"},
			},
			method:     "POST",
			origin:     "https://evil.example.com",
			wantOrigin: "",
			wantStatus: http.StatusOK,
		},
		{
			name:       "preflight",
			config:     DefaultCORSConfig(),
			method:     "OPTIONS",
			origin:     "https://chat.example.com",
			wantOrigin: "https://chat.example.com",
			wantStatus: http.StatusNoContent,
		},
		{
			name: "disabled",
			config: &CORSConfig{
				Enabled:        false,
				AllowedOrigins: []string{"*"},
			},
			method:     "POST",
			origin:     "https://chat.example.com",
			wantOrigin: "",
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := CORSMiddleware(tt.config)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			r := httptest.NewRequest(tt.method, "/v1/chat/completions", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestCORSMiddleware_PreflightHeaders(t *testing.T) {
	handler := CORSMiddleware(DefaultCORSConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("preflight request reached the handler")
	}))

	r := httptest.NewRequest("OPTIONS", "/v1/chat/completions", nil)
	r.Header.Set("Origin", "https://chat.example.com")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if got := w.Header().Get("Access-Control-Allow-Methods"); got == "" {
		t.Error("preflight response missing Access-Control-Allow-Methods")
	}
	if got := w.Header().Get("Access-Control-Max-Age"); got != "3600" {
		t.Errorf("Access-Control-Max-Age = %q, want 3600", got)
	}
}
