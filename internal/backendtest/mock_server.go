// Package backendtest provides a mock accelerator backend for tests.
//
// The mock implements the backend's asynchronous generation protocol:
// start calls enqueue a scripted chunk sequence, poll calls replay it one
// chunk at a time, and reset calls are recorded so tests can assert on
// fault-recovery behavior.
package backendtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
)

// Chunk is one scripted poll response.
type Chunk struct {
	Text string
	Done bool
}

// Script is the sequence of chunks one generation produces. After a reset
// and restart the next Script in the queue is used, so tests can model a
// faulting first attempt followed by a clean retry.
type Script []Chunk

// Server is a mock accelerator backend.
type Server struct {
	server *httptest.Server

	mu          sync.Mutex
	scripts     []Script
	current     Script
	pos         int
	startCalls  int
	resetCalls  int
	pollCalls   int
	healthCalls int
	lastPrompt  string
	healthy     bool
}

// NewServer creates and starts a mock backend. Close must be called when
// the test finishes.
func NewServer(scripts ...Script) *Server {
	s := &Server{
		scripts: scripts,
		healthy: true,
	}
	s.server = httptest.NewServer(http.HandlerFunc(s.handler))
	return s
}

// URL returns the mock backend's base URL.
func (s *Server) URL() string {
	return s.server.URL
}

// Close shuts down the mock backend.
func (s *Server) Close() {
	s.server.Close()
}

// StartCalls returns how many start-generation calls were received.
func (s *Server) StartCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startCalls
}

// ResetCalls returns how many reset calls were received.
func (s *Server) ResetCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetCalls
}

// PollCalls returns how many poll calls were received.
func (s *Server) PollCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pollCalls
}

// LastPrompt returns the prompt of the most recent start call.
func (s *Server) LastPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPrompt
}

// SetHealthy controls the /health probe result.
func (s *Server) SetHealthy(healthy bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthy = healthy
}

func (s *Server) handler(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/generate":
		s.handleStart(w, r)
	case "/api/generate_provider":
		s.handlePoll(w)
	case "/api/reset":
		s.handleReset(w)
	case "/health":
		s.handleHealth(w)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Prompt string `json:"prompt"`
	}
	json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck

	s.mu.Lock()
	s.startCalls++
	s.lastPrompt = body.Prompt
	if len(s.scripts) > 0 {
		s.current = s.scripts[0]
		s.scripts = s.scripts[1:]
	} else {
		s.current = nil
	}
	s.pos = 0
	s.mu.Unlock()

	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handlePoll(w http.ResponseWriter) {
	s.mu.Lock()
	s.pollCalls++
	var chunk Chunk
	if s.pos < len(s.current) {
		chunk = s.current[s.pos]
		s.pos++
	} else {
		// A drained script keeps reporting done; real backends idle the
		// same way after a completed generation.
		chunk = Chunk{Done: true}
	}
	s.mu.Unlock()

	writeJSON(w, map[string]any{"response": chunk.Text, "done": chunk.Done})
}

func (s *Server) handleReset(w http.ResponseWriter) {
	s.mu.Lock()
	s.resetCalls++
	s.mu.Unlock()
	writeJSON(w, map[string]string{"status": "reset"})
}

func (s *Server) handleHealth(w http.ResponseWriter) {
	s.mu.Lock()
	s.healthCalls++
	healthy := s.healthy
	s.mu.Unlock()

	if !healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
