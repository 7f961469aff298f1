package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"halcyon-ai/relay/internal/backendtest"
)

func testEndpoint(url string) Endpoint {
	return Endpoint{Address: url, Ordinal: 0}
}

func TestClient_StartGeneration(t *testing.T) {
	mock := backendtest.NewServer(backendtest.Script{{Text: "hi", Done: true}})
	defer mock.Close()

	client := NewClient(ClientConfig{})
	err := client.StartGeneration(context.Background(), testEndpoint(mock.URL()), GenerateRequest{
		Prompt:      "hello\n\nAssistant:",
		Temperature: 0.7,
		TopK:        40,
	})
	if err != nil {
		t.Fatalf("StartGeneration() error = %v", err)
	}

	if mock.StartCalls() != 1 {
		t.Errorf("start calls = %d, want 1", mock.StartCalls())
	}
	if mock.LastPrompt() != "hello\n\nAssistant:" {
		t.Errorf("prompt forwarded = %q", mock.LastPrompt())
	}
}

func TestClient_PollChunk(t *testing.T) {
	mock := backendtest.NewServer(backendtest.Script{
		{Text: "hi", Done: false},
		{Text: "", Done: true},
	})
	defer mock.Close()

	client := NewClient(ClientConfig{})
	ep := testEndpoint(mock.URL())
	ctx := context.Background()

	if err := client.StartGeneration(ctx, ep, GenerateRequest{Prompt: "p"}); err != nil {
		t.Fatalf("StartGeneration() error = %v", err)
	}

	first, err := client.PollChunk(ctx, ep)
	if err != nil {
		t.Fatalf("PollChunk() error = %v", err)
	}
	if first.Text != "hi" || first.Done {
		t.Errorf("first chunk = %+v, want text %q done=false", first, "hi")
	}

	second, err := client.PollChunk(ctx, ep)
	if err != nil {
		t.Fatalf("PollChunk() error = %v", err)
	}
	if !second.Done {
		t.Errorf("second chunk = %+v, want done=true", second)
	}
}

func TestClient_PollChunk_SlowBody(t *testing.T) {
	// Headers arrive immediately but the body lags well past the round
	// trip. The chunk must still come back intact: the body read happens
	// inside the call deadline, not after it.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		time.Sleep(150 * time.Millisecond)
		w.Write([]byte(`{"response":"hi","done":true}`)) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{})
	chunk, err := client.PollChunk(context.Background(), testEndpoint(srv.URL))
	if err != nil {
		t.Fatalf("PollChunk() error = %v, want nil for slow body", err)
	}
	if chunk.Text != "hi" || !chunk.Done {
		t.Errorf("chunk = %+v, want text %q done=true", chunk, "hi")
	}
}

func TestClient_PollChunk_MalformedBodyDegradesToEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all")) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{})
	chunk, err := client.PollChunk(context.Background(), testEndpoint(srv.URL))
	if err != nil {
		t.Fatalf("PollChunk() error = %v, want nil for malformed body", err)
	}
	if chunk.Text != "" || chunk.Done {
		t.Errorf("chunk = %+v, want empty not-done chunk", chunk)
	}
}

func TestClient_Unreachable(t *testing.T) {
	// A closed server guarantees connection refused.
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(ClientConfig{})
	err := client.StartGeneration(context.Background(), testEndpoint(url), GenerateRequest{Prompt: "p"})

	var unreachable *UnreachableError
	if !errors.As(err, &unreachable) {
		t.Fatalf("StartGeneration() error = %v, want *UnreachableError", err)
	}
	if unreachable.Op != "start" {
		t.Errorf("Op = %q, want %q", unreachable.Op, "start")
	}
}

func TestClient_CallTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{CallTimeout: 20 * time.Millisecond})
	_, err := client.PollChunk(context.Background(), testEndpoint(srv.URL))

	var timeout *TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("PollChunk() error = %v, want *TimeoutError", err)
	}
}

func TestClient_Reset(t *testing.T) {
	mock := backendtest.NewServer()
	defer mock.Close()

	client := NewClient(ClientConfig{})
	if err := client.Reset(context.Background(), testEndpoint(mock.URL())); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if mock.ResetCalls() != 1 {
		t.Errorf("reset calls = %d, want 1", mock.ResetCalls())
	}
}

type recordedCall struct {
	endpoint, op, status string
}

type fakeCallObserver struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (o *fakeCallObserver) RecordBackendCall(endpoint, op, status string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, recordedCall{endpoint, op, status})
}

func TestClient_Observer(t *testing.T) {
	mock := backendtest.NewServer(backendtest.Script{{Text: "hi", Done: true}})
	defer mock.Close()

	observer := &fakeCallObserver{}
	client := NewClient(ClientConfig{Observer: observer})
	ep := testEndpoint(mock.URL())
	ctx := context.Background()

	if err := client.StartGeneration(ctx, ep, GenerateRequest{Prompt: "p"}); err != nil {
		t.Fatalf("StartGeneration() error = %v", err)
	}
	if err := client.Health(ctx, ep); err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	mock.SetHealthy(false)
	client.Health(ctx, ep) //nolint:errcheck

	want := []recordedCall{
		{mock.URL(), "start", "ok"},
		{mock.URL(), "health", "ok"},
		{mock.URL(), "health", "error"},
	}
	observer.mu.Lock()
	defer observer.mu.Unlock()
	if len(observer.calls) != len(want) {
		t.Fatalf("calls = %+v, want %+v", observer.calls, want)
	}
	for i, call := range observer.calls {
		if call != want[i] {
			t.Errorf("call[%d] = %+v, want %+v", i, call, want[i])
		}
	}
}

func TestClient_Health(t *testing.T) {
	mock := backendtest.NewServer()
	defer mock.Close()

	client := NewClient(ClientConfig{})
	ep := testEndpoint(mock.URL())

	if err := client.Health(context.Background(), ep); err != nil {
		t.Errorf("Health() error = %v, want nil", err)
	}

	mock.SetHealthy(false)
	err := client.Health(context.Background(), ep)
	var status *StatusError
	if !errors.As(err, &status) {
		t.Errorf("Health() error = %v, want *StatusError", err)
	}
}
