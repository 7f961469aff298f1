package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"halcyon-ai/relay/internal/backendtest"
	"halcyon-ai/relay/pkg/proxy/types"
	"halcyon-ai/relay/pkg/usage"
)

func TestChatCompletions_Buffered(t *testing.T) {
	mock := backendtest.NewServer(backendtest.Script{
		{Text: "hi", Done: false},
		{Text: "", Done: true},
	})
	defer mock.Close()

	deps, recorder := newTestDeps(t, mock)
	handler := NewChatCompletionsHandler(deps)

	r := httptest.NewRequest("POST", "/v1/chat/completions", strings.NewReader(
		`{"model":"relay-13b","messages":[{"role":"user","content":"hi"}]}`,
	))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != 200 {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp types.ChatCompletionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(resp.ID, "chatcmpl-") {
		t.Errorf("id = %q, want chatcmpl- prefix", resp.ID)
	}
	if resp.Object != "chat.completion" {
		t.Errorf("object = %q", resp.Object)
	}
	if len(resp.Choices) != 1 {
		t.Fatalf("choices = %d, want 1", len(resp.Choices))
	}
	if resp.Choices[0].Message.Content != "hi" {
		t.Errorf("content = %q, want hi", resp.Choices[0].Message.Content)
	}
	if resp.Choices[0].Message.Role != "assistant" {
		t.Errorf("role = %q, want assistant", resp.Choices[0].Message.Role)
	}
	if resp.Usage.CompletionTokens != 1 {
		t.Errorf("completion_tokens = %d, want 1", resp.Usage.CompletionTokens)
	}

	// The formatter appends the assistant cue to the backend prompt.
	if got := mock.LastPrompt(); !strings.HasSuffix(got, "Assistant:") {
		t.Errorf("backend prompt = %q, missing assistant cue", got)
	}

	records := recorder.all()
	if len(records) != 1 {
		t.Fatalf("usage records = %d, want 1", len(records))
	}
	if records[0].Protocol != usage.ProtocolOpenAI || records[0].Streamed {
		t.Errorf("usage record = %+v", records[0])
	}
}

func TestChatCompletions_RecordsTokenCounts(t *testing.T) {
	mock := backendtest.NewServer(backendtest.Script{
		{Text: "hello ", Done: false},
		{Text: "world", Done: true},
	})
	defer mock.Close()

	deps, _ := newTestDeps(t, mock)
	tokens := &recordingTokens{}
	deps.Tokens = tokens
	handler := NewChatCompletionsHandler(deps)

	r := httptest.NewRequest("POST", "/v1/chat/completions", strings.NewReader(
		`{"model":"relay-13b","messages":[{"role":"user","content":"hi there"}]}`,
	))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != 200 {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	tokens.mu.Lock()
	defer tokens.mu.Unlock()
	if tokens.protocol != usage.ProtocolOpenAI {
		t.Errorf("protocol = %q, want %q", tokens.protocol, usage.ProtocolOpenAI)
	}
	if tokens.prompt == 0 {
		t.Error("prompt tokens = 0, want > 0")
	}
	if tokens.completion != 2 {
		t.Errorf("completion tokens = %d, want 2", tokens.completion)
	}
}

func TestChatCompletions_FaultRecoveryProducesCleanResponse(t *testing.T) {
	mock := backendtest.NewServer(
		backendtest.Script{{Text: "SetKVCache failed: slot overflow", Done: false}},
		backendtest.Script{
			{Text: "clean", Done: false},
			{Text: "", Done: true},
		},
	)
	defer mock.Close()

	deps, _ := newTestDeps(t, mock)
	handler := NewChatCompletionsHandler(deps)

	r := httptest.NewRequest("POST", "/v1/chat/completions", strings.NewReader(
		`{"model":"relay-13b","messages":[{"role":"user","content":"hi"}]}`,
	))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != 200 {
		t.Fatalf("status = %d, want 200 despite the backend fault", w.Code)
	}

	var resp types.ChatCompletionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	content := resp.Choices[0].Message.Content
	if content != "clean" {
		t.Errorf("content = %q, want clean post-reset output", content)
	}
	if strings.Contains(content, "SetKVCache") {
		t.Errorf("fault text leaked to client: %q", content)
	}
	if mock.ResetCalls() != 1 {
		t.Errorf("reset calls = %d, want 1", mock.ResetCalls())
	}
}

func TestChatCompletions_Streaming(t *testing.T) {
	mock := backendtest.NewServer(backendtest.Script{
		{Text: "a", Done: false},
		{Text: "b", Done: false},
		{Text: "", Done: true},
	})
	defer mock.Close()

	deps, recorder := newTestDeps(t, mock)
	handler := NewChatCompletionsHandler(deps)

	r := httptest.NewRequest("POST", "/v1/chat/completions", strings.NewReader(
		`{"model":"relay-13b","messages":[{"role":"user","content":"hi"}],"stream":true}`,
	))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if got := w.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", got)
	}

	body := w.Body.String()
	if !strings.HasSuffix(body, "data: [DONE]\n\n") {
		t.Errorf("stream missing [DONE] terminator: %q", body)
	}

	events := strings.Split(strings.TrimSuffix(body, "\n\n"), "\n\n")
	if len(events) != 3 {
		t.Fatalf("events = %d, want 2 content chunks + [DONE]: %q", len(events), body)
	}

	var deltas []string
	var id string
	for _, event := range events[:2] {
		var chunk types.ChatCompletionStreamChunk
		payload := strings.TrimPrefix(event, "data: ")
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			t.Fatalf("event is not valid JSON: %v", err)
		}
		if chunk.Object != "chat.completion.chunk" {
			t.Errorf("object = %q", chunk.Object)
		}
		if id == "" {
			id = chunk.ID
		} else if chunk.ID != id {
			t.Error("chunks carry different completion IDs")
		}
		deltas = append(deltas, chunk.Choices[0].Delta.Content)
	}
	if deltas[0] != "a" || deltas[1] != "b" {
		t.Errorf("deltas = %v, want [a b]", deltas)
	}

	records := recorder.all()
	if len(records) != 1 || !records[0].Streamed {
		t.Errorf("usage records = %+v, want one streamed row", records)
	}
}

func TestChatCompletions_Errors(t *testing.T) {
	mock := backendtest.NewServer()
	defer mock.Close()

	deps, _ := newTestDeps(t, mock)
	handler := NewChatCompletionsHandler(deps)

	tests := []struct {
		name       string
		method     string
		body       string
		wantStatus int
	}{
		{
			name:       "wrong method",
			method:     "GET",
			body:       "",
			wantStatus: 400,
		},
		{
			name:       "invalid JSON",
			method:     "POST",
			body:       `{"model":`,
			wantStatus: 400,
		},
		{
			name:       "missing messages",
			method:     "POST",
			body:       `{"model":"relay-13b"}`,
			wantStatus: 400,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, "/v1/chat/completions", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var resp types.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("error body is not OpenAI envelope: %v", err)
			}
		})
	}
}

func TestChatCompletions_AllBackendsDown(t *testing.T) {
	mock := backendtest.NewServer()
	deps, _ := newTestDeps(t, mock)
	mock.Close()

	handler := NewChatCompletionsHandler(deps)

	r := httptest.NewRequest("POST", "/v1/chat/completions", strings.NewReader(
		`{"model":"relay-13b","messages":[{"role":"user","content":"hi"}]}`,
	))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != 503 {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	var resp types.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error.Type != types.ErrorTypeServiceUnavailable {
		t.Errorf("error type = %q", resp.Error.Type)
	}
}

func TestChatCompletions_ThinkTagsStripped(t *testing.T) {
	mock := backendtest.NewServer(backendtest.Script{
		{Text: "<think>pondering</think>answer", Done: true},
	})
	defer mock.Close()

	deps, _ := newTestDeps(t, mock)
	handler := NewChatCompletionsHandler(deps)

	r := httptest.NewRequest("POST", "/v1/chat/completions", strings.NewReader(
		`{"model":"relay-13b","messages":[{"role":"user","content":"hi"}]}`,
	))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	var resp types.ChatCompletionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if got := resp.Choices[0].Message.Content; got != "ponderinganswer" {
		t.Errorf("content = %q, want think markers removed", got)
	}
}
