package handlers

import (
	"context"
	"sync"
	"testing"
	"time"

	"halcyon-ai/relay/internal/backendtest"
	"halcyon-ai/relay/pkg/backend"
	"halcyon-ai/relay/pkg/prompt"
	"halcyon-ai/relay/pkg/routing"
	"halcyon-ai/relay/pkg/session"
	"halcyon-ai/relay/pkg/usage"
)

// recordingUsage captures usage rows for assertions.
type recordingUsage struct {
	mu      sync.Mutex
	records []usage.Record
}

func (r *recordingUsage) Record(ctx context.Context, rec usage.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *recordingUsage) all() []usage.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]usage.Record(nil), r.records...)
}

// recordingTokens captures token counts for assertions.
type recordingTokens struct {
	mu         sync.Mutex
	protocol   string
	prompt     int
	completion int
}

func (r *recordingTokens) RecordTokens(protocol string, promptTokens, completionTokens int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.protocol = protocol
	r.prompt += promptTokens
	r.completion += completionTokens
}

func testModel() ModelInfo {
	return ModelInfo{
		Name:              "relay-13b",
		OwnedBy:           "halcyon",
		Created:           1700000000,
		Family:            "llama",
		ParameterSize:     "13B",
		QuantizationLevel: "Q4_0",
		Digest:            "sha256:abc123",
		Size:              7365960935,
	}
}

// newTestDeps wires handlers to a mock backend with fast tunables.
func newTestDeps(t *testing.T, mock *backendtest.Server) (Deps, *recordingUsage) {
	t.Helper()

	balancer, err := routing.NewBalancer([]string{mock.URL()})
	if err != nil {
		t.Fatal(err)
	}
	client := backend.NewClient(backend.ClientConfig{CallTimeout: time.Second})
	driver := session.NewDriver(client, balancer, session.Tunables{
		PollInterval:  time.Millisecond,
		ResetCooldown: time.Millisecond,
	}, nil)

	recorder := &recordingUsage{}
	deps := Deps{
		Generator:          driver,
		Formatter:          prompt.NewFormatter(prompt.ModeSimple, "SetKVCache failed"),
		Model:              testModel(),
		DefaultTemperature: 0.7,
		Usage:              recorder,
	}
	return deps, recorder
}
