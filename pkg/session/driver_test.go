package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"halcyon-ai/relay/internal/backendtest"
	"halcyon-ai/relay/pkg/backend"
	"halcyon-ai/relay/pkg/routing"
)

const faultText = "SetKVCache failed: slot overflow"

func testTunables() Tunables {
	return Tunables{
		PollInterval:    time.Millisecond,
		ResetCooldown:   time.Millisecond,
		MaxFaultRetries: 1,
	}
}

func newTestDriver(t *testing.T, addresses []string, observer Observer) *Driver {
	t.Helper()
	balancer, err := routing.NewBalancer(addresses)
	if err != nil {
		t.Fatal(err)
	}
	client := backend.NewClient(backend.ClientConfig{CallTimeout: time.Second})
	return NewDriver(client, balancer, testTunables(), observer)
}

type recordingObserver struct {
	outcomes []string
}

func (o *recordingObserver) FaultRecovery(endpoint, outcome string) {
	o.outcomes = append(o.outcomes, outcome)
}

func TestDriver_Collect(t *testing.T) {
	mock := backendtest.NewServer(backendtest.Script{
		{Text: "hi", Done: false},
		{Text: "", Done: true},
	})
	defer mock.Close()

	d := newTestDriver(t, []string{mock.URL()}, nil)

	s, err := d.Start(context.Background(), "hello\n\nAssistant:", 0.7)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	got, err := d.Collect(context.Background(), s)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if got != "hi" {
		t.Errorf("Collect() = %q, want %q", got, "hi")
	}
	if s.State() != StateDone {
		t.Errorf("session state = %s, want DONE", s.State())
	}
}

func TestDriver_Collect_FaultRecovery(t *testing.T) {
	mock := backendtest.NewServer(
		backendtest.Script{{Text: faultText, Done: false}},
		backendtest.Script{
			{Text: "partial", Done: false},
			{Text: " output", Done: true},
		},
	)
	defer mock.Close()

	observer := &recordingObserver{}
	d := newTestDriver(t, []string{mock.URL()}, observer)

	s, err := d.Start(context.Background(), "prompt\n\nAssistant:", 0.7)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	got, err := d.Collect(context.Background(), s)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	if got != "partial output" {
		t.Errorf("Collect() = %q, want clean post-reset output", got)
	}
	if strings.Contains(got, "SetKVCache") {
		t.Errorf("fault text leaked into content: %q", got)
	}
	if mock.ResetCalls() != 1 {
		t.Errorf("reset calls = %d, want exactly 1", mock.ResetCalls())
	}
	if mock.StartCalls() != 2 {
		t.Errorf("start calls = %d, want 2 (original + restart)", mock.StartCalls())
	}
	if s.Retries != 1 {
		t.Errorf("session retries = %d, want 1", s.Retries)
	}
	if len(observer.outcomes) != 1 || observer.outcomes[0] != "recovered" {
		t.Errorf("observer outcomes = %v, want [recovered]", observer.outcomes)
	}
}

func TestDriver_Collect_FaultDiscardsAccumulatedOutput(t *testing.T) {
	mock := backendtest.NewServer(
		backendtest.Script{
			{Text: "corrupted ", Done: false},
			{Text: faultText, Done: false},
		},
		backendtest.Script{{Text: "fresh", Done: true}},
	)
	defer mock.Close()

	d := newTestDriver(t, []string{mock.URL()}, nil)

	s, err := d.Start(context.Background(), "p", 0.7)
	if err != nil {
		t.Fatal(err)
	}

	got, err := d.Collect(context.Background(), s)
	if err != nil {
		t.Fatal(err)
	}
	if got != "fresh" {
		t.Errorf("Collect() = %q, want pre-fault output discarded", got)
	}
}

func TestDriver_Collect_RetryBudgetExhausted(t *testing.T) {
	mock := backendtest.NewServer(
		backendtest.Script{{Text: faultText, Done: false}},
		backendtest.Script{{Text: faultText, Done: false}},
	)
	defer mock.Close()

	observer := &recordingObserver{}
	d := newTestDriver(t, []string{mock.URL()}, observer)

	s, err := d.Start(context.Background(), "p", 0.7)
	if err != nil {
		t.Fatal(err)
	}

	got, err := d.Collect(context.Background(), s)
	if err != nil {
		t.Fatalf("Collect() error = %v, want in-band degradation", err)
	}

	if !strings.Contains(got, RecoveryExhaustedMarker) {
		t.Errorf("Collect() = %q, missing marker %q", got, RecoveryExhaustedMarker)
	}
	if mock.ResetCalls() != 1 {
		t.Errorf("reset calls = %d, want 1 (no resets past the budget)", mock.ResetCalls())
	}
	want := []string{"recovered", "exhausted"}
	if len(observer.outcomes) != 2 || observer.outcomes[0] != want[0] || observer.outcomes[1] != want[1] {
		t.Errorf("observer outcomes = %v, want %v", observer.outcomes, want)
	}
}

func TestDriver_Stream(t *testing.T) {
	mock := backendtest.NewServer(backendtest.Script{
		{Text: "a", Done: false},
		{Text: "b", Done: false},
		{Text: "", Done: true},
	})
	defer mock.Close()

	d := newTestDriver(t, []string{mock.URL()}, nil)

	s, err := d.Start(context.Background(), "p", 0.7)
	if err != nil {
		t.Fatal(err)
	}

	var texts []string
	sawDone := false
	for chunk := range d.Stream(context.Background(), s) {
		if chunk.Done {
			sawDone = true
			continue
		}
		texts = append(texts, chunk.Text)
	}

	if len(texts) != 2 || texts[0] != "a" || texts[1] != "b" {
		t.Errorf("streamed chunks = %v, want [a b]", texts)
	}
	if !sawDone {
		t.Error("stream did not deliver a done chunk")
	}
}

func TestDriver_Stream_NoRetractionAfterMidStreamFault(t *testing.T) {
	mock := backendtest.NewServer(
		backendtest.Script{
			{Text: "a", Done: false},
			{Text: faultText, Done: false},
		},
		backendtest.Script{{Text: "b", Done: true}},
	)
	defer mock.Close()

	d := newTestDriver(t, []string{mock.URL()}, nil)

	s, err := d.Start(context.Background(), "p", 0.7)
	if err != nil {
		t.Fatal(err)
	}

	var texts []string
	for chunk := range d.Stream(context.Background(), s) {
		if !chunk.Done {
			texts = append(texts, chunk.Text)
		}
	}

	// The pre-fault chunk stays with the client; only clean chunks follow.
	if len(texts) != 2 || texts[0] != "a" || texts[1] != "b" {
		t.Errorf("streamed chunks = %v, want [a b]", texts)
	}
	for _, text := range texts {
		if strings.Contains(text, "SetKVCache") {
			t.Errorf("fault text forwarded to client: %q", text)
		}
	}
}

func TestDriver_Start_FailsOverAndPinsEndpoint(t *testing.T) {
	dead := backendtest.NewServer()
	deadURL := dead.URL()
	dead.Close()

	live := backendtest.NewServer(backendtest.Script{{Text: "ok", Done: true}})
	defer live.Close()

	d := newTestDriver(t, []string{deadURL, live.URL()}, nil)

	s, err := d.Start(context.Background(), "p", 0.7)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if s.Endpoint.Address != live.URL() {
		t.Fatalf("session pinned to %s, want %s", s.Endpoint.Address, live.URL())
	}

	if _, err := d.Collect(context.Background(), s); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if live.PollCalls() == 0 {
		t.Error("no polls reached the endpoint that accepted the start call")
	}
}

func TestDriver_Start_AllEndpointsDown(t *testing.T) {
	first := backendtest.NewServer()
	second := backendtest.NewServer()
	firstURL, secondURL := first.URL(), second.URL()
	first.Close()
	second.Close()

	d := newTestDriver(t, []string{firstURL, secondURL}, nil)

	_, err := d.Start(context.Background(), "p", 0.7)
	var unavailable *routing.UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("Start() error = %v, want *routing.UnavailableError", err)
	}
}

func TestDriver_Collect_Cancellation(t *testing.T) {
	// A long script of not-done chunks keeps the loop polling.
	var chunks backendtest.Script
	for i := 0; i < 10000; i++ {
		chunks = append(chunks, backendtest.Chunk{Text: "", Done: false})
	}
	slow := backendtest.NewServer(chunks)
	defer slow.Close()

	d := newTestDriver(t, []string{slow.URL()}, nil)

	s, err := d.Start(context.Background(), "p", 0.7)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err = d.Collect(ctx, s)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Collect() error = %v, want context.Canceled", err)
	}
}

func TestDriver_UpdateTunables(t *testing.T) {
	d := newTestDriver(t, []string{"http://unused:1"}, nil)

	d.UpdateTunables(Tunables{PollInterval: 5 * time.Millisecond, MaxFaultRetries: 3})
	tun := d.Tunables()

	if tun.PollInterval != 5*time.Millisecond {
		t.Errorf("PollInterval = %s, want 5ms", tun.PollInterval)
	}
	if tun.MaxFaultRetries != 3 {
		t.Errorf("MaxFaultRetries = %d, want 3", tun.MaxFaultRetries)
	}
	if tun.FaultSignature == "" {
		t.Error("FaultSignature default not applied")
	}
	if tun.ResetCooldown <= 0 {
		t.Error("ResetCooldown default not applied")
	}
}
