package session

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"halcyon-ai/relay/pkg/backend"
	"halcyon-ai/relay/pkg/routing"
)

// Fallback tunables used when the configuration leaves a field unset.
const (
	defaultPollInterval    = 40 * time.Millisecond
	defaultResetCooldown   = 2 * time.Second
	defaultMaxFaultRetries = 1
	defaultFaultSignature  = "SetKVCache failed"
	defaultTopK            = 40
)

// maxConsecutivePollFailures bounds transient poll errors against the
// pinned endpoint before the session is given up. Polls cannot fail over
// to another endpoint: the generation lives on the one that started it.
const maxConsecutivePollFailures = 3

// RecoveryExhaustedMarker is embedded in the response content when the
// fault-recovery retry budget runs out. It is an in-band degradation, not
// a transport error, so strict response-schema clients keep working.
const RecoveryExhaustedMarker = "[Error: accelerator memory full - max retries exceeded]"

// recoveryFailedPrefix starts the in-band content when a reset or restart
// call itself fails during recovery.
const recoveryFailedPrefix = "Error: accelerator memory full. Auto-reset failed: "

// Tunables are the generation settings that may be re-applied at runtime
// via config hot-reload. The driver reads a fresh snapshot per session.
type Tunables struct {
	// PollInterval is the delay between poll calls.
	PollInterval time.Duration

	// ResetCooldown is the pause between a reset call and the restart.
	ResetCooldown time.Duration

	// MaxFaultRetries is how many reset+restart cycles one session may
	// perform before degrading to an in-band error.
	MaxFaultRetries int

	// FaultSignature is the literal substring in chunk text that marks a
	// backend cache-overflow fault.
	FaultSignature string

	// TopK is the sampling cutoff sent on start calls.
	TopK int
}

// withDefaults fills unset fields.
func (t Tunables) withDefaults() Tunables {
	if t.PollInterval <= 0 {
		t.PollInterval = defaultPollInterval
	}
	if t.ResetCooldown <= 0 {
		t.ResetCooldown = defaultResetCooldown
	}
	if t.MaxFaultRetries < 0 {
		t.MaxFaultRetries = defaultMaxFaultRetries
	}
	if t.FaultSignature == "" {
		t.FaultSignature = defaultFaultSignature
	}
	if t.TopK <= 0 {
		t.TopK = defaultTopK
	}
	return t
}

// Observer receives fault-recovery notifications, typically to feed
// metrics. Implementations must be safe for concurrent use.
type Observer interface {
	// FaultRecovery is called once per recovery attempt with outcome
	// "recovered", "reset_failed", or "exhausted".
	FaultRecovery(endpoint, outcome string)
}

// Driver runs generation sessions against the backend fleet. It is
// shared by all concurrent requests; each request gets its own Session.
type Driver struct {
	client   *backend.Client
	balancer *routing.Balancer
	tunables atomic.Pointer[Tunables]
	observer Observer
	logger   *slog.Logger
}

// NewDriver creates a session driver. observer may be nil.
func NewDriver(client *backend.Client, balancer *routing.Balancer, tunables Tunables, observer Observer) *Driver {
	d := &Driver{
		client:   client,
		balancer: balancer,
		observer: observer,
		logger:   slog.Default().With("component", "session.driver"),
	}
	d.UpdateTunables(tunables)
	return d
}

// UpdateTunables atomically replaces the runtime-tunable settings.
// Sessions already in flight keep the snapshot they started with.
func (d *Driver) UpdateTunables(t Tunables) {
	t = t.withDefaults()
	d.tunables.Store(&t)
}

// Tunables returns the current tunables snapshot.
func (d *Driver) Tunables() Tunables {
	return *d.tunables.Load()
}

// Start selects an endpoint via the balancer and issues the
// start-generation call, failing over across endpoints as needed. The
// returned session is pinned to the endpoint that accepted the call.
//
// A *routing.UnavailableError is returned when the whole rotation failed.
func (d *Driver) Start(ctx context.Context, promptText string, temperature float64) (*Session, error) {
	tun := d.Tunables()

	req := backend.GenerateRequest{
		Prompt:      promptText,
		Temperature: temperature,
		TopK:        tun.TopK,
	}

	ep, err := d.balancer.Do(ctx, func(ctx context.Context, ep backend.Endpoint) error {
		return d.client.StartGeneration(ctx, ep, req)
	})
	if err != nil {
		return nil, err
	}

	d.logger.Debug("generation started",
		"endpoint", ep.Address,
		"prompt_len", len(promptText),
	)

	return &Session{
		Endpoint:    ep,
		Prompt:      promptText,
		Temperature: temperature,
		StartedAt:   time.Now(),
		state:       StateStarted,
	}, nil
}

// Collect drives the session to completion and returns the full
// accumulated text. Nothing is exposed to the caller until the loop
// reaches DONE. Fault recovery discards partial output, so the result
// never mixes pre-fault and post-reset text.
//
// The returned error is non-nil only for caller cancellation; backend
// degradation is reported in-band inside the returned text.
func (d *Driver) Collect(ctx context.Context, s *Session) (string, error) {
	var sb strings.Builder

	err := d.run(ctx, s,
		func(text string) { sb.WriteString(text) },
		func() { sb.Reset() },
	)
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Stream drives the session while forwarding each verified chunk on the
// returned channel as soon as it arrives. The channel is closed after a
// final Chunk with Done set. Chunks forwarded before a mid-stream fault
// are not retracted.
//
// The goroutine exits when the session completes or ctx is cancelled.
func (d *Driver) Stream(ctx context.Context, s *Session) <-chan Chunk {
	out := make(chan Chunk)

	go func() {
		defer close(out)

		err := d.run(ctx, s,
			func(text string) {
				select {
				case out <- Chunk{Text: text}:
				case <-ctx.Done():
				}
			},
			func() {
				// Already-forwarded chunks stay with the client.
			},
		)
		if err != nil {
			return
		}

		select {
		case out <- Chunk{Done: true}:
		case <-ctx.Done():
		}
	}()

	return out
}

// run is the poll/collect loop shared by Collect and Stream. emit
// delivers verified chunk text; discard clears output accumulated before
// a detected fault. run returns an error only on caller cancellation.
func (d *Driver) run(ctx context.Context, s *Session, emit func(string), discard func()) error {
	tun := d.Tunables()
	s.state = StatePolling
	pollFailures := 0

	for {
		if err := ctx.Err(); err != nil {
			// The client went away; stop polling and release the task.
			// The backend generation itself cannot be cancelled.
			d.logger.Debug("session cancelled", "endpoint", s.Endpoint.Address)
			return err
		}

		chunk, err := d.client.PollChunk(ctx, s.Endpoint)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			pollFailures++
			d.logger.Warn("poll failed",
				"endpoint", s.Endpoint.Address,
				"consecutive_failures", pollFailures,
				"error", err,
			)
			if pollFailures >= maxConsecutivePollFailures {
				// The pinned endpoint stopped answering; there is no
				// other endpoint that knows this session. The caller
				// gets whatever content arrived before the failures,
				// so log loudly here.
				d.logger.Error("abandoning session after repeated poll failures",
					"endpoint", s.Endpoint.Address,
					"consecutive_failures", pollFailures,
					"error", err,
				)
				s.state = StateDone
				return nil
			}
			if err := sleep(ctx, tun.PollInterval); err != nil {
				return err
			}
			continue
		}
		pollFailures = 0

		if chunk.Text != "" {
			if strings.Contains(chunk.Text, tun.FaultSignature) {
				s.state = StateFaultDetected
				done, errText := d.recoverFault(ctx, s, tun, discard)
				if errText != "" {
					emit(errText)
				}
				if done {
					s.state = StateDone
					return ctx.Err()
				}
				continue
			}
			emit(chunk.Text)
		}

		if chunk.Done {
			s.state = StateDone
			d.logger.Debug("generation complete",
				"endpoint", s.Endpoint.Address,
				"retries", s.Retries,
				"elapsed", time.Since(s.StartedAt).String(),
			)
			return nil
		}

		if err := sleep(ctx, tun.PollInterval); err != nil {
			return err
		}
	}
}

// recoverFault handles one detected fault. It returns done=true when the
// session must end, together with any in-band error text to emit. On a
// successful reset+restart it discards accumulated output and the loop
// resumes polling with a fresh accumulator.
func (d *Driver) recoverFault(ctx context.Context, s *Session, tun Tunables, discard func()) (done bool, errText string) {
	if s.Retries >= tun.MaxFaultRetries {
		d.logger.Error("fault recovery budget exhausted",
			"endpoint", s.Endpoint.Address,
			"retries", s.Retries,
		)
		d.observeFault(s.Endpoint.Address, "exhausted")
		return true, "\n" + RecoveryExhaustedMarker
	}

	d.logger.Warn("backend fault detected, resetting",
		"endpoint", s.Endpoint.Address,
		"attempt", s.Retries+1,
		"of", tun.MaxFaultRetries,
	)

	// Partial output from the corrupted generation is not salvageable.
	discard()

	s.state = StateResetting
	if err := d.client.Reset(ctx, s.Endpoint); err != nil {
		d.logger.Error("backend reset failed", "endpoint", s.Endpoint.Address, "error", err)
		d.observeFault(s.Endpoint.Address, "reset_failed")
		return true, recoveryFailedPrefix + err.Error()
	}

	if err := sleep(ctx, tun.ResetCooldown); err != nil {
		return true, ""
	}

	// Restart the original prompt on the same endpoint; the session's
	// identity lives there.
	if err := d.client.StartGeneration(ctx, s.Endpoint, backend.GenerateRequest{
		Prompt:      s.Prompt,
		Temperature: s.Temperature,
		TopK:        tun.TopK,
	}); err != nil {
		d.logger.Error("restart after reset failed", "endpoint", s.Endpoint.Address, "error", err)
		d.observeFault(s.Endpoint.Address, "reset_failed")
		return true, recoveryFailedPrefix + err.Error()
	}

	s.state = StateRestarted
	s.Retries++
	s.StartedAt = time.Now()
	s.state = StatePolling

	d.observeFault(s.Endpoint.Address, "recovered")
	d.logger.Info("backend reset successful, generation restarted",
		"endpoint", s.Endpoint.Address,
		"retries", s.Retries,
	)
	return false, ""
}

func (d *Driver) observeFault(endpoint, outcome string) {
	if d.observer != nil {
		d.observer.FaultRecovery(endpoint, outcome)
	}
}

// sleep waits for the duration or until the context is cancelled.
func sleep(ctx context.Context, duration time.Duration) error {
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
