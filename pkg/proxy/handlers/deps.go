package handlers

import (
	"context"

	"halcyon-ai/relay/pkg/backend"
	"halcyon-ai/relay/pkg/prompt"
	"halcyon-ai/relay/pkg/session"
	"halcyon-ai/relay/pkg/usage"
)

// Generator runs generation sessions. *session.Driver implements it.
type Generator interface {
	Start(ctx context.Context, promptText string, temperature float64) (*session.Session, error)
	Collect(ctx context.Context, s *session.Session) (string, error)
	Stream(ctx context.Context, s *session.Session) <-chan session.Chunk
}

// UsageRecorder persists one row per completed request. *usage.Store
// implements it.
type UsageRecorder interface {
	Record(ctx context.Context, rec usage.Record) error
}

// HealthProber checks one backend endpoint. *backend.Client implements it.
type HealthProber interface {
	Health(ctx context.Context, ep backend.Endpoint) error
}

// TokenRecorder aggregates estimated token throughput per protocol.
// *metrics.Collector implements it.
type TokenRecorder interface {
	RecordTokens(protocol string, promptTokens, completionTokens int)
}

// HealthRecorder exports backend probe results. *metrics.Collector
// implements it.
type HealthRecorder interface {
	UpdateBackendHealth(endpoint string, healthy bool)
}

// ModelInfo describes the single model the proxy advertises. The proxy
// does not host weights; the metadata exists so model-discovery clients
// get a well-formed listing.
type ModelInfo struct {
	// Name is the model identifier clients send back in requests.
	Name string

	// OwnedBy names the owning organization in /v1/models.
	OwnedBy string

	// Created is the Unix timestamp shown in /v1/models.
	Created int64

	// Family, ParameterSize, and QuantizationLevel fill the /api/tags
	// details block.
	Family            string
	ParameterSize     string
	QuantizationLevel string

	// Digest and Size fill the /api/tags entry.
	Digest string
	Size   int64
}

// Deps bundles the dependencies shared by the generation handlers.
type Deps struct {
	// Generator drives sessions against the backend fleet.
	Generator Generator

	// Formatter renders conversations into backend prompts.
	Formatter *prompt.Formatter

	// Model is the advertised model metadata.
	Model ModelInfo

	// DefaultTemperature applies when the request omits one.
	DefaultTemperature float64

	// Usage persists per-request usage rows. May be nil when the usage
	// store is disabled.
	Usage UsageRecorder

	// Tokens receives per-request token estimates. May be nil when
	// metrics are disabled.
	Tokens TokenRecorder
}

// modelName returns the model to echo in responses: the client's if it
// sent one, the advertised name otherwise.
func (d *Deps) modelName(requested string) string {
	if requested != "" {
		return requested
	}
	return d.Model.Name
}

// temperature returns the request temperature or the configured default.
func (d *Deps) temperature(requested *float64) float64 {
	if requested != nil {
		return *requested
	}
	return d.DefaultTemperature
}

// record reports token counts to the metrics recorder and persists a
// usage row, each only when wired.
func (d *Deps) record(ctx context.Context, rec usage.Record) error {
	if d.Tokens != nil {
		d.Tokens.RecordTokens(rec.Protocol, rec.PromptTokens, rec.CompletionTokens)
	}
	if d.Usage == nil {
		return nil
	}
	return d.Usage.Record(ctx, rec)
}
