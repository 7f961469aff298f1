package handlers

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"halcyon-ai/relay/pkg/backend"
	"halcyon-ai/relay/pkg/proxy"
)

// Health status values reported by GET /health.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// HealthHandler serves GET /health. It probes every backend endpoint
// concurrently and reports healthy when all respond, degraded otherwise.
// The status code is 200 either way: the proxy itself is up, and load
// balancers should not eject it while any backend still serves.
type HealthHandler struct {
	prober    HealthProber
	endpoints []backend.Endpoint
	recorder  HealthRecorder
	logger    *slog.Logger
}

// NewHealthHandler creates the health probe handler. recorder may be nil
// when metrics are disabled.
func NewHealthHandler(prober HealthProber, endpoints []backend.Endpoint, recorder HealthRecorder) *HealthHandler {
	return &HealthHandler{
		prober:    prober,
		endpoints: endpoints,
		recorder:  recorder,
		logger:    slog.Default().With("component", "handlers.health"),
	}
}

// backendStatus is one endpoint's probe result.
type backendStatus struct {
	Endpoint string `json:"endpoint"`
	Healthy  bool   `json:"healthy"`
	Error    string `json:"error,omitempty"`
}

// healthResponse is the GET /health payload.
type healthResponse struct {
	Status    string          `json:"status"`
	Backends  []backendStatus `json:"backends"`
	Timestamp int64           `json:"timestamp"`
}

// ServeHTTP implements http.Handler.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	statuses := make([]backendStatus, len(h.endpoints))

	var wg sync.WaitGroup
	for i, ep := range h.endpoints {
		wg.Add(1)
		go func(i int, ep backend.Endpoint) {
			defer wg.Done()
			status := backendStatus{Endpoint: ep.Address, Healthy: true}
			if err := h.prober.Health(ctx, ep); err != nil {
				status.Healthy = false
				status.Error = err.Error()
			}
			statuses[i] = status
		}(i, ep)
	}
	wg.Wait()

	if h.recorder != nil {
		for _, status := range statuses {
			h.recorder.UpdateBackendHealth(status.Endpoint, status.Healthy)
		}
	}

	overall := StatusHealthy
	for _, status := range statuses {
		if !status.Healthy {
			overall = StatusDegraded
			break
		}
	}

	if overall != StatusHealthy {
		h.logger.WarnContext(ctx, "backend fleet degraded", "backends", statuses)
	}

	resp := healthResponse{
		Status:    overall,
		Backends:  statuses,
		Timestamp: time.Now().Unix(),
	}
	if err := proxy.WriteJSONResponse(w, http.StatusOK, resp); err != nil {
		h.logger.ErrorContext(ctx, "failed to write health response", "error", err)
	}
}
