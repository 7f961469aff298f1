package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config controls metric collection.
type Config struct {
	// Enabled turns collection on. A disabled collector records nothing
	// and its handler serves an empty registry.
	Enabled bool

	// Namespace and Subsystem prefix every metric name.
	// Defaults: "relay" / "proxy".
	Namespace string
	Subsystem string

	// RequestDurationBuckets are the histogram buckets in seconds.
	// The defaults cover 100ms to 10 minutes; accelerator generations
	// are slow.
	RequestDurationBuckets []float64
}

// Collector registers and records all proxy metrics. It implements
// session.Observer for fault-recovery counts.
type Collector struct {
	config   *Config
	registry *prometheus.Registry

	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	tokensTotal       *prometheus.CounterVec
	backendCallsTotal *prometheus.CounterVec
	faultRecoveries   *prometheus.CounterVec
	backendHealthy    *prometheus.GaugeVec
}

// NewCollector creates a collector with its own registry. If registry is
// nil a fresh one is created.
func NewCollector(cfg *Config, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg == nil {
		cfg = &Config{Enabled: true}
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "relay"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "proxy"
	}
	if len(cfg.RequestDurationBuckets) == 0 {
		cfg.RequestDurationBuckets = []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600}
	}

	c := &Collector{
		config:   cfg,
		registry: registry,

		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "requests_total",
				Help:      "Total number of proxy requests served",
			},
			[]string{"route", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "request_duration_seconds",
				Help:      "Duration of proxy requests in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"route"},
		),

		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "tokens_total",
				Help:      "Estimated tokens processed, by protocol and type",
			},
			[]string{"protocol", "type"},
		),

		backendCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "backend_calls_total",
				Help:      "Backend calls by endpoint, operation, and outcome",
			},
			[]string{"endpoint", "op", "status"},
		),

		faultRecoveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "fault_recoveries_total",
				Help:      "Fault recovery attempts by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),

		backendHealthy: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "backend_healthy",
				Help:      "Backend health from the last probe (1=healthy, 0=unhealthy)",
			},
			[]string{"endpoint"},
		),
	}

	registry.MustRegister(
		c.requestsTotal,
		c.requestDuration,
		c.tokensTotal,
		c.backendCallsTotal,
		c.faultRecoveries,
		c.backendHealthy,
	)

	return c
}

// RecordRequest records one completed proxy request.
func (c *Collector) RecordRequest(route, status string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.requestsTotal.WithLabelValues(route, status).Inc()
	c.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordTokens records estimated prompt and completion token counts.
func (c *Collector) RecordTokens(protocol string, promptTokens, completionTokens int) {
	if !c.config.Enabled {
		return
	}
	if promptTokens > 0 {
		c.tokensTotal.WithLabelValues(protocol, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		c.tokensTotal.WithLabelValues(protocol, "completion").Add(float64(completionTokens))
	}
}

// RecordBackendCall records one backend call outcome. op is "start",
// "poll", "reset", or "health"; status is "ok" or "error".
func (c *Collector) RecordBackendCall(endpoint, op, status string) {
	if !c.config.Enabled {
		return
	}
	c.backendCallsTotal.WithLabelValues(endpoint, op, status).Inc()
}

// FaultRecovery implements session.Observer.
func (c *Collector) FaultRecovery(endpoint, outcome string) {
	if !c.config.Enabled {
		return
	}
	c.faultRecoveries.WithLabelValues(endpoint, outcome).Inc()
}

// UpdateBackendHealth records the latest probe result for an endpoint.
func (c *Collector) UpdateBackendHealth(endpoint string, healthy bool) {
	if !c.config.Enabled {
		return
	}
	value := 0.0
	if healthy {
		value = 1.0
	}
	c.backendHealthy.WithLabelValues(endpoint).Set(value)
}

// Registry returns the Prometheus registry backing this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
