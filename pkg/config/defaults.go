package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:11434"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 0 // streamed generations run for minutes
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	// CORS defaults
	DefaultCORSMaxAge = 3600 // 1 hour

	// Backend client defaults
	DefaultBackendCallTimeout     = 10 * time.Second
	DefaultBackendHealthTimeout   = 5 * time.Second
	DefaultBackendMaxIdleConns    = 32
	DefaultBackendMaxIdlePerHost  = 8
	DefaultBackendIdleConnTimeout = 90 * time.Second

	// Generation defaults
	DefaultPromptMode      = "simple"
	DefaultPollInterval    = 40 * time.Millisecond
	DefaultResetCooldown   = 2 * time.Second
	DefaultMaxFaultRetries = 1
	DefaultFaultSignature  = "SetKVCache failed"
	DefaultTemperature     = 0.7
	DefaultTopK            = 40

	// Model defaults
	DefaultModelName    = "relay"
	DefaultModelOwnedBy = "halcyon"

	// Usage defaults
	DefaultUsageSQLitePath   = "data/usage.db"
	DefaultUsageMaxOpenConns = 10
	DefaultUsageMaxIdleConns = 5
	DefaultUsageBusyTimeout  = 5 * time.Second
	DefaultRetentionDays     = 90
	DefaultPruneSchedule     = "0 3 * * *"

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "json"
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "relay"
	DefaultMetricsSubsystem = "proxy"

	// Watch defaults
	DefaultWatchDebounce = 500 * time.Millisecond
)

// DefaultRequestDurationBuckets are the default histogram buckets for
// request duration, in seconds. Accelerator generations are slow, so
// the range extends to ten minutes.
var DefaultRequestDurationBuckets = []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600}

// DefaultConfig returns a configuration populated entirely with default
// values. Loading unmarshals the YAML file over this struct, so booleans
// that default to true (CORS, usage, metrics) keep an explicit
// "enabled: false" from the file.
func DefaultConfig() *Config {
	cfg := &Config{
		Server: ServerConfig{
			CORS: CORSConfig{
				Enabled:        true,
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
				ExposedHeaders: []string{"X-Request-ID"},
			},
		},
		Usage: UsageConfig{
			Enabled: true,
			SQLite: SQLiteConfig{
				WALMode: true,
			},
		},
		Telemetry: TelemetryConfig{
			Metrics: MetricsConfig{
				Enabled: true,
			},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with defaults. It is
// idempotent and safe to call multiple times. Boolean fields are not
// touched; DefaultConfig seeds those.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.CORS.MaxAge == 0 {
		cfg.Server.CORS.MaxAge = DefaultCORSMaxAge
	}

	// Backend client defaults
	if cfg.Backends.CallTimeout == 0 {
		cfg.Backends.CallTimeout = DefaultBackendCallTimeout
	}
	if cfg.Backends.HealthTimeout == 0 {
		cfg.Backends.HealthTimeout = DefaultBackendHealthTimeout
	}
	if cfg.Backends.MaxIdleConns == 0 {
		cfg.Backends.MaxIdleConns = DefaultBackendMaxIdleConns
	}
	if cfg.Backends.MaxIdleConnsPerHost == 0 {
		cfg.Backends.MaxIdleConnsPerHost = DefaultBackendMaxIdlePerHost
	}
	if cfg.Backends.IdleConnTimeout == 0 {
		cfg.Backends.IdleConnTimeout = DefaultBackendIdleConnTimeout
	}

	// Generation defaults
	if cfg.Generation.PromptMode == "" {
		cfg.Generation.PromptMode = DefaultPromptMode
	}
	if cfg.Generation.PollInterval == 0 {
		cfg.Generation.PollInterval = DefaultPollInterval
	}
	if cfg.Generation.ResetCooldown == 0 {
		cfg.Generation.ResetCooldown = DefaultResetCooldown
	}
	if cfg.Generation.MaxFaultRetries == 0 {
		cfg.Generation.MaxFaultRetries = DefaultMaxFaultRetries
	}
	if cfg.Generation.FaultSignature == "" {
		cfg.Generation.FaultSignature = DefaultFaultSignature
	}
	if cfg.Generation.DefaultTemperature == 0 {
		cfg.Generation.DefaultTemperature = DefaultTemperature
	}
	if cfg.Generation.TopK == 0 {
		cfg.Generation.TopK = DefaultTopK
	}

	// Model defaults
	if cfg.Model.Name == "" {
		cfg.Model.Name = DefaultModelName
	}
	if cfg.Model.OwnedBy == "" {
		cfg.Model.OwnedBy = DefaultModelOwnedBy
	}

	// Usage defaults
	if cfg.Usage.SQLite.Path == "" {
		cfg.Usage.SQLite.Path = DefaultUsageSQLitePath
	}
	if cfg.Usage.SQLite.MaxOpenConns == 0 {
		cfg.Usage.SQLite.MaxOpenConns = DefaultUsageMaxOpenConns
	}
	if cfg.Usage.SQLite.MaxIdleConns == 0 {
		cfg.Usage.SQLite.MaxIdleConns = DefaultUsageMaxIdleConns
	}
	if cfg.Usage.SQLite.BusyTimeout == 0 {
		cfg.Usage.SQLite.BusyTimeout = DefaultUsageBusyTimeout
	}
	if cfg.Usage.Retention.Days == 0 {
		cfg.Usage.Retention.Days = DefaultRetentionDays
	}
	if cfg.Usage.Retention.PruneSchedule == "" {
		cfg.Usage.Retention.PruneSchedule = DefaultPruneSchedule
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(cfg.Telemetry.Metrics.RequestDurationBuckets) == 0 {
		cfg.Telemetry.Metrics.RequestDurationBuckets = DefaultRequestDurationBuckets
	}

	// Watch defaults
	if cfg.Watch.DebounceInterval == 0 {
		cfg.Watch.DebounceInterval = DefaultWatchDebounce
	}
}
