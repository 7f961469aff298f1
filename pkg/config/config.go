package config

import "time"

// Config is the root configuration structure for the relay proxy.
type Config struct {
	// Server contains HTTP server configuration including listen
	// address, timeouts, and CORS.
	Server ServerConfig `yaml:"server"`

	// Backends contains the accelerator endpoint set and the HTTP
	// client settings used to reach them.
	Backends BackendsConfig `yaml:"backends"`

	// Generation contains the tunables that drive a generation session:
	// prompt formatting, polling cadence, and fault recovery.
	Generation GenerationConfig `yaml:"generation"`

	// Model contains the metadata advertised on the model listing
	// endpoints.
	Model ModelConfig `yaml:"model"`

	// Usage contains configuration for the usage accounting store and
	// its retention schedule.
	Usage UsageConfig `yaml:"usage"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Watch contains configuration-file hot reload settings.
	Watch WatchConfig `yaml:"watch"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:11434", "0.0.0.0:8080").
	// Default: "127.0.0.1:11434"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire
	// request, including the body.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out response
	// writes. Zero means no timeout. Streamed generations can run for
	// minutes, so the default is no timeout.
	// Default: 0
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum time to wait for the next request on a
	// kept-alive connection.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for in-flight
	// requests during graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS configuration for browser clients.
type CORSConfig struct {
	// Enabled controls whether CORS headers are emitted.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is the list of allowed origins. Use ["*"] to allow
	// all origins.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is the list of allowed HTTP methods.
	// Default: ["GET", "POST", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is the list of allowed request headers.
	// Default: ["Authorization", "Content-Type", "X-Request-ID"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// ExposedHeaders is the list of headers exposed to the client.
	// Default: ["X-Request-ID"]
	ExposedHeaders []string `yaml:"exposed_headers"`

	// MaxAge is the preflight cache lifetime in seconds.
	// Default: 3600
	MaxAge int `yaml:"max_age"`
}

// BackendsConfig contains the backend endpoint set and client settings.
type BackendsConfig struct {
	// Endpoints is the ordered list of backend base URLs
	// (e.g., "http://10.0.0.1:8000"). The set is fixed at startup;
	// requests rotate through it round-robin. At least one is required.
	Endpoints []string `yaml:"endpoints"`

	// CallTimeout bounds each individual start/poll/reset call.
	// Default: 10s
	CallTimeout time.Duration `yaml:"call_timeout"`

	// HealthTimeout bounds health probe calls.
	// Default: 5s
	HealthTimeout time.Duration `yaml:"health_timeout"`

	// MaxIdleConns is the HTTP connection pool size.
	// Default: 32
	MaxIdleConns int `yaml:"max_idle_conns"`

	// MaxIdleConnsPerHost is the per-backend pool size.
	// Default: 8
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host"`

	// IdleConnTimeout is how long idle connections are kept.
	// Default: 90s
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

// GenerationConfig contains the tunables applied to every generation
// session. These fields are hot-reloadable when watching is enabled.
type GenerationConfig struct {
	// PromptMode selects how chat messages are flattened into the
	// backend prompt.
	// Options: "simple" (content only), "labeled" (role-prefixed)
	// Default: "simple"
	PromptMode string `yaml:"prompt_mode"`

	// PollInterval is the delay between backend poll calls.
	// Default: 40ms
	PollInterval time.Duration `yaml:"poll_interval"`

	// ResetCooldown is the pause between a backend cache reset and the
	// generation restart.
	// Default: 2s
	ResetCooldown time.Duration `yaml:"reset_cooldown"`

	// MaxFaultRetries is how many reset+restart cycles one session may
	// perform before degrading to an in-band error. Set to -1 to
	// disable fault recovery entirely.
	// Default: 1
	MaxFaultRetries int `yaml:"max_fault_retries"`

	// FaultSignature is the literal substring in backend output that
	// marks a cache-overflow fault.
	// Default: "SetKVCache failed"
	FaultSignature string `yaml:"fault_signature"`

	// DefaultTemperature is the sampling temperature used when a
	// request does not specify one.
	// Default: 0.7
	DefaultTemperature float64 `yaml:"default_temperature"`

	// TopK is the top-k sampling cutoff sent on every start call.
	// Default: 40
	TopK int `yaml:"top_k"`
}

// ModelConfig contains the metadata advertised by the model listing
// endpoints. The proxy fronts a single model.
type ModelConfig struct {
	// Name is the model identifier clients send back in requests.
	// Default: "relay"
	Name string `yaml:"name"`

	// OwnedBy names the owning organization.
	// Default: "halcyon"
	OwnedBy string `yaml:"owned_by"`

	// Family is the model architecture family (e.g., "llama").
	Family string `yaml:"family"`

	// ParameterSize is the advertised parameter count (e.g., "13B").
	ParameterSize string `yaml:"parameter_size"`

	// QuantizationLevel is the advertised quantization (e.g., "Q4_0").
	QuantizationLevel string `yaml:"quantization_level"`
}

// UsageConfig contains usage accounting configuration.
type UsageConfig struct {
	// Enabled controls whether usage records are written.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// SQLite contains the usage database settings.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Retention contains the pruning schedule.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig contains SQLite database settings.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/usage.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging for better concurrency.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RetentionConfig contains usage record retention settings.
type RetentionConfig struct {
	// Days is how many days of usage records to keep. 0 keeps records
	// forever.
	// Default: 90
	Days int `yaml:"days"`

	// PruneSchedule is a cron expression for scheduled pruning.
	// Default: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string `yaml:"prune_schedule"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether the /metrics endpoint is served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "relay"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "proxy"
	Subsystem string `yaml:"subsystem"`

	// RequestDurationBuckets defines histogram buckets for request
	// duration in seconds.
	// Default: [0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600]
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`
}

// WatchConfig contains configuration-file hot reload settings.
type WatchConfig struct {
	// Enabled turns on watching of the configuration file. Only the
	// generation tunables and the log level are re-applied; other
	// changes are logged and ignored until restart.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// DebounceInterval is the quiet period after a file event before
	// the reload fires.
	// Default: 500ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`
}
