package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration
// field.
type FieldError struct {
	// Field is the dotted path to the configuration field
	// (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a
// configuration. It implements the error interface and provides access
// to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a
// ValidationError if any rule fails. All errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateBackends(&cfg.Backends)...)
	errs = append(errs, validateGeneration(&cfg.Generation)...)
	errs = append(errs, validateUsage(&cfg.Usage)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateServer validates the HTTP server configuration.
func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "read timeout must be non-negative",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "write timeout must be non-negative",
		})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.idle_timeout",
			Message: "idle timeout must be non-negative",
		})
	}
	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes must be non-negative",
		})
	}
	if cfg.CORS.Enabled && len(cfg.CORS.AllowedOrigins) == 0 {
		errs = append(errs, FieldError{
			Field:   "server.cors.allowed_origins",
			Message: "at least one origin is required when CORS is enabled",
		})
	}

	return errs
}

// validateBackends validates the backend endpoint configuration.
func validateBackends(cfg *BackendsConfig) []FieldError {
	var errs []FieldError

	if len(cfg.Endpoints) == 0 {
		errs = append(errs, FieldError{
			Field:   "backends.endpoints",
			Message: "at least one backend endpoint must be configured",
		})
		return errs
	}

	seen := make(map[string]bool, len(cfg.Endpoints))
	for i, endpoint := range cfg.Endpoints {
		field := fmt.Sprintf("backends.endpoints[%d]", i)

		if endpoint == "" {
			errs = append(errs, FieldError{
				Field:   field,
				Message: "endpoint address must not be empty",
			})
			continue
		}

		u, err := url.Parse(endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, FieldError{
				Field:   field,
				Message: fmt.Sprintf("endpoint must be a base URL like http://host:port, got %q", endpoint),
			})
			continue
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			errs = append(errs, FieldError{
				Field:   field,
				Message: fmt.Sprintf("endpoint scheme must be http or https, got %q", u.Scheme),
			})
		}

		if seen[endpoint] {
			errs = append(errs, FieldError{
				Field:   field,
				Message: fmt.Sprintf("duplicate endpoint %q", endpoint),
			})
		}
		seen[endpoint] = true
	}

	if cfg.CallTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "backends.call_timeout",
			Message: "call timeout must be non-negative",
		})
	}
	if cfg.HealthTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "backends.health_timeout",
			Message: "health timeout must be non-negative",
		})
	}

	return errs
}

// validateGeneration validates the generation tunables.
func validateGeneration(cfg *GenerationConfig) []FieldError {
	var errs []FieldError

	if cfg.PromptMode != "simple" && cfg.PromptMode != "labeled" {
		errs = append(errs, FieldError{
			Field:   "generation.prompt_mode",
			Message: fmt.Sprintf("prompt mode must be \"simple\" or \"labeled\", got %q", cfg.PromptMode),
		})
	}
	if cfg.PollInterval <= 0 {
		errs = append(errs, FieldError{
			Field:   "generation.poll_interval",
			Message: "poll interval must be positive",
		})
	}
	if cfg.ResetCooldown < 0 {
		errs = append(errs, FieldError{
			Field:   "generation.reset_cooldown",
			Message: "reset cooldown must be non-negative",
		})
	}
	if cfg.MaxFaultRetries < -1 {
		errs = append(errs, FieldError{
			Field:   "generation.max_fault_retries",
			Message: "max fault retries must be -1 (disabled) or non-negative",
		})
	}
	if cfg.FaultSignature == "" {
		errs = append(errs, FieldError{
			Field:   "generation.fault_signature",
			Message: "fault signature must not be empty",
		})
	}
	if cfg.DefaultTemperature < 0 || cfg.DefaultTemperature > 2 {
		errs = append(errs, FieldError{
			Field:   "generation.default_temperature",
			Message: "default temperature must be between 0 and 2",
		})
	}
	if cfg.TopK <= 0 {
		errs = append(errs, FieldError{
			Field:   "generation.top_k",
			Message: "top_k must be positive",
		})
	}

	return errs
}

// validateUsage validates the usage accounting configuration.
func validateUsage(cfg *UsageConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return errs
	}

	if cfg.SQLite.Path == "" {
		errs = append(errs, FieldError{
			Field:   "usage.sqlite.path",
			Message: "database path is required when usage accounting is enabled",
		})
	}
	if cfg.SQLite.MaxOpenConns < 0 {
		errs = append(errs, FieldError{
			Field:   "usage.sqlite.max_open_conns",
			Message: "max open connections must be non-negative",
		})
	}
	if cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{
			Field:   "usage.retention.days",
			Message: "retention days must be non-negative",
		})
	}
	if cfg.Retention.PruneSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Retention.PruneSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "usage.retention.prune_schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	return errs
}

// validateTelemetry validates the telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("log level must be one of debug, info, warn, error; got %q", cfg.Logging.Level),
		})
	}

	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("log format must be json or text, got %q", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with /",
		})
	}

	return errs
}
