package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified
// path. The file is unmarshaled over a fully defaulted configuration,
// then validated. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	// Fill zero values the file may have introduced.
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Variables follow the naming
// convention RELAY_SECTION_FIELD (e.g., RELAY_SERVER_LISTEN_ADDRESS)
// and always take precedence over file values.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	if val := os.Getenv("RELAY_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv("RELAY_SERVER_READ_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if val := os.Getenv("RELAY_SERVER_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}
	if val := os.Getenv("RELAY_SERVER_SHUTDOWN_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ShutdownTimeout = d
		}
	}

	// Backend overrides
	if val := os.Getenv("RELAY_BACKENDS_ENDPOINTS"); val != "" {
		var endpoints []string
		for _, e := range strings.Split(val, ",") {
			if e = strings.TrimSpace(e); e != "" {
				endpoints = append(endpoints, e)
			}
		}
		if len(endpoints) > 0 {
			cfg.Backends.Endpoints = endpoints
		}
	}
	if val := os.Getenv("RELAY_BACKENDS_CALL_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Backends.CallTimeout = d
		}
	}
	if val := os.Getenv("RELAY_BACKENDS_HEALTH_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Backends.HealthTimeout = d
		}
	}

	// Generation overrides
	if val := os.Getenv("RELAY_GENERATION_PROMPT_MODE"); val != "" {
		cfg.Generation.PromptMode = val
	}
	if val := os.Getenv("RELAY_GENERATION_POLL_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Generation.PollInterval = d
		}
	}
	if val := os.Getenv("RELAY_GENERATION_RESET_COOLDOWN"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Generation.ResetCooldown = d
		}
	}
	if val := os.Getenv("RELAY_GENERATION_MAX_FAULT_RETRIES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Generation.MaxFaultRetries = i
		}
	}
	if val := os.Getenv("RELAY_GENERATION_FAULT_SIGNATURE"); val != "" {
		cfg.Generation.FaultSignature = val
	}
	if val := os.Getenv("RELAY_GENERATION_DEFAULT_TEMPERATURE"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Generation.DefaultTemperature = f
		}
	}
	if val := os.Getenv("RELAY_GENERATION_TOP_K"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Generation.TopK = i
		}
	}

	// Model overrides
	if val := os.Getenv("RELAY_MODEL_NAME"); val != "" {
		cfg.Model.Name = val
	}
	if val := os.Getenv("RELAY_MODEL_OWNED_BY"); val != "" {
		cfg.Model.OwnedBy = val
	}

	// Usage overrides
	if val := os.Getenv("RELAY_USAGE_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Usage.Enabled = b
		}
	}
	if val := os.Getenv("RELAY_USAGE_SQLITE_PATH"); val != "" {
		cfg.Usage.SQLite.Path = val
	}
	if val := os.Getenv("RELAY_USAGE_RETENTION_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Usage.Retention.Days = i
		}
	}

	// Telemetry overrides
	if val := os.Getenv("RELAY_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("RELAY_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("RELAY_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
}
