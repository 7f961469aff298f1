// Package config defines the YAML configuration for the relay proxy,
// along with defaulting, validation, environment variable overrides,
// and hot reloading of runtime-tunable fields.
//
// Configuration is loaded from a YAML file. Environment variables with
// the RELAY_ prefix override file values (e.g., RELAY_SERVER_LISTEN_ADDRESS).
// When watching is enabled, edits to the file re-apply the generation
// tunables and the log level without a restart; structural fields such
// as the listen address and the backend endpoint set require a restart.
package config
