package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"halcyon-ai/relay/pkg/backend"
	"halcyon-ai/relay/pkg/config"
	"halcyon-ai/relay/pkg/prompt"
	"halcyon-ai/relay/pkg/proxy/handlers"
	"halcyon-ai/relay/pkg/routing"
	"halcyon-ai/relay/pkg/server"
	"halcyon-ai/relay/pkg/session"
	"halcyon-ai/relay/pkg/telemetry/metrics"
	"halcyon-ai/relay/pkg/usage"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the relay proxy server",
	Long: `Start the relay proxy server with the specified configuration.

The server exposes the OpenAI and Ollama chat APIs and proxies requests
to the configured accelerator backends.

Examples:
  # Start with default config
  relay run

  # Start with custom config
  relay run --config /etc/relay/relay.yaml

  # Override listen address
  relay run --listen 0.0.0.0:11434

  # Validate config without starting server
  relay run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	// The level var lets the config watcher adjust verbosity at runtime.
	levelVar := new(slog.LevelVar)
	levelVar.Set(parseLogLevel(cfg.Telemetry.Logging.Level))
	slog.SetDefault(buildLogger(cfg.Telemetry.Logging, levelVar))

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Relay v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	// Metrics collector. It doubles as the fault-recovery observer on
	// the session driver.
	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(&metrics.Config{
			Enabled:                true,
			Namespace:              cfg.Telemetry.Metrics.Namespace,
			Subsystem:              cfg.Telemetry.Metrics.Subsystem,
			RequestDurationBuckets: cfg.Telemetry.Metrics.RequestDurationBuckets,
		}, nil)
	}

	var callObserver backend.CallObserver
	if collector != nil {
		callObserver = collector
	}
	client := backend.NewClient(backend.ClientConfig{
		CallTimeout:         cfg.Backends.CallTimeout,
		HealthTimeout:       cfg.Backends.HealthTimeout,
		MaxIdleConns:        cfg.Backends.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.Backends.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.Backends.IdleConnTimeout,
		Observer:            callObserver,
	})

	balancer, err := routing.NewBalancer(cfg.Backends.Endpoints)
	if err != nil {
		return fmt.Errorf("failed to create balancer: %w", err)
	}
	fmt.Printf("✓ Backends configured (%d endpoints)\n", balancer.Len())

	var observer session.Observer
	if collector != nil {
		observer = collector
	}
	driver := session.NewDriver(client, balancer, tunablesFromConfig(&cfg.Generation), observer)

	formatter := prompt.NewFormatter(promptModeFromConfig(cfg.Generation.PromptMode), cfg.Generation.FaultSignature)

	deps := handlers.Deps{
		Generator:          driver,
		Formatter:          formatter,
		Model:              modelInfoFromConfig(&cfg.Model),
		DefaultTemperature: cfg.Generation.DefaultTemperature,
	}
	if collector != nil {
		deps.Tokens = collector
	}

	// Usage accounting store and retention scheduler.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Usage.Enabled {
		store, err := usage.NewStore(&usage.StoreConfig{
			Path:         cfg.Usage.SQLite.Path,
			MaxOpenConns: cfg.Usage.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.Usage.SQLite.MaxIdleConns,
			WALMode:      cfg.Usage.SQLite.WALMode,
			BusyTimeout:  cfg.Usage.SQLite.BusyTimeout,
		})
		if err != nil {
			return fmt.Errorf("failed to open usage store: %w", err)
		}
		defer store.Close()
		deps.Usage = store

		if cfg.Usage.Retention.Days > 0 && cfg.Usage.Retention.PruneSchedule != "" {
			scheduler := usage.NewScheduler(store, usage.SchedulerConfig{
				Schedule:  cfg.Usage.Retention.PruneSchedule,
				Retention: time.Duration(cfg.Usage.Retention.Days) * 24 * time.Hour,
			})
			if err := scheduler.Start(ctx); err != nil {
				slog.Warn("failed to start usage retention scheduler", "error", err)
			} else {
				defer scheduler.Stop()
			}
		}
		fmt.Println("✓ Usage store initialized")
	}

	// Configuration watcher re-applies the hot-reloadable subset.
	if cfg.Watch.Enabled {
		watcher, err := config.NewWatcher(cfgFile, cfg.Watch.DebounceInterval, slog.Default())
		if err != nil {
			return fmt.Errorf("failed to create config watcher: %w", err)
		}
		go func() {
			err := watcher.Watch(ctx, func(next *config.Config) {
				if !slices.Equal(next.Backends.Endpoints, cfg.Backends.Endpoints) {
					slog.Warn("backend endpoint set changed in config file; endpoint membership is fixed at runtime, restart to apply")
				}
				driver.UpdateTunables(tunablesFromConfig(&next.Generation))
				levelVar.Set(parseLogLevel(next.Telemetry.Logging.Level))
				slog.Info("applied reloaded configuration",
					"poll_interval", next.Generation.PollInterval,
					"max_fault_retries", next.Generation.MaxFaultRetries,
					"log_level", next.Telemetry.Logging.Level,
				)
			})
			if err != nil {
				slog.Error("config watcher exited", "error", err)
			}
		}()
		defer watcher.Stop()
		fmt.Println("✓ Configuration watcher started")
	}

	srv := server.NewServer(&cfg.Server, server.Options{
		Deps:        deps,
		Prober:      client,
		Endpoints:   balancer.Endpoints(),
		Metrics:     collector,
		MetricsPath: cfg.Telemetry.Metrics.Path,
	})

	fmt.Println()
	fmt.Printf("✓ Listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Health endpoint: http://%s/health\n", cfg.Server.ListenAddress)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Start blocks until a signal, context cancellation, or error.
	return srv.Start(ctx)
}

// tunablesFromConfig converts generation config into driver tunables.
// A configured -1 disables fault recovery.
func tunablesFromConfig(cfg *config.GenerationConfig) session.Tunables {
	retries := cfg.MaxFaultRetries
	if retries < 0 {
		retries = 0
	}
	return session.Tunables{
		PollInterval:    cfg.PollInterval,
		ResetCooldown:   cfg.ResetCooldown,
		MaxFaultRetries: retries,
		FaultSignature:  cfg.FaultSignature,
		TopK:            cfg.TopK,
	}
}

// promptModeFromConfig maps the config string to a prompt mode.
func promptModeFromConfig(mode string) prompt.Mode {
	if mode == "labeled" {
		return prompt.ModeLabeled
	}
	return prompt.ModeSimple
}

// modelInfoFromConfig builds the advertised model metadata. The digest
// is derived from the model name so listings stay stable across
// restarts.
func modelInfoFromConfig(cfg *config.ModelConfig) handlers.ModelInfo {
	sum := sha256.Sum256([]byte(cfg.Name))
	return handlers.ModelInfo{
		Name:              cfg.Name,
		OwnedBy:           cfg.OwnedBy,
		Created:           time.Now().Unix(),
		Family:            cfg.Family,
		ParameterSize:     cfg.ParameterSize,
		QuantizationLevel: cfg.QuantizationLevel,
		Digest:            hex.EncodeToString(sum[:]),
	}
}

// parseLogLevel maps the config string to a slog level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// buildLogger constructs the process logger from logging config.
func buildLogger(cfg config.LoggingConfig, level slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
