package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"halcyon-ai/relay/pkg/backend"
	"halcyon-ai/relay/pkg/config"
	"halcyon-ai/relay/pkg/proxy/handlers"
	"halcyon-ai/relay/pkg/proxy/middleware"
	"halcyon-ai/relay/pkg/telemetry/metrics"
)

// Options bundles the wired components the server exposes over HTTP.
type Options struct {
	// Deps are the shared handler dependencies: the session driver, the
	// prompt formatter, model metadata, and the usage recorder.
	Deps handlers.Deps

	// Prober checks individual backends for the /health endpoint.
	Prober handlers.HealthProber

	// Endpoints is the configured backend set reported by /health.
	Endpoints []backend.Endpoint

	// Metrics serves the Prometheus endpoint and instruments routes.
	// Nil disables both.
	Metrics *metrics.Collector

	// MetricsPath is the exposition endpoint path. Defaults to /metrics.
	MetricsPath string
}

// Server is the HTTP front of the relay proxy.
type Server struct {
	config *config.ServerConfig
	opts   Options

	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a server from the given configuration and wiring.
func NewServer(cfg *config.ServerConfig, opts Options) *Server {
	if opts.MetricsPath == "" {
		opts.MetricsPath = config.DefaultMetricsPath
	}
	return &Server{
		config:       cfg,
		opts:         opts,
		shutdownChan: make(chan struct{}),
	}
}

// Start starts the HTTP server and blocks until shutdown. Shutdown is
// triggered by context cancellation, SIGINT/SIGTERM, or Shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:           s.config.ListenAddress,
		Handler:        s.setupRoutes(),
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting relay server",
			"address", s.config.ListenAddress,
			"backends", len(s.opts.Endpoints),
		)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		slog.Info("shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server, waiting up to the
// configured shutdown timeout for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		slog.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("relay server stopped")
	})

	return shutdownErr
}

// IsRunning reports whether the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the configured HTTP handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// setupRoutes configures HTTP routes and the middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	chatHandler := handlers.NewChatCompletionsHandler(s.opts.Deps)
	ollamaHandler := handlers.NewOllamaHandler(s.opts.Deps)
	modelsHandler := handlers.NewModelsHandler(s.opts.Deps.Model)
	tagsHandler := handlers.NewTagsHandler(s.opts.Deps.Model)
	var healthRecorder handlers.HealthRecorder
	if s.opts.Metrics != nil {
		healthRecorder = s.opts.Metrics
	}
	healthHandler := handlers.NewHealthHandler(s.opts.Prober, s.opts.Endpoints, healthRecorder)

	mux.Handle("/v1/chat/completions", s.instrument("/v1/chat/completions", chatHandler))
	mux.Handle("/v1/models", s.instrument("/v1/models", modelsHandler))
	mux.Handle("/api/chat", s.instrument("/api/chat", ollamaHandler))
	mux.Handle("/api/generate", s.instrument("/api/generate", ollamaHandler))
	mux.Handle("/api/tags", s.instrument("/api/tags", tagsHandler))
	mux.Handle("/health", healthHandler)

	if s.opts.Metrics != nil {
		mux.Handle(s.opts.MetricsPath, s.opts.Metrics.Handler())
	}

	var handler http.Handler = mux

	corsConfig := s.convertCORSConfig()
	handler = middleware.CORSMiddleware(corsConfig)(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.RecoveryMiddleware(handler)

	return handler
}

// instrument wraps a route with per-route request metrics when a
// collector is wired.
func (s *Server) instrument(route string, h http.Handler) http.Handler {
	if s.opts.Metrics == nil {
		return h
	}
	return s.opts.Metrics.Instrument(route, h)
}

// convertCORSConfig converts config.CORSConfig to middleware.CORSConfig.
func (s *Server) convertCORSConfig() *middleware.CORSConfig {
	return &middleware.CORSConfig{
		Enabled:        s.config.CORS.Enabled,
		AllowedOrigins: s.config.CORS.AllowedOrigins,
		AllowedMethods: s.config.CORS.AllowedMethods,
		AllowedHeaders: s.config.CORS.AllowedHeaders,
		ExposedHeaders: s.config.CORS.ExposedHeaders,
		MaxAge:         s.config.CORS.MaxAge,
	}
}
