// Package main provides the entry point for the paper discovery service server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/helixir/paper-discovery-service/internal/cache"
	"github.com/helixir/paper-discovery-service/internal/config"
	"github.com/helixir/paper-discovery-service/internal/discovery"
	"github.com/helixir/paper-discovery-service/internal/domain"
	"github.com/helixir/paper-discovery-service/internal/observability"
	"github.com/helixir/paper-discovery-service/internal/papersources"
	"github.com/helixir/paper-discovery-service/internal/papersources/arxiv"
	"github.com/helixir/paper-discovery-service/internal/papersources/crossref"
	"github.com/helixir/paper-discovery-service/internal/papersources/openalex"
	"github.com/helixir/paper-discovery-service/internal/papersources/semanticscholar"
	httpserver "github.com/helixir/paper-discovery-service/internal/server/http"
	"github.com/helixir/paper-discovery-service/internal/summarize"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("paper-discovery-service server starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Set up metrics.
	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(cfg.Metrics.Namespace)
	}

	// Set up the cache. A missing or unreachable Redis degrades to a
	// no-op store rather than blocking startup.
	var store cache.Store = cache.NewNoopStore()
	if cfg.Cache.Enabled {
		redisStore, err := cache.NewRedisStore(cfg.Cache.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, running without cache")
		} else {
			store = redisStore
			logger.Info().Msg("redis cache connected")
		}
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close cache store")
		}
	}()
	paperCache := cache.NewPaperCache(store, cache.PaperCacheConfig{
		SummaryTTL: cfg.Cache.SummaryTTL,
		SampleTTL:  cfg.Cache.SampleTTL,
	}, logger)

	// Set up the summarization backend. An unreachable backend degrades
	// to fallback summaries rather than blocking startup.
	var generator summarize.Generator
	if cfg.Summarizer.Enabled {
		httpGenerator := summarize.NewHTTPGenerator(summarize.HTTPGeneratorConfig{
			BaseURL: cfg.Summarizer.BaseURL,
			Timeout: cfg.Summarizer.Timeout,
		}, logger)
		if err := httpGenerator.Ping(ctx); err != nil {
			logger.Warn().Err(err).Msg("summarization backend unreachable, summaries may fall back")
		}
		generator = httpGenerator
	}
	summarizer := summarize.NewSummarizer(generator, paperCache, metrics, logger)

	// Register the enabled paper sources.
	registry := buildRegistry(cfg, logger)

	// Create the discovery service.
	discoveryService := discovery.NewService(
		registry,
		summarizer,
		paperCache,
		metrics,
		discovery.Config{
			MinCitations:  cfg.Discovery.MinCitations,
			YearFrom:      cfg.Discovery.YearFrom,
			PrimarySource: domain.SourceType(cfg.Discovery.PrimarySource),
		},
		logger,
	)

	// Create the HTTP REST API server.
	httpCfg := httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     2 * time.Minute,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
	httpSrv := httpserver.NewServer(httpCfg, discoveryService, paperCache, registry, logger)

	// Set up Prometheus metrics handler on a separate port if configured.
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress(),
			Handler:      metricsMux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
	}

	// Channel to collect server errors.
	errCh := make(chan error, 2)

	// Start HTTP REST API server in background.
	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Start metrics server if configured.
	if metricsServer != nil {
		go func() {
			logger.Info().
				Str("address", metricsServer.Addr).
				Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	readyLog := logger.Info().Str("http_address", httpCfg.Address)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("paper-discovery-service is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	// Graceful shutdown.
	logger.Info().Msg("shutting down paper-discovery-service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	logger.Info().Msg("paper-discovery-service shutdown complete")
	return nil
}

// buildRegistry constructs provider clients from configuration and registers
// the enabled ones.
func buildRegistry(cfg *config.Config, logger zerolog.Logger) *papersources.Registry {
	registry := papersources.NewRegistry()
	sources := cfg.PaperSources

	if sources.ArXiv.Enabled {
		registry.Register(arxiv.New(arxiv.Config{
			BaseURL:    sources.ArXiv.BaseURL,
			Timeout:    sources.ArXiv.Timeout,
			RateLimit:  sources.ArXiv.RateLimit,
			MaxResults: sources.ArXiv.MaxResults,
			Enabled:    true,
		}))
	}
	if sources.Crossref.Enabled {
		registry.Register(crossref.New(crossref.Config{
			BaseURL:    sources.Crossref.BaseURL,
			Email:      sources.ContactEmail,
			Timeout:    sources.Crossref.Timeout,
			RateLimit:  sources.Crossref.RateLimit,
			MaxResults: sources.Crossref.MaxResults,
			Enabled:    true,
		}))
	}
	if sources.OpenAlex.Enabled {
		registry.Register(openalex.New(openalex.Config{
			BaseURL:    sources.OpenAlex.BaseURL,
			Email:      sources.ContactEmail,
			Timeout:    sources.OpenAlex.Timeout,
			RateLimit:  sources.OpenAlex.RateLimit,
			MaxResults: sources.OpenAlex.MaxResults,
			Enabled:    true,
		}))
	}
	if sources.SemanticScholar.Enabled {
		registry.Register(semanticscholar.NewClient(semanticscholar.Config{
			BaseURL:    sources.SemanticScholar.BaseURL,
			APIKey:     sources.SemanticScholar.APIKey,
			Timeout:    sources.SemanticScholar.Timeout,
			RateLimit:  sources.SemanticScholar.RateLimit,
			MaxResults: sources.SemanticScholar.MaxResults,
			Enabled:    true,
		}, nil))
	}

	for _, source := range registry.EnabledSources() {
		logger.Info().Str("source", source.Name()).Msg("paper source enabled")
	}

	return registry
}
