// Package main provides the entry point for the InspireHEP RSS HTTP server.
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

	"github.com/helixir/inspire-rss-service/internal/config"
	"github.com/helixir/inspire-rss-service/internal/domain"
	"github.com/helixir/inspire-rss-service/internal/feed"
	"github.com/helixir/inspire-rss-service/internal/observability"
	"github.com/helixir/inspire-rss-service/internal/papersources"
	"github.com/helixir/inspire-rss-service/internal/papersources/inspire"
	httpserver "github.com/helixir/inspire-rss-service/internal/server/http"
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
	logger.Info().Msg("inspire-rss-service starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(cfg.Metrics.Namespace)
	}

	upstreamLogger := observability.WithUpstreamContext(logger, "InspireHEP", cfg.Upstream.BaseURL)

	// Shared upstream HTTP client: rate limiter, retries and circuit breaker.
	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Name:       "inspire",
		Timeout:    cfg.Upstream.Timeout,
		RateLimit:  cfg.Upstream.RateLimit,
		BurstSize:  cfg.Upstream.BurstSize,
		MaxRetries: cfg.Upstream.MaxRetries,
		RetryDelay: cfg.Upstream.RetryDelay,
		UserAgent:  cfg.Upstream.UserAgent,
		CircuitBreaker: papersources.CircuitBreakerConfig{
			Enabled:          cfg.Upstream.CircuitBreaker.Enabled,
			FailureThreshold: cfg.Upstream.CircuitBreaker.FailureThreshold,
			MaxRequests:      cfg.Upstream.CircuitBreaker.MaxRequests,
			Interval:         cfg.Upstream.CircuitBreaker.Interval,
			Timeout:          cfg.Upstream.CircuitBreaker.Timeout,
		},
		OnStateChange: func(name, from, to string) {
			upstreamLogger.Warn().
				Str("breaker", name).
				Str("from", from).
				Str("to", to).
				Msg("circuit breaker state changed")
			if metrics != nil {
				metrics.RecordCircuitBreakerState(to)
			}
		},
	})
	if metrics != nil {
		metrics.RecordCircuitBreakerState(httpClient.BreakerState())
	}

	inspireClient := inspire.NewWithHTTPClient(inspire.Config{BaseURL: cfg.Upstream.BaseURL}, httpClient)

	channel := domain.Channel{
		Title:       cfg.Channel.Title,
		Link:        cfg.Channel.Link,
		Description: cfg.Channel.Description,
	}
	feedService := feed.NewService(inspireClient, channel, metrics, logger)

	httpCfg := httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     2 * time.Minute,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
	httpSrv := httpserver.NewServer(httpCfg, feedService, httpClient, metrics, logger)

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

	// Start HTTP server in background.
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

	readyLog := logger.Info().
		Str("http_address", httpCfg.Address).
		Str("upstream", cfg.Upstream.BaseURL)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("inspire-rss-service is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	// Graceful shutdown.
	logger.Info().Msg("shutting down inspire-rss-service")

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

	logger.Info().Msg("inspire-rss-service stopped")
	return nil
}
