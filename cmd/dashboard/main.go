// Package main provides the entry point for the impact dashboard server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aurin/impact-dashboard/internal/config"
	"github.com/aurin/impact-dashboard/internal/dashboard"
	"github.com/aurin/impact-dashboard/internal/dimensions"
	"github.com/aurin/impact-dashboard/internal/observability"
	httpserver "github.com/aurin/impact-dashboard/internal/server/http"
	"github.com/aurin/impact-dashboard/internal/widgets"
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
	logger.Info().Msg("impact-dashboard starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics(cfg.Metrics.Namespace)

	// Create the Dimensions client.
	client := dimensions.New(dimensions.Config{
		BaseURL:   cfg.Dimensions.BaseURL,
		Query:     cfg.Dimensions.Query,
		Timeout:   cfg.Dimensions.Timeout,
		RateLimit: cfg.Dimensions.RateLimit,
		BurstSize: cfg.Dimensions.BurstSize,
		PageSize:  cfg.Dimensions.PageSize,
	})
	client.SetMetrics(metrics)
	client.SetLogger(logger.With().Str("component", "dimensions").Logger())
	logger.Info().
		Str("base_url", cfg.Dimensions.BaseURL).
		Int("page_size", cfg.Dimensions.PageSize).
		Msg("dimensions client configured")

	// Create the widget builder and dashboard service.
	builder := widgets.NewBuilder(widgets.Config{
		TopCitedCount:      cfg.Dashboard.TopCitedCount,
		RecentPapersCount:  cfg.Dashboard.RecentPapersCount,
		RecentWindowMonths: cfg.Dashboard.RecentWindowMonths,
		TrendGranularity:   cfg.Dashboard.TrendGranularity,
		HistogramBins:      cfg.Dashboard.HistogramBins,
	})

	service := dashboard.NewService(client, builder, metrics, logger)
	if cfg.Dimensions.APIKey != "" {
		service.SetDefaultAPIKey(cfg.Dimensions.APIKey)
		logger.Info().Msg("operator-provisioned API key configured")
	}

	// Create the HTTP server.
	httpCfg := httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
	httpSrv := httpserver.NewServer(httpCfg, service, metrics, logger)

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

	readyLog := logger.Info().Str("http_address", httpCfg.Address)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("impact-dashboard is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	// Graceful shutdown.
	logger.Info().Msg("shutting down impact-dashboard")

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

	logger.Info().Msg("impact-dashboard shutdown complete")
	return nil
}
