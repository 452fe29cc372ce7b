package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/marmos91/feedstore/internal/logger"
	"github.com/marmos91/feedstore/internal/telemetry"
	"github.com/marmos91/feedstore/pkg/feedstore/httpapi"
	feedstoreMetrics "github.com/marmos91/feedstore/pkg/feedstore/metrics"
	"github.com/marmos91/feedstore/pkg/feedstoreconfig"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the feedstore server",
	RunE:  runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := feedstoreconfig.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "feedstore",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() { _ = shutdownTelemetry(context.Background()) }()

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build feedstore: %w", err)
	}

	if err := store.Open(ctx); err != nil {
		return fmt.Errorf("open feedstore: %w", err)
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(feedstoreMetrics.GetRegistry(), promhttp.HandlerOpts{}))
		metricsServer = &http.Server{Addr: fmt.Sprintf(":%d", cfg.Metrics.Port), Handler: mux}
		go func() {
			logger.Info("metrics server listening", "port", cfg.Metrics.Port)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	var apiServer *httpapi.Server
	if cfg.HTTPAPI.Enabled {
		apiServer, _, err = httpapi.NewServer(cfg.HTTPAPI, store)
		if err != nil {
			return fmt.Errorf("build http api: %w", err)
		}
		go func() {
			if err := apiServer.Start(ctx); err != nil {
				logger.Error("http api server failed", "error", err)
			}
		}()
	}

	logger.Info("feedstore is running. Press Ctrl+C to stop.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	signal.Stop(sigChan)

	logger.Info("shutdown signal received, initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if apiServer != nil {
		_ = apiServer.Stop(shutdownCtx)
	}
	if metricsServer != nil {
		_ = metricsServer.Shutdown(shutdownCtx)
	}
	if err := store.Close(shutdownCtx); err != nil {
		logger.Error("feedstore shutdown error", "error", err)
		return err
	}

	logger.Info("feedstore stopped gracefully")
	return nil
}
