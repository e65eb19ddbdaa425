// Command demo runs a small HTTP server instrumented with the telemetry
// client: every request it serves is tracked and periodically flushed to
// the configured collector endpoint.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/peekapi-dev/telemetry-go/pkg/config"
	"github.com/peekapi-dev/telemetry-go/pkg/ingest"
	"github.com/peekapi-dev/telemetry-go/pkg/logger"
	"github.com/peekapi-dev/telemetry-go/pkg/metrics"
	"github.com/peekapi-dev/telemetry-go/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("error")
		logger.Fatal("failed to load config", "error", err)
	}

	logger.InitWithConfig(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})

	logger.Info("starting telemetry demo", "version", cfg.App.Version, "environment", cfg.App.Environment)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Version:     cfg.App.Version,
		Environment: cfg.App.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		logger.Fatal("failed to init tracing", "error", err)
	}
	defer tp.Shutdown(context.Background())

	if cfg.Metrics.Enabled {
		metrics.InitMetrics(cfg.Metrics.Namespace, cfg.Metrics.Subsystem)
	}

	apiKey := os.Getenv("TELEMETRY_API_KEY")
	client, err := ingest.New(ingest.OptionsFromConfig(cfg.Client, apiKey))
	if err != nil {
		logger.Fatal("failed to create telemetry client", "error", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", handleDemo(client))
	mux.HandleFunc("/health", handleHealth)
	if cfg.Metrics.Enabled {
		mux.Handle("/metrics", metrics.Handler())
	}

	server := &http.Server{
		Addr:         ":8080",
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("demo server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if err := client.Shutdown(shutdownCtx); err != nil {
		logger.Error("telemetry client shutdown error", "error", err)
	}

	logger.Info("server stopped")
}

func handleDemo(client *ingest.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))

		client.Track(ingest.RequestEvent{
			Method:         r.Method,
			Path:           r.URL.Path,
			StatusCode:     http.StatusOK,
			ResponseTimeMs: float64(time.Since(start).Microseconds()) / 1000,
			RequestSize:    r.ContentLength,
			ConsumerID:     r.Header.Get("X-Consumer-Id"),
		})
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status":"ok"}`)
}
