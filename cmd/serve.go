package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sketchrun/sketchrun/internal/api"
	"github.com/sketchrun/sketchrun/internal/bridge"
	"github.com/sketchrun/sketchrun/internal/config"
	"github.com/sketchrun/sketchrun/internal/generate"
	"github.com/sketchrun/sketchrun/internal/llm"
	"github.com/sketchrun/sketchrun/internal/log"
	"github.com/sketchrun/sketchrun/internal/observability"
	"github.com/sketchrun/sketchrun/internal/preview"
)

// Server timeout configuration.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 10 * time.Minute // generation and frame SSE streams are long-lived
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve [addr]",
	Short: "Start the HTTP API server",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(args)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// parseRateBurst reads SKETCHRUN_RATE_BURST from the environment.
// Returns 0 (use default) if unset or invalid.
func parseRateBurst() int {
	v := os.Getenv("SKETCHRUN_RATE_BURST")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// runServe wires the pipeline together and starts the HTTP server.
func runServe(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	addr, err := parseServeAddr(args)
	if err != nil {
		return fmt.Errorf("parsing address: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := log.New(log.Config{JSON: true})
	logger.Info("starting sketchrun server", "version", AppVersion, "model", cfg.ModelName)

	shutdownTracing, err := observability.Setup(ctx, cfg.Tracing, logger)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown error", "error", err)
		}
	}()

	settings := config.NewStore(cfg)
	artifacts := preview.NewStore(logger)
	client := llm.NewClient(nil, logger)
	pipeline := generate.New(artifacts, client, settings, logger)
	hub := api.NewFrameHub(logger)
	screenshots := bridge.New(hub, cfg.ScreenshotTimeout(), logger)

	handler := api.NewServer(api.ServerConfig{
		Logger:    logger,
		Pipeline:  pipeline,
		Artifacts: artifacts,
		Bridge:    screenshots,
		Frames:    hub,
		Settings:  settings,
		ProxyUpstream: func() string {
			snapshot := settings.Snapshot()
			if snapshot.ProxyUpstream != "" {
				return snapshot.ProxyUpstream
			}
			return snapshot.Endpoint
		},
		CORSOrigins: cfg.CORSOrigins,
		TrustProxy:  cfg.TrustProxy,
		RateBurst:   parseRateBurst(),
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	logger.Info("HTTP server ready",
		"addr", addr,
		"api", "/api/v1/*",
		"health", "/health",
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down HTTP server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server: %w", err)
	}
}
