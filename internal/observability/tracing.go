// Package observability provides OpenTelemetry integration for
// distributed tracing.
//
// Spans are exported over OTLP HTTP to a local collector or agent
// (default localhost:4318), which handles authentication and
// forwarding. Export is disabled by default; when the exporter cannot
// be created, tracing degrades to a no-op instead of failing startup —
// a broken collector must never take the generation pipeline down
// with it.
package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/sketchrun/sketchrun/internal/config"
)

// noopShutdown is returned whenever there is nothing to flush.
func noopShutdown(context.Context) error { return nil }

// Setup installs the global tracer provider per the configuration.
//
// Returns a shutdown function that flushes pending spans; callers must
// invoke it on exit. When tracing is disabled the returned shutdown is
// a no-op and the global provider is left untouched.
func Setup(ctx context.Context, cfg config.TracingConfig, logger *slog.Logger) (func(context.Context) error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Enabled {
		return noopShutdown, nil
	}

	endpoint := cfg.OTLPEndpoint
	if endpoint == "" {
		endpoint = "localhost:4318"
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(), // local collector, no TLS
	)
	if err != nil {
		logger.Warn("failed to create OTLP exporter, tracing disabled", "error", err)
		return noopShutdown, nil
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "sketchrun"
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("deployment.environment", cfg.Environment),
	)

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	logger.Debug("tracing enabled",
		"otlp_endpoint", endpoint,
		"service", serviceName,
		"environment", cfg.Environment,
	)

	return provider.Shutdown, nil
}
