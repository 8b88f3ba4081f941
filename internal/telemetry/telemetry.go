// Package telemetry wires OpenTelemetry traces and logs to an OTLP/HTTP collector.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"refrigee/internal/config"
)

// Shutdown flushes and releases telemetry resources.
type Shutdown func(ctx context.Context) error

type Telemetry struct {
	// LogHandler forwards slog records to the collector. Nil when tracing is off.
	LogHandler slog.Handler
	Shutdown   Shutdown
}

func noop(context.Context) error { return nil }

// Setup installs a global tracer provider when an endpoint is configured. Without one the
// global no-op provider stays in place and spans cost nothing.
func Setup(ctx context.Context, cfg config.TracingConfig) (*Telemetry, error) {
	if !cfg.Enabled() {
		slog.InfoContext(ctx, "telemetry disabled")
		return &Telemetry{Shutdown: noop}, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(attribute.String("service.name", cfg.ServiceName)),
		resource.WithHost(),
		resource.WithProcessRuntimeVersion(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build otel resource: %w", err)
	}

	traceExporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(cfg.Endpoint))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	logExporter, err := otlploghttp.New(ctx, otlploghttp.WithEndpointURL(cfg.Endpoint))
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create log exporter: %w", err)
	}
	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
		sdklog.WithResource(res),
	)

	slog.InfoContext(ctx, "telemetry enabled", "endpoint", cfg.Endpoint, "service", cfg.ServiceName)
	return &Telemetry{
		LogHandler: otelslog.NewHandler(cfg.ServiceName, otelslog.WithLoggerProvider(lp)),
		Shutdown: func(ctx context.Context) error {
			return errors.Join(tp.Shutdown(ctx), lp.Shutdown(ctx))
		},
	}, nil
}
