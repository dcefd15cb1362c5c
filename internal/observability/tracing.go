// Package observability provides OpenTelemetry integration for distributed
// tracing. Spans are exported over OTLP/HTTP to a local collector, which
// handles authentication and forwarding to whatever backend is configured.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"

	"github.com/gurukul-labs/gurukul/internal/config"
	"github.com/gurukul-labs/gurukul/internal/log"
)

// DefaultOTLPEndpoint is the default local collector OTLP/HTTP endpoint.
const DefaultOTLPEndpoint = "localhost:4318"

// noopShutdown is returned when tracing is disabled so callers can always
// defer the shutdown function.
func noopShutdown(context.Context) error { return nil }

// Setup installs the global TracerProvider. When tracing is disabled it
// installs nothing and returns a no-op shutdown. The returned shutdown
// function flushes pending spans and must be called before process exit.
func Setup(ctx context.Context, cfg config.TracingConfig, logger log.Logger) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return noopShutdown, nil
	}
	if logger == nil {
		logger = log.NewNop()
	}

	endpoint := cfg.OTLPEndpoint
	if endpoint == "" {
		endpoint = DefaultOTLPEndpoint
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(), // local collector, no TLS
	)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.DeploymentEnvironmentName(cfg.Environment),
	))
	if err != nil {
		return nil, fmt.Errorf("building trace resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	logger.Info("tracing enabled", "endpoint", endpoint, "service", cfg.ServiceName)

	return func(ctx context.Context) error {
		if err := provider.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutting down tracer provider: %w", err)
		}
		return nil
	}, nil
}
