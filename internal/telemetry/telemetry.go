// Package telemetry sets up OpenTelemetry tracing for execution runs.
package telemetry

import (
	"context"
	"errors"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otlptracehttp "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// DefaultEndpoint is the local OTLP/HTTP collector address.
const DefaultEndpoint = "http://127.0.0.1:4318"

// Config controls telemetry initialization behavior.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	OTLPEndpoint   string
	Insecure       bool
}

// Shutdown flushes and stops a provider returned by Init.
type Shutdown func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Init returns the tracer provider execution runs should use. When
// telemetry is disabled it returns a no-op provider and touches no
// globals. Otherwise spans are exported over OTLP/HTTP and the provider
// and propagators are installed globally.
func Init(ctx context.Context, cfg Config) (trace.TracerProvider, Shutdown, error) {
	if !cfg.Enabled {
		return trace.NewNoopTracerProvider(), noopShutdown, nil
	}
	if cfg.ServiceName == "" {
		return nil, nil, errors.New("service name required")
	}

	opts, err := exporterOptions(cfg)
	if err != nil {
		return nil, nil, err
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, nil, err
	}

	tp, shutdown, err := newTracerProviderWithExporter(exporter, cfg)
	if err != nil {
		_ = exporter.Shutdown(ctx)
		return nil, nil, err
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	otel.SetTracerProvider(tp)
	return tp, shutdown, nil
}

// exporterOptions accepts either a URL or a bare host:port.
func exporterOptions(cfg Config) ([]otlptracehttp.Option, error) {
	ep := cfg.OTLPEndpoint
	if ep == "" {
		ep = DefaultEndpoint
	}

	u, err := url.Parse(ep)
	if err != nil {
		return nil, err
	}

	endpoint := u.Host
	if endpoint == "" {
		endpoint = ep
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	if cfg.Insecure || u.Scheme == "http" {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return opts, nil
}

func newTracerProviderWithExporter(exporter sdktrace.SpanExporter, cfg Config) (*sdktrace.TracerProvider, Shutdown, error) {
	res, err := sdkresource.New(context.Background(), sdkresource.WithAttributes(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	))
	if err != nil {
		return nil, nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	)
	return tp, tp.Shutdown, nil
}
