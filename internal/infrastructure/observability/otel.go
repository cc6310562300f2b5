// Package observability wires OpenTelemetry metrics (exported for Prometheus)
// and tracing (exported over OTLP/HTTP).
package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"pomegranate/pkg/logger"
)

// Config holds telemetry settings.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// TracingEndpoint is an OTLP/HTTP collector (host:port or URL). Empty
	// disables span export.
	TracingEndpoint  string
	TracingInsecure  bool
	TraceSampleRatio float64
}

// Provider owns the meter and tracer providers for the process.
type Provider struct {
	registry *prometheus.Registry
	meters   *sdkmetric.MeterProvider
	tracers  *sdktrace.TracerProvider
}

// Setup installs global meter and tracer providers. Metrics are always
// collected into a private Prometheus registry served by Handler.
func Setup(ctx context.Context, cfg Config) (*Provider, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			"",
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String("deployment.environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	meters := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(meters)

	tracerOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(samplerFor(cfg.TraceSampleRatio)),
	}
	if cfg.TracingEndpoint != "" {
		spanExporter, err := otlptracehttp.New(ctx, traceExporterOptions(cfg)...)
		if err != nil {
			_ = meters.Shutdown(ctx)
			return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
		}
		tracerOpts = append(tracerOpts, sdktrace.WithBatcher(spanExporter))
	}
	tracers := sdktrace.NewTracerProvider(tracerOpts...)
	otel.SetTracerProvider(tracers)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info(ctx, "telemetry initialized",
		"service", cfg.ServiceName,
		"tracing_endpoint", cfg.TracingEndpoint,
	)
	return &Provider{registry: registry, meters: meters, tracers: tracers}, nil
}

func traceExporterOptions(cfg Config) []otlptracehttp.Option {
	var opts []otlptracehttp.Option
	if strings.HasPrefix(cfg.TracingEndpoint, "http://") || strings.HasPrefix(cfg.TracingEndpoint, "https://") {
		opts = append(opts, otlptracehttp.WithEndpointURL(cfg.TracingEndpoint))
	} else {
		opts = append(opts, otlptracehttp.WithEndpoint(cfg.TracingEndpoint))
	}
	if cfg.TracingInsecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return append(opts, otlptracehttp.WithCompression(otlptracehttp.GzipCompression))
}

func samplerFor(ratio float64) sdktrace.Sampler {
	switch {
	case ratio <= 0:
		return sdktrace.NeverSample()
	case ratio >= 1:
		return sdktrace.AlwaysSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

// Meter returns a named meter from the process meter provider.
func (p *Provider) Meter(name string) metric.Meter {
	return p.meters.Meter(name)
}

// Handler serves the Prometheus scrape endpoint.
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes pending spans and stops both providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return errors.Join(p.tracers.Shutdown(ctx), p.meters.Shutdown(ctx))
}
