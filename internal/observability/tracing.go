// Package observability wires OpenTelemetry tracing for the frame loop.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of techviz spans.
const TracerName = "github.com/conneroisu/techviz"

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	// OTLPEndpoint is the OTLP gRPC endpoint (e.g. "localhost:4317").
	// Tracing is a no-op when it is empty.
	OTLPEndpoint string

	// SampleRate is the fraction of frames traced, 0.0 to 1.0.
	SampleRate float64
}

// DefaultTracingConfig returns tracing settings with no exporter.
func DefaultTracingConfig() *TracingConfig {
	return &TracingConfig{
		ServiceName:    "techviz",
		ServiceVersion: "dev",
		Environment:    "development",
		SampleRate:     0.01,
	}
}

// TracerProvider wraps the SDK provider, or nothing when tracing is off.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// InitTracing installs a global tracer provider exporting over OTLP gRPC.
// Without an endpoint it returns the global no-op tracer.
func InitTracing(ctx context.Context, cfg *TracingConfig) (*TracerProvider, error) {
	if cfg == nil {
		cfg = DefaultTracingConfig()
	}

	if cfg.OTLPEndpoint == "" {
		return &TracerProvider{tracer: otel.Tracer(TracerName)}, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.version", cfg.ServiceVersion),
			attribute.String("deployment.environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SampleRate <= 0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &TracerProvider{
		provider: provider,
		tracer:   provider.Tracer(TracerName),
	}, nil
}

// Shutdown flushes and stops the provider.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider != nil {
		return tp.provider.Shutdown(ctx)
	}
	return nil
}

// Tracer returns the underlying tracer.
func (tp *TracerProvider) Tracer() trace.Tracer {
	return tp.tracer
}

// StartFrameSpan starts the span covering one simulation frame.
func StartFrameSpan(ctx context.Context, tracer trace.Tracer, tick uint64) (context.Context, trace.Span) {
	if tracer == nil {
		tracer = otel.Tracer(TracerName)
	}
	return tracer.Start(ctx, "engine.frame",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.Int64("techviz.frame.tick", int64(tick))),
	)
}

// RecordFrame records what a frame produced.
func RecordFrame(span trace.Span, nodes, edges, packets, overlaps int) {
	span.SetAttributes(
		attribute.Int("techviz.frame.nodes", nodes),
		attribute.Int("techviz.frame.edges", edges),
		attribute.Int("techviz.frame.packets", packets),
		attribute.Int("techviz.frame.overlaps", overlaps),
	)
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
