package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/platformbuilds/delivery-hours"

// TracerProvider manages the lifecycle of the OpenTelemetry tracer
type TracerProvider struct {
	tp *sdktrace.TracerProvider
}

// Options configures the OTLP exporter.
type Options struct {
	ServiceName    string
	ServiceVersion string
	OTLPEndpoint   string
	Insecure       bool
	SampleRatio    float64
}

// NewTracerProvider creates a tracer provider exporting over OTLP/gRPC and
// installs it globally.
func NewTracerProvider(ctx context.Context, opts Options) (*TracerProvider, error) {
	exporterOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(opts.OTLPEndpoint)}
	if opts.Insecure {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(
		ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(opts.ServiceName),
			semconv.ServiceVersionKey.String(opts.ServiceVersion),
			semconv.ServiceNamespaceKey.String("delivery"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(opts.SampleRatio))),
	)

	otel.SetTracerProvider(tp)

	return &TracerProvider{tp: tp}, nil
}

// Shutdown flushes pending spans and stops the exporter.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	return tp.tp.Shutdown(ctx)
}

// DeliveryTracer starts spans for the delivery hours computation. Without an
// installed provider the spans are no-ops.
type DeliveryTracer struct {
	tracer trace.Tracer
}

// NewDeliveryTracer uses the global provider.
func NewDeliveryTracer() *DeliveryTracer {
	return &DeliveryTracer{tracer: otel.Tracer(instrumentationName)}
}

// NewDeliveryTracerWith uses an explicit provider.
func NewDeliveryTracerWith(tp trace.TracerProvider) *DeliveryTracer {
	return &DeliveryTracer{tracer: tp.Tracer(instrumentationName)}
}

// StartComputationSpan wraps one delivery hours request.
func (dt *DeliveryTracer) StartComputationSpan(ctx context.Context, venueID, city string) (context.Context, trace.Span) {
	return dt.tracer.Start(ctx, "delivery_hours.compute",
		trace.WithAttributes(
			attribute.String("venue.id", venueID),
			attribute.String("city.slug", city),
			attribute.String("component", "delivery-hours"),
		),
	)
}

// StartUpstreamSpan wraps one logical upstream fetch, retries included.
func (dt *DeliveryTracer) StartUpstreamSpan(ctx context.Context, service, path string) (context.Context, trace.Span) {
	return dt.tracer.Start(ctx, "upstream."+service,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("upstream.service", service),
			attribute.String("upstream.path", path),
		),
	)
}

// StartIntersectionSpan wraps the schedule intersection.
func (dt *DeliveryTracer) StartIntersectionSpan(ctx context.Context) (context.Context, trace.Span) {
	return dt.tracer.Start(ctx, "delivery_hours.intersect")
}

// RecordStatus attaches a per-upstream outcome to span.
func (dt *DeliveryTracer) RecordStatus(span trace.Span, service, status string) {
	span.SetAttributes(attribute.String(service+".status", status))
}

// RecordError records an error on a span
func (dt *DeliveryTracer) RecordError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attrs...)
	span.RecordError(err)
}
