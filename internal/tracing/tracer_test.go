package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestDeliveryTracer_Spans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	dt := NewDeliveryTracerWith(tp)

	ctx, root := dt.StartComputationSpan(context.Background(), "venue-1", "berlin")
	_, up := dt.StartUpstreamSpan(ctx, "venue", "/venues/venue-1/opening-hours")
	dt.RecordError(up, errors.New("boom"), attribute.Int("http.status_code", 502))
	up.End()
	dt.RecordStatus(root, "venue_service", "api_error_502")
	root.End()

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "upstream.venue", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "delivery_hours.compute", spans[1].Name())
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
	assert.Contains(t, spans[1].Attributes(), attribute.String("venue_service.status", "api_error_502"))
}

func TestDeliveryTracer_NoProviderIsNoop(t *testing.T) {
	dt := NewDeliveryTracer()
	_, span := dt.StartIntersectionSpan(context.Background())
	span.End()
}
