package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	json "github.com/goccy/go-json"
	"go.opentelemetry.io/otel/attribute"

	"github.com/platformbuilds/delivery-hours/internal/monitoring"
	"github.com/platformbuilds/delivery-hours/internal/schedule"
	"github.com/platformbuilds/delivery-hours/internal/tracing"
	"github.com/platformbuilds/delivery-hours/pkg/logger"
)

// hoursFetcher is the shared read path of the venue and courier adapters:
// cache, breaker, HTTP, decode, convert.
type hoursFetcher struct {
	client    *UpstreamClient
	breaker   *CircuitBreaker
	payloads  *PayloadCache
	converter *schedule.Converter
	tracer    *tracing.DeliveryTracer
	logger    logger.Logger
}

func newHoursFetcher(client *UpstreamClient, breaker *CircuitBreaker, payloads *PayloadCache, log logger.Logger) hoursFetcher {
	return hoursFetcher{
		client:    client,
		breaker:   breaker,
		payloads:  payloads,
		converter: schedule.NewConverter(log),
		tracer:    tracing.NewDeliveryTracer(),
		logger:    log,
	}
}

func (f hoursFetcher) fetch(ctx context.Context, path string, query url.Values, params map[string]string) (schedule.WeeklyDeliveryWindow, error) {
	service := f.client.Name()

	ctx, span := f.tracer.StartUpstreamSpan(ctx, service, path)
	defer span.End()

	if cached, ok := f.payloads.Get(ctx, service, path, params); ok {
		var raw schedule.RawWeek
		if err := json.Unmarshal(cached, &raw); err == nil {
			f.logger.Info("Retrieved cached hours", "service", service, "path", path)
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return f.converter.Convert(raw), nil
		}
		f.logger.Warn("Discarding undecodable cached payload", "service", service, "path", path)
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	start := time.Now()
	var (
		body []byte
		raw  schedule.RawWeek
	)
	err := f.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		body, err = f.client.Get(ctx, path, query)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(body, &raw); err != nil {
			return fmt.Errorf("decode %s payload: %w", service, err)
		}
		return nil
	})
	monitoring.RecordUpstreamRequest(service, outcomeOf(err), time.Since(start))

	if err != nil {
		f.logFailure(service, path, err)
		f.tracer.RecordError(span, err, attribute.String("upstream.outcome", outcomeOf(err)))
		return schedule.WeeklyDeliveryWindow{}, err
	}

	f.payloads.Set(ctx, service, path, params, body)
	return f.converter.Convert(raw), nil
}

func (f hoursFetcher) logFailure(service, path string, err error) {
	var upstreamErr *UpstreamError
	switch {
	case errors.Is(err, ErrUnavailable):
		f.logger.Error("Circuit breaker is open", "service", service, "path", path)
	case errors.Is(err, ErrNotFound):
		f.logger.Warn("Resource not found upstream", "service", service, "path", path)
	case errors.As(err, &upstreamErr):
		f.logger.Error("Upstream request failed", "service", service, "path", path, "status", upstreamErr.StatusCode, "error", err)
	default:
		f.logger.Error("Unexpected error fetching hours", "service", service, "path", path, "error", err)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnavailable):
		return "circuit_open"
	default:
		return "error"
	}
}
