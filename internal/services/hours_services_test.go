package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/platformbuilds/delivery-hours/internal/config"
	"github.com/platformbuilds/delivery-hours/internal/schedule"
	"github.com/platformbuilds/delivery-hours/internal/tracing"
	"github.com/platformbuilds/delivery-hours/pkg/cache"
	"github.com/platformbuilds/delivery-hours/pkg/logger"
)

const mondayTenToFourteen = `{"monday":[{"open":36000},{"close":50400}]}`

type upstreamFixture struct {
	srv   *httptest.Server
	calls int32
}

func newUpstream(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *upstreamFixture {
	t.Helper()
	f := &upstreamFixture{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.calls, 1)
		handler(w, r)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func testDeps(name, url string) (*UpstreamClient, *CircuitBreaker, *PayloadCache) {
	log := logger.NewNop()
	client := NewUpstreamClient(name, config.ServiceConfig{Endpoints: []string{url}, Timeout: 2000, BackoffMS: 1}, log)
	breaker := NewCircuitBreaker(name, config.CircuitBreakerConfig{FailureThreshold: 5, ResetTimeout: 30, HalfOpenMaxCalls: 3}, log)
	payloads := NewPayloadCache(cache.NewNoopValkeyCache(log, time.Minute), time.Minute, log)
	return client, breaker, payloads
}

func TestVenueHoursService_FetchesAndCaches(t *testing.T) {
	up := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/venues/v-1/opening-hours", r.URL.Path)
		_, _ = w.Write([]byte(mondayTenToFourteen))
	})
	client, breaker, payloads := testDeps("venue", up.srv.URL)
	svc := NewVenueHoursService(client, breaker, payloads, logger.NewNop())

	for i := 0; i < 2; i++ {
		week, err := svc.GetOpeningHours(context.Background(), "v-1")
		require.NoError(t, err)
		assert.Equal(t, "10-14", week.ToAPIFormat()["Monday"])
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&up.calls), "second lookup should be served from cache")

	n, err := payloads.InvalidateService(context.Background(), "venue")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = svc.GetOpeningHours(context.Background(), "v-1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&up.calls))
}

func TestCourierHoursService_PassesCity(t *testing.T) {
	up := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/delivery-hours", r.URL.Path)
		assert.Equal(t, "helsinki", r.URL.Query().Get("city"))
		_, _ = w.Write([]byte(`{"friday":[{"open":79200}],"saturday":[{"close":7200}]}`))
	})
	client, breaker, payloads := testDeps("courier", up.srv.URL)
	svc := NewCourierHoursService(client, breaker, payloads, logger.NewNop())

	week, err := svc.GetDeliveryHours(context.Background(), "helsinki")
	require.NoError(t, err)
	assert.Equal(t, "22-2", week.ToAPIFormat()["Friday"])
	assert.Equal(t, "Closed", week.ToAPIFormat()["Saturday"])
}

func TestHoursService_NotFoundIsNotCachedOrCounted(t *testing.T) {
	up := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	client, breaker, payloads := testDeps("venue", up.srv.URL)
	svc := NewVenueHoursService(client, breaker, payloads, logger.NewNop())

	for i := 0; i < 6; i++ {
		_, err := svc.GetOpeningHours(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, StateClosed, breaker.State())
	assert.Equal(t, int32(6), atomic.LoadInt32(&up.calls))
}

func TestHoursService_BreakerOpensOnRepeatedFailures(t *testing.T) {
	up := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	client, breaker, payloads := testDeps("venue", up.srv.URL)
	svc := NewVenueHoursService(client, breaker, payloads, logger.NewNop())

	for i := 0; i < 5; i++ {
		_, err := svc.GetOpeningHours(context.Background(), "v")
		var upstreamErr *UpstreamError
		require.True(t, errors.As(err, &upstreamErr))
	}
	calls := atomic.LoadInt32(&up.calls)

	_, err := svc.GetOpeningHours(context.Background(), "v")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, calls, atomic.LoadInt32(&up.calls))
}

func TestHoursService_MalformedPayload(t *testing.T) {
	up := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})
	client, breaker, payloads := testDeps("venue", up.srv.URL)
	svc := NewVenueHoursService(client, breaker, payloads, logger.NewNop())

	_, err := svc.GetOpeningHours(context.Background(), "v")
	require.Error(t, err)
	var upstreamErr *UpstreamError
	assert.False(t, errors.As(err, &upstreamErr))

	_, hit := payloads.Get(context.Background(), "venue", "/venues/v/opening-hours", map[string]string{"venue_id": "v"})
	assert.False(t, hit)
}

func TestCacheKey(t *testing.T) {
	a := cacheKey("courier", "/delivery-hours", map[string]string{"city": "berlin", "x": "1"})
	b := cacheKey("courier", "/delivery-hours", map[string]string{"x": "1", "city": "berlin"})
	c := cacheKey("courier", "/delivery-hours", map[string]string{"city": "oslo"})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "delivery_service:courier:")
}

func TestPayloadCache_NilIsDisabled(t *testing.T) {
	var p *PayloadCache
	_, hit := p.Get(context.Background(), "venue", "/x", nil)
	assert.False(t, hit)
	p.Set(context.Background(), "venue", "/x", nil, []byte("{}"))
	n, err := p.InvalidateService(context.Background(), "venue")
	assert.NoError(t, err)
	assert.Zero(t, n)
	p.SetTTL(time.Second)
}

var _ VenueHoursSource = (*VenueHoursService)(nil)
var _ CourierHoursSource = (*CourierHoursService)(nil)

func mustWeek(t *testing.T, raw schedule.RawWeek) schedule.WeeklyDeliveryWindow {
	t.Helper()
	return schedule.NewConverter(logger.NewNop()).Convert(raw)
}

func TestHoursFetcher_SpanMarksCacheHits(t *testing.T) {
	up := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(mondayTenToFourteen))
	})
	client, breaker, payloads := testDeps("venue", up.srv.URL)
	svc := NewVenueHoursService(client, breaker, payloads, logger.NewNop())

	sr := tracetest.NewSpanRecorder()
	svc.fetcher.tracer = tracing.NewDeliveryTracerWith(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))

	for i := 0; i < 2; i++ {
		_, err := svc.GetOpeningHours(context.Background(), "v-1")
		require.NoError(t, err)
	}

	spans := sr.Ended()
	require.Len(t, spans, 2)
	for _, s := range spans {
		assert.Equal(t, "upstream.venue", s.Name())
	}
	assert.Contains(t, spans[0].Attributes(), attribute.Bool("cache.hit", false))
	assert.Contains(t, spans[1].Attributes(), attribute.Bool("cache.hit", true))
	assert.Equal(t, int32(1), atomic.LoadInt32(&up.calls))
}
