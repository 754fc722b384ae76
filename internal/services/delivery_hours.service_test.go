package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformbuilds/delivery-hours/internal/models"
	"github.com/platformbuilds/delivery-hours/internal/schedule"
	"github.com/platformbuilds/delivery-hours/pkg/logger"
)

type fakeVenues struct {
	week   schedule.WeeklyDeliveryWindow
	err    error
	wait   <-chan struct{}
	gotCtx context.Context
}

func (f *fakeVenues) GetOpeningHours(ctx context.Context, _ string) (schedule.WeeklyDeliveryWindow, error) {
	f.gotCtx = ctx
	if f.wait != nil {
		<-f.wait
	}
	return f.week, f.err
}

type fakeCouriers struct {
	week  schedule.WeeklyDeliveryWindow
	err   error
	panic bool
}

func (f *fakeCouriers) GetDeliveryHours(context.Context, string) (schedule.WeeklyDeliveryWindow, error) {
	if f.panic {
		panic("courier adapter exploded")
	}
	return f.week, f.err
}

func statusesOf(t *testing.T, r *models.DeliveryHoursResult) map[string]string {
	t.Helper()
	s, ok := r.Metadata["service_statuses"].(map[string]string)
	require.True(t, ok, "service_statuses metadata missing")
	return s
}

func TestComputeDeliveryHours_Success(t *testing.T) {
	venues := &fakeVenues{week: mustWeek(t, schedule.RawWeek{
		"monday": {schedule.OpenAt(36000), schedule.CloseAt(79200)},
	})}
	couriers := &fakeCouriers{week: mustWeek(t, schedule.RawWeek{
		"monday": {schedule.OpenAt(32400), schedule.CloseAt(46800), schedule.OpenAt(61200), schedule.CloseAt(86399)},
	})}
	svc := NewDeliveryHoursService(venues, couriers, logger.NewNop())

	r := svc.ComputeDeliveryHours(context.Background(), "v", "berlin")
	assert.False(t, r.HasErrors())
	assert.Equal(t, "10-13, 17-22", r.Window.ToAPIFormat()["Monday"])
	assert.Equal(t, map[string]string{"venue_service": "success", "courier_service": "success"}, statusesOf(t, r))
}

func TestComputeDeliveryHours_NotFoundIsWarning(t *testing.T) {
	venues := &fakeVenues{err: fmt.Errorf("venue: %w", ErrNotFound)}
	couriers := &fakeCouriers{week: mustWeek(t, schedule.RawWeek{
		"monday": {schedule.OpenAt(36000), schedule.CloseAt(50400)},
	})}
	svc := NewDeliveryHoursService(venues, couriers, logger.NewNop())

	r := svc.ComputeDeliveryHours(context.Background(), "v", "berlin")
	assert.Equal(t, []string{models.CodeVenueNotFound}, r.ErrorCodes())
	assert.False(t, r.HasCriticalErrors())
	assert.Equal(t, models.SeverityWarning, r.Errors[0].Severity)
	assert.True(t, r.Window.IsEmpty())
	assert.Equal(t, "not_found", statusesOf(t, r)["venue_service"])
}

func TestComputeDeliveryHours_CircuitOpen(t *testing.T) {
	venues := &fakeVenues{week: schedule.EmptyWeek()}
	couriers := &fakeCouriers{err: ErrUnavailable}
	svc := NewDeliveryHoursService(venues, couriers, logger.NewNop())

	r := svc.ComputeDeliveryHours(context.Background(), "v", "berlin")
	assert.Equal(t, []string{models.CodeCourierServiceUnavailable, models.CodeMissingCourierHours}, r.ErrorCodes())
	assert.Equal(t, map[string]interface{}{"circuit_breaker": true}, r.Errors[0].Details)
	assert.Equal(t, models.SourceCourierService, r.Errors[0].Source)
	assert.Equal(t, "circuit_open", statusesOf(t, r)["courier_service"])
}

func TestComputeDeliveryHours_UpstreamStatus(t *testing.T) {
	venues := &fakeVenues{err: &UpstreamError{Service: "venue", StatusCode: http.StatusBadGateway}}
	couriers := &fakeCouriers{week: schedule.EmptyWeek()}
	svc := NewDeliveryHoursService(venues, couriers, logger.NewNop())

	r := svc.ComputeDeliveryHours(context.Background(), "v", "berlin")
	assert.Equal(t, []string{models.CodeVenueServiceError, models.CodeMissingVenueHours}, r.ErrorCodes())
	assert.Equal(t, map[string]interface{}{"status_code": http.StatusBadGateway}, r.Errors[0].Details)
	assert.Equal(t, "api_error_502", statusesOf(t, r)["venue_service"])
}

func TestComputeDeliveryHours_BothSidesFail(t *testing.T) {
	venues := &fakeVenues{err: errors.New("dns failure")}
	couriers := &fakeCouriers{panic: true}
	svc := NewDeliveryHoursService(venues, couriers, logger.NewNop())

	r := svc.ComputeDeliveryHours(context.Background(), "v", "berlin")
	assert.Equal(t, []string{models.CodeVenueServiceError, models.CodeCourierServiceError}, r.ErrorCodes())
	assert.Equal(t, "*errors.errorString", r.Errors[0].Details["error_type"])
	assert.Equal(t, map[string]string{"venue_service": "error", "courier_service": "error"}, statusesOf(t, r))
	assert.True(t, r.Window.IsEmpty())
}

func TestComputeDeliveryHours_SidesRunConcurrently(t *testing.T) {
	release := make(chan struct{})
	venues := &fakeVenues{week: schedule.EmptyWeek(), wait: release}
	couriers := &fakeCouriers{err: ErrUnavailable}
	svc := NewDeliveryHoursService(venues, couriers, logger.NewNop())

	var (
		wg sync.WaitGroup
		r  *models.DeliveryHoursResult
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		r = svc.ComputeDeliveryHours(context.Background(), "v", "berlin")
	}()

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	// the fast courier failure neither cancels nor skips the venue lookup
	require.NotNil(t, venues.gotCtx)
	assert.NoError(t, venues.gotCtx.Err())
	assert.Equal(t, "success", statusesOf(t, r)["venue_service"])
}

func TestComputationOutcome(t *testing.T) {
	r := models.NewSuccessResult(schedule.EmptyWeek())
	assert.Equal(t, "success", computationOutcome(r))
	r.AddError(models.ServiceError{Code: models.CodeVenueNotFound, Severity: models.SeverityWarning})
	assert.Equal(t, "degraded", computationOutcome(r))
	r.AddError(models.ServiceError{Code: models.CodeIntersectionError})
	assert.Equal(t, "failed", computationOutcome(r))
}

func TestErrorType(t *testing.T) {
	inner := &UpstreamError{StatusCode: 500}
	assert.Equal(t, "*services.UpstreamError", errorType(fmt.Errorf("wrap: %w", inner)))
	assert.Equal(t, "*services.intersectionPanic", errorType(&intersectionPanic{value: "x"}))
}

func TestComputeDeliveryHours_IntersectionFailure(t *testing.T) {
	cases := map[string]struct {
		intersect func(a, b schedule.WeeklyDeliveryWindow) (schedule.WeeklyDeliveryWindow, error)
		errorType string
	}{
		"error": {
			intersect: func(a, b schedule.WeeklyDeliveryWindow) (schedule.WeeklyDeliveryWindow, error) {
				return schedule.WeeklyDeliveryWindow{}, fmt.Errorf("monday: %w", schedule.ErrIncompatibleDays)
			},
			errorType: "*errors.errorString",
		},
		"panic": {
			intersect: func(a, b schedule.WeeklyDeliveryWindow) (schedule.WeeklyDeliveryWindow, error) {
				panic("index out of range")
			},
			errorType: "*services.intersectionPanic",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			venues := &fakeVenues{week: mustWeek(t, schedule.RawWeek{
				"monday": {schedule.OpenAt(36000), schedule.CloseAt(79200)},
			})}
			couriers := &fakeCouriers{week: mustWeek(t, schedule.RawWeek{
				"monday": {schedule.OpenAt(32400), schedule.CloseAt(86399)},
			})}
			svc := NewDeliveryHoursService(venues, couriers, logger.NewNop())
			svc.intersectWeeks = tc.intersect

			var r *models.DeliveryHoursResult
			require.NotPanics(t, func() {
				r = svc.ComputeDeliveryHours(context.Background(), "v", "berlin")
			})

			require.Len(t, r.Errors, 1)
			e := r.Errors[0]
			assert.Equal(t, models.CodeIntersectionError, e.Code)
			assert.Equal(t, models.SourceDomainLogic, e.Source)
			assert.Equal(t, models.SeverityError, e.Severity)
			assert.Equal(t, tc.errorType, e.Details["error_type"])
			assert.True(t, r.HasCriticalErrors())
			assert.True(t, r.Window.IsEmpty())
			assert.Equal(t, map[string]string{"venue_service": "success", "courier_service": "success"}, statusesOf(t, r))
		})
	}
}
