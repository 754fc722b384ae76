package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/platformbuilds/delivery-hours/internal/models"
	"github.com/platformbuilds/delivery-hours/internal/monitoring"
	"github.com/platformbuilds/delivery-hours/internal/schedule"
	"github.com/platformbuilds/delivery-hours/internal/tracing"
	"github.com/platformbuilds/delivery-hours/pkg/logger"
)

// VenueHoursSource provides the opening hours of a venue.
type VenueHoursSource interface {
	GetOpeningHours(ctx context.Context, venueID string) (schedule.WeeklyDeliveryWindow, error)
}

// CourierHoursSource provides the courier fleet hours of a city.
type CourierHoursSource interface {
	GetDeliveryHours(ctx context.Context, city string) (schedule.WeeklyDeliveryWindow, error)
}

const (
	statusSuccess     = "success"
	statusNotFound    = "not_found"
	statusCircuitOpen = "circuit_open"
	statusError       = "error"
)

// DeliveryHoursService combines venue and courier hours into the windows in
// which delivery is possible.
type DeliveryHoursService struct {
	venues   VenueHoursSource
	couriers CourierHoursSource
	logger   logger.Logger
	tracer   *tracing.DeliveryTracer

	// intersectWeeks combines the two schedules; replaced in tests.
	intersectWeeks func(venue, courier schedule.WeeklyDeliveryWindow) (schedule.WeeklyDeliveryWindow, error)
}

func NewDeliveryHoursService(venues VenueHoursSource, couriers CourierHoursSource, log logger.Logger) *DeliveryHoursService {
	return &DeliveryHoursService{
		venues:   venues,
		couriers: couriers,
		logger:   log,
		tracer:   tracing.NewDeliveryTracer(),

		intersectWeeks: schedule.WeeklyDeliveryWindow.IntersectWith,
	}
}

// upstreamSide describes how one upstream's failures are reported.
type upstreamSide struct {
	name       string // venue | courier
	source     models.ErrorSource
	identifier string
}

func (u upstreamSide) code(suffix string) string {
	return strings.ToUpper(u.name) + "_" + suffix
}

func (u upstreamSide) statusKey() string { return u.name + "_service" }

type sideOutcome struct {
	window *schedule.WeeklyDeliveryWindow
	err    *models.ServiceError
	status string
}

// ComputeDeliveryHours never fails: everything that goes wrong is reported
// in the result's Errors.
func (s *DeliveryHoursService) ComputeDeliveryHours(ctx context.Context, venueID, citySlug string) *models.DeliveryHoursResult {
	start := time.Now()
	ctx, span := s.tracer.StartComputationSpan(ctx, venueID, citySlug)
	defer span.End()

	result := models.NewSuccessResult(schedule.EmptyWeek())

	venueSide := upstreamSide{name: "venue", source: models.SourceVenueService, identifier: venueID}
	courierSide := upstreamSide{name: "courier", source: models.SourceCourierService, identifier: citySlug}

	// No derived context: a failing side must not cancel the other one.
	var (
		g                    errgroup.Group
		venueOut, courierOut sideOutcome
	)
	g.Go(func() error {
		venueOut = s.fetchSide(venueSide, func() (schedule.WeeklyDeliveryWindow, error) {
			return s.venues.GetOpeningHours(ctx, venueID)
		})
		return nil
	})
	g.Go(func() error {
		courierOut = s.fetchSide(courierSide, func() (schedule.WeeklyDeliveryWindow, error) {
			return s.couriers.GetDeliveryHours(ctx, citySlug)
		})
		return nil
	})
	// Neither side returns an error; failures travel in the outcomes.
	_ = g.Wait()

	statuses := map[string]string{}
	for _, side := range []struct {
		def upstreamSide
		out sideOutcome
	}{{venueSide, venueOut}, {courierSide, courierOut}} {
		statuses[side.def.statusKey()] = side.out.status
		s.tracer.RecordStatus(span, side.def.statusKey(), side.out.status)
		if side.out.err != nil {
			result.AddError(*side.out.err)
		}
	}
	result.AddMetadata("service_statuses", statuses)

	defer func() {
		monitoring.RecordDeliveryComputation(computationOutcome(result), time.Since(start))
	}()

	switch {
	case venueOut.window == nil && courierOut.window == nil:
		return result
	case venueOut.window == nil:
		result.AddError(models.ServiceError{
			Code:     models.CodeMissingVenueHours,
			Message:  "Venue opening hours are unavailable",
			Source:   models.SourceVenueService,
			Severity: models.SeverityError,
		})
		return result
	case courierOut.window == nil:
		result.AddError(models.ServiceError{
			Code:     models.CodeMissingCourierHours,
			Message:  "Courier delivery hours are unavailable",
			Source:   models.SourceCourierService,
			Severity: models.SeverityError,
		})
		return result
	}

	window, err := s.intersect(ctx, *venueOut.window, *courierOut.window)
	if err != nil {
		s.logger.Error("Failed to calculate delivery hours intersection",
			"error", err, "error_type", errorType(err), "venue_id", venueID, "city_slug", citySlug)
		s.tracer.RecordError(span, err)
		result.AddError(models.ServiceError{
			Code:     models.CodeIntersectionError,
			Message:  "Unable to intersect venue and courier hours",
			Source:   models.SourceDomainLogic,
			Severity: models.SeverityError,
			Details:  map[string]interface{}{"error_type": errorType(err)},
		})
		return result
	}
	result.Window = window
	return result
}

// fetchSide runs one upstream call and classifies its outcome.
func (s *DeliveryHoursService) fetchSide(side upstreamSide, call func() (schedule.WeeklyDeliveryWindow, error)) (out sideOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = s.classify(side, fmt.Errorf("panic: %v", r))
		}
	}()
	week, err := call()
	if err != nil {
		return s.classify(side, err)
	}
	return sideOutcome{window: &week, status: statusSuccess}
}

func (s *DeliveryHoursService) classify(side upstreamSide, err error) sideOutcome {
	var upstreamErr *UpstreamError
	switch {
	case errors.Is(err, ErrUnavailable):
		s.logger.Error("Circuit breaker open for upstream", "service", side.name, "identifier", side.identifier, "error", err)
		return sideOutcome{
			status: statusCircuitOpen,
			err: &models.ServiceError{
				Code:     side.code("SERVICE_UNAVAILABLE"),
				Message:  fmt.Sprintf("%s service is temporarily unavailable", side.name),
				Source:   side.source,
				Severity: models.SeverityError,
				Details:  map[string]interface{}{"circuit_breaker": true},
			},
		}

	case errors.Is(err, ErrNotFound):
		empty := schedule.EmptyWeek()
		return sideOutcome{
			window: &empty,
			status: statusNotFound,
			err: &models.ServiceError{
				Code:     side.code("NOT_FOUND"),
				Message:  fmt.Sprintf("%s %q not found", side.name, side.identifier),
				Source:   side.source,
				Severity: models.SeverityWarning,
			},
		}

	case errors.As(err, &upstreamErr):
		return sideOutcome{
			status: fmt.Sprintf("api_error_%d", upstreamErr.StatusCode),
			err: &models.ServiceError{
				Code:     side.code("SERVICE_ERROR"),
				Message:  fmt.Sprintf("%s service returned an error", side.name),
				Source:   side.source,
				Severity: models.SeverityError,
				Details:  map[string]interface{}{"status_code": upstreamErr.StatusCode},
			},
		}

	default:
		s.logger.Error("Unexpected error getting hours",
			"service", side.name, "identifier", side.identifier, "error", err, "error_type", errorType(err))
		return sideOutcome{
			status: statusError,
			err: &models.ServiceError{
				Code:     side.code("SERVICE_ERROR"),
				Message:  fmt.Sprintf("unexpected error from %s service", side.name),
				Source:   side.source,
				Severity: models.SeverityError,
				Details:  map[string]interface{}{"error_type": errorType(err)},
			},
		}
	}
}

// intersect turns a panic in the schedule algebra into an error.
func (s *DeliveryHoursService) intersect(ctx context.Context, venue, courier schedule.WeeklyDeliveryWindow) (week schedule.WeeklyDeliveryWindow, err error) {
	_, span := s.tracer.StartIntersectionSpan(ctx)
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			err = &intersectionPanic{value: r}
			span.SetAttributes(attribute.Bool("panic", true))
		}
	}()
	return s.intersectWeeks(venue, courier)
}

type intersectionPanic struct{ value interface{} }

func (p *intersectionPanic) Error() string { return fmt.Sprintf("intersection panicked: %v", p.value) }

// errorType names the innermost cause, e.g. *json.SyntaxError.
func errorType(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return fmt.Sprintf("%T", err)
		}
		err = next
	}
}

func computationOutcome(r *models.DeliveryHoursResult) string {
	switch {
	case r.HasCriticalErrors():
		return "failed"
	case r.HasErrors():
		return "degraded"
	default:
		return "success"
	}
}
