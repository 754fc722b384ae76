package models

import (
	"github.com/platformbuilds/delivery-hours/internal/schedule"
)

// ErrorSource names the component an error originated from.
type ErrorSource string

const (
	SourceVenueService   ErrorSource = "venue_service"
	SourceCourierService ErrorSource = "courier_service"
	SourceDomainLogic    ErrorSource = "domain_logic"
	SourceUnknown        ErrorSource = "unknown"
)

// ErrorSeverity separates degraded results (warning) from failed ones (error).
type ErrorSeverity string

const (
	SeverityWarning ErrorSeverity = "warning"
	SeverityError   ErrorSeverity = "error"
)

// Error codes reported in DeliveryHoursResult.Errors.
const (
	CodeVenueNotFound             = "VENUE_NOT_FOUND"
	CodeVenueServiceUnavailable   = "VENUE_SERVICE_UNAVAILABLE"
	CodeVenueServiceError         = "VENUE_SERVICE_ERROR"
	CodeCourierNotFound           = "COURIER_NOT_FOUND"
	CodeCourierServiceUnavailable = "COURIER_SERVICE_UNAVAILABLE"
	CodeCourierServiceError       = "COURIER_SERVICE_ERROR"
	CodeMissingVenueHours         = "MISSING_VENUE_HOURS"
	CodeMissingCourierHours       = "MISSING_COURIER_HOURS"
	CodeIntersectionError         = "INTERSECTION_ERROR"
)

type ServiceError struct {
	Code     string                 `json:"code"`
	Message  string                 `json:"message"`
	Source   ErrorSource            `json:"source"`
	Severity ErrorSeverity          `json:"severity"`
	Details  map[string]interface{} `json:"details,omitempty"`
}

// DeliveryHoursResult carries the computed week together with everything
// that went wrong while computing it, so callers can pick a response.
type DeliveryHoursResult struct {
	Window   schedule.WeeklyDeliveryWindow `json:"-"`
	Errors   []ServiceError                `json:"errors,omitempty"`
	Metadata map[string]interface{}        `json:"metadata,omitempty"`
}

func NewSuccessResult(window schedule.WeeklyDeliveryWindow) *DeliveryHoursResult {
	return &DeliveryHoursResult{Window: window, Metadata: map[string]interface{}{}}
}

// NewErrorResult starts from an empty week with a single error.
func NewErrorResult(err ServiceError) *DeliveryHoursResult {
	r := NewSuccessResult(schedule.EmptyWeek())
	r.AddError(err)
	return r
}

func (r *DeliveryHoursResult) AddError(err ServiceError) {
	if err.Source == "" {
		err.Source = SourceUnknown
	}
	if err.Severity == "" {
		err.Severity = SeverityError
	}
	r.Errors = append(r.Errors, err)
}

func (r *DeliveryHoursResult) AddMetadata(key string, value interface{}) {
	if r.Metadata == nil {
		r.Metadata = map[string]interface{}{}
	}
	r.Metadata[key] = value
}

func (r *DeliveryHoursResult) HasErrors() bool { return len(r.Errors) > 0 }

// HasCriticalErrors ignores warnings.
func (r *DeliveryHoursResult) HasCriticalErrors() bool {
	for _, e := range r.Errors {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ErrorCodes lists the codes in the order they were added.
func (r *DeliveryHoursResult) ErrorCodes() []string {
	out := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = e.Code
	}
	return out
}
