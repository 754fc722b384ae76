package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an upstream answers 404 for the requested resource.
	ErrNotFound = errors.New("upstream resource not found")
	// ErrUnavailable is returned without calling the upstream while its circuit breaker is open.
	ErrUnavailable = errors.New("upstream unavailable: circuit breaker open")
)

// UpstreamError is a non-2xx answer (other than 404) or a transport failure,
// which is reported as status 500.
type UpstreamError struct {
	Service    string
	StatusCode int
	Detail     string
	Err        error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s API error %d: %s", e.Service, e.StatusCode, e.Detail)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
