package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/platformbuilds/delivery-hours/internal/config"
	"github.com/platformbuilds/delivery-hours/internal/monitoring"
	"github.com/platformbuilds/delivery-hours/pkg/logger"
)

type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreaker guards one upstream. It opens after FailureThreshold
// consecutive failures, lets calls through again once ResetTimeout has passed
// since the last failure, and closes after HalfOpenMaxCalls successes.
// A failure while half-open reopens it.
type CircuitBreaker struct {
	name   string
	cfg    config.CircuitBreakerConfig
	logger logger.Logger
	now    func() time.Time

	mu                sync.Mutex
	state             BreakerState
	failures          int
	halfOpenSuccesses int
	lastFailure       time.Time
}

func NewCircuitBreaker(name string, cfg config.CircuitBreakerConfig, log logger.Logger) *CircuitBreaker {
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = config.DefaultFailureThreshold
	}
	if cfg.ResetTimeout < 1 {
		cfg.ResetTimeout = config.DefaultResetTimeoutSec
	}
	if cfg.HalfOpenMaxCalls < 1 {
		cfg.HalfOpenMaxCalls = config.DefaultHalfOpenMaxCalls
	}
	b := &CircuitBreaker{name: name, cfg: cfg, logger: log, now: time.Now}
	monitoring.SetCircuitBreakerState(name, int(StateClosed))
	return b
}

// Execute runs fn unless the breaker is open, in which case it returns
// ErrUnavailable. Not-found answers and caller cancellation are neither
// successes nor failures of the upstream.
func (b *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if !b.Allow() {
		return ErrUnavailable
	}
	err := fn(ctx)
	switch {
	case err == nil:
		b.RecordSuccess()
	case errors.Is(err, ErrNotFound):
		b.RecordSuccess()
	case errors.Is(err, context.Canceled):
	default:
		b.RecordFailure()
	}
	return err
}

// Allow reports whether a call may proceed, moving an expired open breaker
// to half-open.
func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.lastFailure) > b.cfg.ResetTimeoutDuration() {
			b.transition(StateHalfOpen)
			b.halfOpenSuccesses = 0
			return true
		}
		return false
	default:
		return true
	}
}

func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		b.halfOpenSuccesses++
		if b.halfOpenSuccesses >= b.cfg.HalfOpenMaxCalls {
			b.failures = 0
			b.transition(StateClosed)
		}
	case StateClosed:
		b.failures = 0
	}
}

func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = b.now()

	if b.state == StateHalfOpen || (b.state == StateClosed && b.failures >= b.cfg.FailureThreshold) {
		b.transition(StateOpen)
	}
}

func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// transition must be called with mu held.
func (b *CircuitBreaker) transition(to BreakerState) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	monitoring.SetCircuitBreakerState(b.name, int(to))

	kv := []interface{}{"service", b.name, "from", from.String(), "to", to.String()}
	if to == StateOpen {
		b.logger.Warn("Circuit breaker opened", append(kv, "failures", b.failures, "threshold", b.cfg.FailureThreshold)...)
		return
	}
	b.logger.Info("Circuit breaker state changed", kv...)
}
