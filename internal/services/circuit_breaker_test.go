package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/platformbuilds/delivery-hours/internal/config"
	"github.com/platformbuilds/delivery-hours/pkg/logger"
)

func newTestBreaker(now *time.Time) *CircuitBreaker {
	b := NewCircuitBreaker("test", config.CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     30,
		HalfOpenMaxCalls: 2,
	}, logger.NewNop())
	b.now = func() time.Time { return *now }
	return b
}

func TestCircuitBreaker_Transitions(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	b := newTestBreaker(&now)
	ctx := context.Background()
	boom := errors.New("boom")
	fail := func(context.Context) error { return boom }
	ok := func(context.Context) error { return nil }

	assert.Equal(t, boom, b.Execute(ctx, fail))
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, boom, b.Execute(ctx, fail))
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Execute(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, called)

	now = now.Add(31 * time.Second)
	assert.NoError(t, b.Execute(ctx, ok))
	assert.Equal(t, StateHalfOpen, b.State())
	assert.NoError(t, b.Execute(ctx, ok))
	assert.Equal(t, StateClosed, b.State())
}

func TestCircuitBreaker_FailureWhileHalfOpenReopens(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	b := newTestBreaker(&now)
	ctx := context.Background()
	fail := func(context.Context) error { return errors.New("boom") }

	_ = b.Execute(ctx, fail)
	_ = b.Execute(ctx, fail)
	now = now.Add(31 * time.Second)
	assert.True(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.State())

	_ = b.Execute(ctx, fail)
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}

func TestCircuitBreaker_NotFoundAndSuccessResetFailures(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	b := newTestBreaker(&now)
	ctx := context.Background()

	_ = b.Execute(ctx, func(context.Context) error { return errors.New("boom") })
	err := b.Execute(ctx, func(context.Context) error { return fmt.Errorf("venue: %w", ErrNotFound) })
	assert.ErrorIs(t, err, ErrNotFound)
	_ = b.Execute(ctx, func(context.Context) error { return errors.New("boom") })
	assert.Equal(t, StateClosed, b.State())

	_ = b.Execute(ctx, func(context.Context) error { return context.Canceled })
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half_open", StateHalfOpen.String())
}
