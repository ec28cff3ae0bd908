package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var errUpstream = errors.New("upstream down")

func newBreaker(t *testing.T, cfg Config) *Breaker {
	t.Helper()
	return New("test", cfg, zaptest.NewLogger(t))
}

func fail() error { return errUpstream }
func ok() error   { return nil }

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b := newBreaker(t, Config{
		FailureThreshold: 3,
		SuccessThreshold: 1,
		OpenTimeout:      time.Minute,
		ProbeBudget:      1,
	})

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, b.Execute(fail), errUpstream)
	}
	assert.Equal(t, StateOpen, b.State())

	// While open, calls are refused without reaching the upstream.
	called := false
	err := b.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestBreakerSuccessResetsFailureStreak(t *testing.T) {
	b := newBreaker(t, Config{
		FailureThreshold: 3,
		SuccessThreshold: 1,
		OpenTimeout:      time.Minute,
		ProbeBudget:      1,
	})

	require.Error(t, b.Execute(fail))
	require.Error(t, b.Execute(fail))
	require.NoError(t, b.Execute(ok))
	require.Error(t, b.Execute(fail))
	require.Error(t, b.Execute(fail))

	// Streak was broken, so five non-consecutive failures stay closed.
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	b := newBreaker(t, Config{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		OpenTimeout:      10 * time.Millisecond,
		ProbeBudget:      5,
	})

	require.Error(t, b.Execute(fail))
	require.Equal(t, StateOpen, b.State())

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, StateHalfOpen, b.State())

	require.NoError(t, b.Execute(ok))
	require.NoError(t, b.Execute(ok))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	b := newBreaker(t, Config{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		OpenTimeout:      10 * time.Millisecond,
		ProbeBudget:      5,
	})

	require.Error(t, b.Execute(fail))
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, StateHalfOpen, b.State())

	require.ErrorIs(t, b.Execute(fail), errUpstream)
	assert.Equal(t, StateOpen, b.State())
}
