//go:build unit

package backoff

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponential(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		base     time.Duration
		attempt  int
		expected time.Duration
	}{
		{
			name:     "attempt 0 returns base",
			base:     100 * time.Millisecond,
			attempt:  0,
			expected: 100 * time.Millisecond,
		},
		{
			name:     "attempt 1 doubles base",
			base:     100 * time.Millisecond,
			attempt:  1,
			expected: 200 * time.Millisecond,
		},
		{
			name:     "attempt 3 is 8x base",
			base:     100 * time.Millisecond,
			attempt:  3,
			expected: 800 * time.Millisecond,
		},
		{
			name:     "negative attempt treated as 0",
			base:     100 * time.Millisecond,
			attempt:  -5,
			expected: 100 * time.Millisecond,
		},
		{
			name:     "zero base returns 0",
			base:     0,
			attempt:  5,
			expected: 0,
		},
		{
			name:     "overflow saturates at MaxInt64",
			base:     time.Hour,
			attempt:  62,
			expected: time.Duration(math.MaxInt64),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, Exponential(tt.base, tt.attempt))
		})
	}
}

func TestFullJitter(t *testing.T) {
	t.Parallel()

	assert.Equal(t, time.Duration(0), FullJitter(0))
	assert.Equal(t, time.Duration(0), FullJitter(-time.Second))

	delay := 50 * time.Millisecond
	for range 100 {
		jittered := FullJitter(delay)
		assert.GreaterOrEqual(t, jittered, time.Duration(0))
		assert.Less(t, jittered, delay)
	}
}

func TestExponentialWithJitter(t *testing.T) {
	t.Parallel()

	base := 10 * time.Millisecond

	for attempt := range 5 {
		ceiling := Exponential(base, attempt)

		for range 20 {
			jittered := ExponentialWithJitter(base, attempt)
			assert.GreaterOrEqual(t, jittered, time.Duration(0))
			assert.Less(t, jittered, ceiling)
		}
	}
}

func TestSleepWithContext(t *testing.T) {
	t.Parallel()

	t.Run("completes for zero duration", func(t *testing.T) {
		t.Parallel()

		require.NoError(t, SleepWithContext(context.Background(), 0))
	})

	t.Run("completes after duration", func(t *testing.T) {
		t.Parallel()

		start := time.Now()

		require.NoError(t, SleepWithContext(context.Background(), 20*time.Millisecond))
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	})

	t.Run("returns error when cancelled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := SleepWithContext(ctx, time.Minute)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
