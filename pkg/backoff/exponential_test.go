package backoff

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCalculateRetryDelay(t *testing.T) {
	baseRetryDelay := 100 * time.Millisecond

	tests := []struct {
		name             string
		attempt          int
		expectedMinDelay time.Duration
		expectedMaxDelay time.Duration
		expectZero       bool
	}{
		{name: "Attempt 0", attempt: 0, expectZero: true},
		{name: "Attempt 1", attempt: 1, expectZero: true},
		{
			name:             "Attempt 2",
			attempt:          2,
			expectedMinDelay: time.Duration(math.Pow(2, 1) * float64(baseRetryDelay) * 0.5),
			expectedMaxDelay: time.Duration(math.Pow(2, 1) * float64(baseRetryDelay) * 1.5),
		},
		{
			name:             "Attempt 5",
			attempt:          5,
			expectedMinDelay: time.Duration(math.Pow(2, 4) * float64(baseRetryDelay) * 0.5),
			expectedMaxDelay: time.Duration(math.Pow(2, 4) * float64(baseRetryDelay) * 1.5),
		},
		{
			name:             "Capped",
			attempt:          40,
			expectedMinDelay: maxDelay / 2,
			expectedMaxDelay: maxDelay * 3 / 2,
		},
		{name: "Negative Attempt", attempt: -1, expectZero: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delay := CalculateRetryDelay(tt.attempt, baseRetryDelay)

			if tt.expectZero {
				assert.Equal(t, time.Duration(0), delay)
				return
			}
			assert.GreaterOrEqual(t, delay, tt.expectedMinDelay)
			assert.LessOrEqual(t, delay, tt.expectedMaxDelay)
		})
	}
}

func TestCalculateRetryDelay_ZeroBase(t *testing.T) {
	assert.Equal(t, time.Duration(0), CalculateRetryDelay(3, 0))
}

func TestWait(t *testing.T) {
	assert.NoError(t, Wait(context.Background(), 2, time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, 10, time.Second), context.Canceled)
	assert.ErrorIs(t, Wait(ctx, 1, time.Second), context.Canceled)
}
