package harness

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollUntilSucceedsBeforeDeadline(t *testing.T) {
	attempts := 0
	finished, err := pollUntil(context.Background(), time.Millisecond, time.Second, func(ctx context.Context) pollResult {
		attempts++
		if attempts == 3 {
			return pollDone(nil)
		}
		return pollAgain()
	})

	require.NoError(t, err)
	assert.True(t, finished)
	assert.Equal(t, 3, attempts)
}

func TestPollUntilPropagatesAttemptError(t *testing.T) {
	terminal := errors.New("boom")
	finished, err := pollUntil(context.Background(), time.Millisecond, time.Second, func(ctx context.Context) pollResult {
		return pollDone(terminal)
	})

	assert.True(t, finished)
	assert.ErrorIs(t, err, terminal)
}

func TestPollUntilDeadlineElapses(t *testing.T) {
	start := time.Now()
	finished, err := pollUntil(context.Background(), 5*time.Millisecond, 30*time.Millisecond, func(ctx context.Context) pollResult {
		return pollAgain()
	})

	require.NoError(t, err)
	assert.False(t, finished)
	// No overshoot by more than one interval.
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestPollUntilStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	finished, err := pollUntil(ctx, time.Millisecond, time.Second, func(ctx context.Context) pollResult {
		return pollAgain()
	})

	assert.False(t, finished)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPollUntilZeroDeadlineNeverAttempts(t *testing.T) {
	attempts := 0
	finished, err := pollUntil(context.Background(), time.Millisecond, 0, func(ctx context.Context) pollResult {
		attempts++
		return pollDone(nil)
	})

	require.NoError(t, err)
	assert.False(t, finished)
	assert.Equal(t, 0, attempts)
}
