package harness

import (
	"context"
	"time"
)

// pollResult is returned by a poll attempt: done stops the loop with the
// attempt's error (nil for success), !done schedules another attempt.
type pollResult struct {
	done bool
	err  error
}

func pollDone(err error) pollResult { return pollResult{done: true, err: err} }
func pollAgain() pollResult         { return pollResult{} }

// pollUntil runs attempt at a fixed interval until it reports done or the
// deadline elapses. The deadline is re-checked before every attempt, so the
// loop never overshoots by more than one interval. Deadline expiry is the
// only cancellation mechanism besides ctx itself.
//
// Returns (true, err) when the attempt finished the loop, (false, nil) when
// the deadline elapsed first.
func pollUntil(ctx context.Context, interval, deadline time.Duration, attempt func(ctx context.Context) pollResult) (bool, error) {
	start := time.Now()
	for {
		if time.Since(start) >= deadline {
			return false, nil
		}
		if err := ctx.Err(); err != nil {
			return false, err
		}

		res := attempt(ctx)
		if res.done {
			return true, res.err
		}

		remaining := deadline - time.Since(start)
		if remaining <= 0 {
			return false, nil
		}
		wait := interval
		if wait > remaining {
			wait = remaining
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}
