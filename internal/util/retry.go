package util

import (
	"context"
	"fmt"
	"time"
)

// LinearSchedule returns the waits between attempts for a bounded retry:
// attempts-1 delays of step, 2*step, 3*step, ...
// A schedule of length n allows n+1 attempts.
func LinearSchedule(step time.Duration, attempts int) []time.Duration {
	if attempts <= 1 {
		return nil
	}
	schedule := make([]time.Duration, attempts-1)
	for i := range schedule {
		schedule[i] = step * time.Duration(i+1)
	}
	return schedule
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retry calls fn until it succeeds or the schedule runs out.
// onRetry, when non-nil, is told about each failure that will be retried.
// The last error is returned wrapped with the attempt count.
func Retry(ctx context.Context, schedule []time.Duration, sleep SleepFunc, onRetry func(attempt int, wait time.Duration, err error), fn func() error) error {
	if sleep == nil {
		sleep = Sleep
	}

	attempts := len(schedule) + 1
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		wait := schedule[attempt-1]
		if onRetry != nil {
			onRetry(attempt, wait, err)
		}
		if sleepErr := sleep(ctx, wait); sleepErr != nil {
			return fmt.Errorf("retry interrupted after %d attempts: %w", attempt, sleepErr)
		}
	}
	return fmt.Errorf("gave up after %d attempts: %w", attempts, err)
}
