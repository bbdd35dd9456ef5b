package util

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearSchedule(t *testing.T) {
	assert.Nil(t, LinearSchedule(time.Second, 1))
	assert.Nil(t, LinearSchedule(time.Second, 0))
	assert.Equal(t,
		[]time.Duration{3 * time.Second, 6 * time.Second, 9 * time.Second, 12 * time.Second},
		LinearSchedule(3*time.Second, 5))
}

func TestLinearSchedule_StrictlyIncreasing(t *testing.T) {
	schedule := LinearSchedule(100*time.Millisecond, 8)
	for i := 1; i < len(schedule); i++ {
		assert.Greater(t, schedule[i], schedule[i-1])
	}
}

type recordingSleeper struct {
	waits []time.Duration
}

func (r *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

func TestRetry_SucceedsOnThirdAttempt(t *testing.T) {
	sleeper := &recordingSleeper{}
	calls := 0

	err := Retry(context.Background(), LinearSchedule(time.Second, 5), sleeper.sleep, nil, func() error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeper.waits)
}

func TestRetry_GivesUpAtBound(t *testing.T) {
	sleeper := &recordingSleeper{}
	cause := errors.New("connection refused")
	calls := 0
	var retried []int

	err := Retry(context.Background(), LinearSchedule(time.Second, 5), sleeper.sleep,
		func(attempt int, _ time.Duration, _ error) { retried = append(retried, attempt) },
		func() error {
			calls++
			return cause
		})

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 5, calls)
	assert.Equal(t, []int{1, 2, 3, 4}, retried)
	assert.Len(t, sleeper.waits, 4)
}

func TestRetry_SingleAttemptNeverSleeps(t *testing.T) {
	sleeper := &recordingSleeper{}

	err := Retry(context.Background(), nil, sleeper.sleep, nil, func() error {
		return errors.New("nope")
	})

	assert.Error(t, err)
	assert.Empty(t, sleeper.waits)
}

func TestRetry_ContextCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0

	err := Retry(ctx, LinearSchedule(time.Hour, 3), Sleep, nil, func() error {
		calls++
		return errors.New("down")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
