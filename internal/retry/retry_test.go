package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return nil
	}, WithInitialDelay(time.Millisecond))
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestDo_ExactAttemptBound(t *testing.T) {
	calls := 0
	failing := errors.New("connection reset")

	err := Do(context.Background(), func() error {
		calls++
		return failing
	}, WithAttempts(3), WithInitialDelay(time.Millisecond))

	require.Error(t, err)
	require.ErrorIs(t, err, failing)
	require.Equal(t, 3, calls)
}

func TestDo_RecoversAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("timeout")
		}
		return nil
	}, WithAttempts(3), WithInitialDelay(time.Millisecond))

	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestDo_PermanentErrorStopsImmediately(t *testing.T) {
	calls := 0
	fatal := errors.New("404 not found")

	err := Do(context.Background(), func() error {
		calls++
		return Permanent(fatal)
	}, WithAttempts(5), WithInitialDelay(time.Millisecond))

	require.Error(t, err)
	require.ErrorIs(t, err, fatal)
	require.Equal(t, 1, calls)
}

func TestDo_ContextCancelledBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := Do(ctx, func() error {
		calls++
		cancel()
		return errors.New("timeout")
	}, WithAttempts(5), WithInitialDelay(50*time.Millisecond))

	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}

func TestIsPermanent(t *testing.T) {
	require.True(t, IsPermanent(Permanent(errors.New("x"))))
	require.False(t, IsPermanent(errors.New("x")))
	require.NoError(t, Permanent(nil))
}
