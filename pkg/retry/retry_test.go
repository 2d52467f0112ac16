package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errBusy = errors.New("busy")

func TestRetrier_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := New(WithMaxAttempts(3), WithInitialDelay(time.Millisecond)).Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errBusy
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetrier_RetryIfRejects(t *testing.T) {
	calls := 0
	err := New(
		WithMaxAttempts(5),
		WithInitialDelay(time.Millisecond),
		WithRetryIf(func(err error) bool { return false }),
	).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errBusy
	})

	assert.ErrorIs(t, err, errBusy)
	assert.Equal(t, 1, calls)
}

func TestRetrier_PermanentIsUnwrapped(t *testing.T) {
	calls := 0
	wrapped := fmt.Errorf("open store: %w", errBusy)
	err := New(WithMaxAttempts(5)).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Permanent(wrapped)
	})

	assert.Equal(t, wrapped, err)
	assert.Equal(t, 1, calls)
	assert.True(t, IsPermanent(Permanent(errBusy)))
	assert.False(t, IsPermanent(errBusy))
	assert.Nil(t, Permanent(nil))
}

func TestRetrier_ExhaustedReturnsLastError(t *testing.T) {
	calls := 0
	var retried []int
	err := New(
		WithMaxAttempts(3),
		WithInitialDelay(time.Millisecond),
		WithOnRetry(func(attempt int, err error, delay time.Duration) { retried = append(retried, attempt) }),
	).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errBusy
	})

	assert.ErrorIs(t, err, errBusy)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestRetrier_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := New().Do(ctx, func(ctx context.Context) error {
		calls++
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestConflictRetrier(t *testing.T) {
	calls := 0
	err := ConflictRetrier(4, func(err error) bool { return errors.Is(err, errBusy) }).
		Do(context.Background(), func(ctx context.Context) error {
			calls++
			return errBusy
		})

	assert.ErrorIs(t, err, errBusy)
	assert.Equal(t, 4, calls)
}

func TestDelay_Capped(t *testing.T) {
	r := New(WithInitialDelay(10*time.Millisecond), WithMaxDelay(20*time.Millisecond), WithJitter(0))
	assert.Equal(t, 10*time.Millisecond, r.delay(1))
	assert.Equal(t, 20*time.Millisecond, r.delay(2))
	assert.Equal(t, 20*time.Millisecond, r.delay(5))
}
