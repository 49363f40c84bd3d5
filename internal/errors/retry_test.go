package errors

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   2,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastRetryConfig(), func() error {
		attempts++
		if attempts < 3 {
			return assert.AnError
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetry_FailsAfterMaxRetries(t *testing.T) {
	attempts := 0
	cfg := fastRetryConfig()

	err := Retry(context.Background(), cfg, func() error {
		attempts++
		return assert.AnError
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 retries")
	assert.Equal(t, cfg.MaxRetries+1, attempts)
}

func TestRetry_PermanentErrorAbortsImmediately(t *testing.T) {
	attempts := 0
	cfg := DefaultRetryConfig() // generous retry budget; should never be used

	err := Retry(context.Background(), cfg, func() error {
		attempts++
		return Permanent(assert.AnError)
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts, "a permanent error must not consume retry attempts")
	assert.ErrorIs(t, err, assert.AnError, "Retry must surface the unwrapped cause")
	assert.False(t, IsPermanent(err), "the error returned from Retry is unwrapped, not the permanentError wrapper")
}

func TestRetry_PermanentErrorAfterTransientFailures(t *testing.T) {
	attempts := 0
	cfg := fastRetryConfig()

	err := Retry(context.Background(), cfg, func() error {
		attempts++
		if attempts < 2 {
			return assert.AnError
		}
		return Permanent(errors.New("dimension mismatch: got 384, want 768"))
	})

	require.Error(t, err)
	assert.Equal(t, 2, attempts)
	assert.Contains(t, err.Error(), "dimension mismatch")
}

func TestPermanent_NilPassesThrough(t *testing.T) {
	assert.NoError(t, Permanent(nil))
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, IsPermanent(Permanent(assert.AnError)))
	assert.False(t, IsPermanent(assert.AnError))
	assert.False(t, IsPermanent(nil))
}

func TestRetry_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	cfg := DefaultRetryConfig()
	cfg.InitialDelay = 200 * time.Millisecond

	start := time.Now()
	err := Retry(ctx, cfg, func() error {
		time.Sleep(100 * time.Millisecond)
		return assert.AnError
	})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestRetry_RespectsContextDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	cfg := RetryConfig{
		MaxRetries:   10,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
	}

	err := Retry(ctx, cfg, func() error { return assert.AnError })

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRetry_ExponentialBackoff(t *testing.T) {
	var timestamps []time.Time
	attempts := 0
	cfg := RetryConfig{
		MaxRetries:   5,
		InitialDelay: 20 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
	}

	_ = Retry(context.Background(), cfg, func() error {
		timestamps = append(timestamps, time.Now())
		attempts++
		if attempts < 4 {
			return assert.AnError
		}
		return nil
	})

	require.Len(t, timestamps, 4)

	delay1 := timestamps[1].Sub(timestamps[0])
	delay2 := timestamps[2].Sub(timestamps[1])
	delay3 := timestamps[3].Sub(timestamps[2])

	assert.InDelta(t, 20, delay1.Milliseconds(), 15)
	assert.InDelta(t, 40, delay2.Milliseconds(), 20)
	assert.InDelta(t, 80, delay3.Milliseconds(), 40)
}

func TestRetry_CapsAtMaxDelay(t *testing.T) {
	var timestamps []time.Time
	attempts := 0
	cfg := RetryConfig{
		MaxRetries:   10,
		InitialDelay: 20 * time.Millisecond,
		MaxDelay:     30 * time.Millisecond,
		Multiplier:   2.0,
	}

	_ = Retry(context.Background(), cfg, func() error {
		timestamps = append(timestamps, time.Now())
		attempts++
		if attempts < 5 {
			return assert.AnError
		}
		return nil
	})

	for i := 2; i < len(timestamps); i++ {
		delay := timestamps[i].Sub(timestamps[i-1])
		assert.LessOrEqual(t, delay.Milliseconds(), int64(50))
	}
}

func TestRetry_WithJitter(t *testing.T) {
	cfg := RetryConfig{
		MaxRetries:   5,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}

	var delays []time.Duration
	for i := 0; i < 3; i++ {
		var timestamps []time.Time
		attempts := 0
		_ = Retry(context.Background(), cfg, func() error {
			timestamps = append(timestamps, time.Now())
			attempts++
			if attempts < 3 {
				return assert.AnError
			}
			return nil
		})
		if len(timestamps) >= 2 {
			delays = append(delays, timestamps[1].Sub(timestamps[0]))
		}
	}

	require.GreaterOrEqual(t, len(delays), 2)
	for _, d := range delays {
		assert.GreaterOrEqual(t, d.Milliseconds(), int64(25))
		assert.LessOrEqual(t, d.Milliseconds(), int64(100))
	}
}

func TestRetry_ImmediateSuccessNoDelay(t *testing.T) {
	cfg := RetryConfig{
		MaxRetries:   5,
		InitialDelay: 1 * time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}

	start := time.Now()
	err := Retry(context.Background(), cfg, func() error { return nil })
	elapsed := time.Since(start)

	assert.NoError(t, err)
	assert.Less(t, elapsed, 100*time.Millisecond)
}

func TestRetry_Concurrent(t *testing.T) {
	var successCount atomic.Int32

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			attempts := 0
			cfg := fastRetryConfig()
			err := Retry(context.Background(), cfg, func() error {
				attempts++
				if attempts < 2 {
					return assert.AnError
				}
				return nil
			})
			if err == nil {
				successCount.Add(1)
			}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	assert.Equal(t, int32(10), successCount.Load())
}

func TestDefaultRetryConfig_MatchesEmbeddingBatchPolicy(t *testing.T) {
	cfg := DefaultRetryConfig()

	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 1*time.Second, cfg.InitialDelay)
	assert.Equal(t, 16*time.Second, cfg.MaxDelay)
	assert.Equal(t, 2.0, cfg.Multiplier)
}
