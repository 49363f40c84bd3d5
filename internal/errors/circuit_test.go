package errors

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// attempt runs fn through the breaker's Allow/Record protocol, the
// pattern internal/embed/remote.go actually uses around each batch.
func attempt(cb *CircuitBreaker, fn func() error) error {
	if !cb.Allow() {
		return ErrCircuitOpen
	}
	if err := fn(); err != nil {
		cb.RecordFailure()
		return err
	}
	cb.RecordSuccess()
	return nil
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker("embed-remote", WithMaxFailures(3), WithResetTimeout(1*time.Second))

	for i := 0; i < 3; i++ {
		_ = attempt(cb, func() error { return assert.AnError })
	}
	require.Equal(t, StateOpen, cb.State())

	err := attempt(cb, func() error { return nil })
	require.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreaker_RecoversAfterTimeout(t *testing.T) {
	cb := NewCircuitBreaker("embed-remote", WithMaxFailures(2), WithResetTimeout(50*time.Millisecond))

	for i := 0; i < 2; i++ {
		_ = attempt(cb, func() error { return assert.AnError })
	}
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(60 * time.Millisecond)

	probed := false
	err := attempt(cb, func() error {
		probed = true
		return nil
	})

	assert.NoError(t, err)
	assert.True(t, probed, "half-open state should let exactly one probe through")
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker("embed-remote", WithMaxFailures(2), WithResetTimeout(50*time.Millisecond))

	for i := 0; i < 2; i++ {
		_ = attempt(cb, func() error { return assert.AnError })
	}
	time.Sleep(60 * time.Millisecond)

	err := attempt(cb, func() error { return assert.AnError })

	assert.Error(t, err)
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker("embed-remote", WithMaxFailures(5))

	for i := 0; i < 3; i++ {
		_ = attempt(cb, func() error { return assert.AnError })
	}

	err := attempt(cb, func() error { return nil })

	assert.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 0, cb.Failures())
}

func TestCircuitBreaker_Allow_WhenClosed(t *testing.T) {
	cb := NewCircuitBreaker("embed-remote")
	assert.True(t, cb.Allow())
}

func TestCircuitBreaker_Allow_WhenOpen(t *testing.T) {
	cb := NewCircuitBreaker("embed-remote", WithMaxFailures(1), WithResetTimeout(1*time.Second))
	_ = attempt(cb, func() error { return assert.AnError })

	assert.False(t, cb.Allow())
}

func TestCircuitBreaker_RecordSuccess(t *testing.T) {
	cb := NewCircuitBreaker("embed-remote", WithMaxFailures(5))

	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, 2, cb.Failures())

	cb.RecordSuccess()

	assert.Equal(t, 0, cb.Failures())
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_RecordFailure(t *testing.T) {
	cb := NewCircuitBreaker("embed-remote", WithMaxFailures(3))

	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, 2, cb.Failures())
	assert.Equal(t, StateClosed, cb.State())

	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_Concurrent(t *testing.T) {
	cb := NewCircuitBreaker("embed-remote", WithMaxFailures(10), WithResetTimeout(1*time.Second))

	var wg sync.WaitGroup
	var successCount, failCount atomic.Int32

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := attempt(cb, func() error {
				if i%2 == 0 {
					return nil
				}
				return assert.AnError
			})
			if err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(20), successCount.Load()+failCount.Load())
}

func TestNewCircuitBreaker_DefaultValues(t *testing.T) {
	cb := NewCircuitBreaker("embed-remote")

	assert.Equal(t, "embed-remote", cb.Name())
	assert.Equal(t, 5, cb.maxFailures)
	assert.Equal(t, 30*time.Second, cb.resetTimeout)
	assert.Equal(t, StateClosed, cb.State())
}

func TestErrCircuitOpen_Error(t *testing.T) {
	assert.Equal(t, "circuit breaker is open", ErrCircuitOpen.Error())
}

func TestCircuitBreaker_Allow_AdmitsOnlyOneProbeWhenHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker("embed-remote", WithMaxFailures(1), WithResetTimeout(30*time.Millisecond))
	_ = attempt(cb, func() error { return assert.AnError })
	time.Sleep(40 * time.Millisecond)

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if cb.Allow() {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), admitted.Load(), "exactly one concurrent caller should be admitted as the half-open probe")
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(99).String())
}
