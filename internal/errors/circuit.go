package errors

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Allow's callers when the breaker has
// tripped and is refusing new work.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is a circuit breaker's current disposition.
type State int

const (
	// StateClosed lets requests through normally.
	StateClosed State = iota
	// StateOpen rejects requests until resetTimeout elapses.
	StateOpen
	// StateHalfOpen lets exactly one probe request through to test recovery.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker guards the remote embedding endpoint: once it has
// failed maxFailures times in a row, further batches are rejected
// immediately instead of each paying the full retry timeout against a
// backend that's down. Only the Allow/RecordSuccess/RecordFailure trio
// is exercised by a caller (internal/embed/remote.go); there is no
// Execute-style wrapper here because docsearch only ever needs the
// breaker consulted around its own retry loop, not wrapping a bare
// function call.
type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration

	mu          sync.RWMutex
	state       State
	failures    int
	lastFailure time.Time
}

// CircuitBreakerOption configures a CircuitBreaker.
type CircuitBreakerOption func(*CircuitBreaker)

// WithMaxFailures sets the number of consecutive failures before opening.
func WithMaxFailures(n int) CircuitBreakerOption {
	return func(cb *CircuitBreaker) {
		cb.maxFailures = n
	}
}

// WithResetTimeout sets how long the breaker stays open before probing again.
func WithResetTimeout(d time.Duration) CircuitBreakerOption {
	return func(cb *CircuitBreaker) {
		cb.resetTimeout = d
	}
}

// NewCircuitBreaker creates a breaker identified by name. Defaults: 5
// consecutive failures, 30 second reset timeout.
func NewCircuitBreaker(name string, opts ...CircuitBreakerOption) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:         name,
		maxFailures:  5,
		resetTimeout: 30 * time.Second,
		state:        StateClosed,
	}
	for _, opt := range opts {
		opt(cb)
	}
	return cb
}

// Name identifies the breaker in log lines (e.g. "embed-remote").
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// State reports the breaker's disposition, resolving an open breaker
// past its reset timeout to half-open.
func (cb *CircuitBreaker) State() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.currentState()
}

// currentState must be called with at least a read lock held.
func (cb *CircuitBreaker) currentState() State {
	if cb.state == StateOpen && time.Since(cb.lastFailure) > cb.resetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Failures returns the current consecutive-failure count, for
// diagnostics logging when a batch trips the breaker.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.failures
}

// Allow reports whether the caller should attempt the next batch, and
// admits exactly one probe once an open breaker's resetTimeout has
// elapsed: the first caller to observe the elapsed timeout flips the
// stored state to half-open itself, so concurrent callers racing in
// behind it see half-open (not open) and are turned away until the
// probe resolves via RecordSuccess/RecordFailure.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if time.Since(cb.lastFailure) <= cb.resetTimeout {
			return false
		}
		cb.state = StateHalfOpen
		return true
	case StateHalfOpen:
		return false
	default:
		return true
	}
}

// RecordSuccess closes the breaker and zeros the failure count.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.state = StateClosed
}

// RecordFailure counts a failure and (re)trips the breaker open once
// maxFailures is reached. A failed half-open probe counts against the
// same running total, so it reopens the breaker immediately: the
// probe only runs once the total was already at maxFailures.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = time.Now()

	if cb.failures >= cb.maxFailures {
		cb.state = StateOpen
	}
}
