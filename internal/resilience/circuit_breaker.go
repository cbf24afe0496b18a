// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/ManuGH/radiocore/internal/metrics"
)

// State represents the circuit breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

var (
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

const (
	DefaultThreshold     = 3
	DefaultResetDelay    = 60 * time.Second
	DefaultMaxResetDelay = 10 * time.Minute
)

// clock abstracts time operations for testability.
type clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Snapshot is a point-in-time copy of the breaker bookkeeping.
type Snapshot struct {
	State               State         `json:"state"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	IsOpen              bool          `json:"is_open"`
	CurrentResetDelay   time.Duration `json:"current_reset_delay"`
	OpenedAt            time.Time     `json:"opened_at,omitempty"`
}

// CircuitBreaker stops calling a failing dependency for a cool-down period.
// Every trip while a probe is failing doubles the cool-down up to maxDelay;
// the first success after a trip closes the breaker and restores baseDelay.
type CircuitBreaker struct {
	mu        sync.Mutex
	name      string // Component name for metrics
	state     State
	failures  int
	threshold int
	baseDelay time.Duration
	maxDelay  time.Duration
	delay     time.Duration
	openedAt  time.Time
	clock     clock

	// If set, panics in the executed function are recorded as failures and re-panicked.
	recoverPanic bool
}

// Option configuration pattern
type Option func(*CircuitBreaker)

func WithClock(c clock) Option {
	return func(cb *CircuitBreaker) { cb.clock = c }
}

func WithPanicRecovery(enabled bool) Option {
	return func(cb *CircuitBreaker) { cb.recoverPanic = enabled }
}

// WithMaxResetDelay caps the doubling reset delay.
func WithMaxResetDelay(d time.Duration) Option {
	return func(cb *CircuitBreaker) {
		if d > 0 {
			cb.maxDelay = d
		}
	}
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(name string, threshold int, resetDelay time.Duration, opts ...Option) *CircuitBreaker {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if resetDelay <= 0 {
		resetDelay = DefaultResetDelay
	}

	cb := &CircuitBreaker{
		name:      name,
		state:     StateClosed,
		threshold: threshold,
		baseDelay: resetDelay,
		maxDelay:  DefaultMaxResetDelay,
		delay:     resetDelay,
		clock:     realClock{},
	}

	for _, opt := range opts {
		opt(cb)
	}
	if cb.maxDelay < cb.baseDelay {
		cb.maxDelay = cb.baseDelay
	}

	metrics.SetCircuitBreakerState(cb.name, string(cb.state))
	metrics.SetCircuitBreakerResetDelay(cb.name, cb.delay.Seconds())
	return cb
}

// Execute runs the given function respecting the breaker state.
func (cb *CircuitBreaker) Execute(fn func() error) (err error) {
	if !cb.Allow() {
		return ErrCircuitOpen
	}

	if cb.recoverPanic {
		defer func() {
			if r := recover(); r != nil {
				cb.RecordFailure()
				panic(r)
			}
		}()
	}

	err = fn()

	if err != nil {
		cb.RecordFailure()
		return err
	}

	cb.RecordSuccess()
	return nil
}

// Allow reports whether a call may proceed. An open breaker whose reset
// delay has elapsed moves to half-open and admits the call as a probe.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed, StateHalfOpen:
		return true
	default:
		if cb.clock.Now().Sub(cb.openedAt) >= cb.delay {
			cb.transitionTo(StateHalfOpen)
			return true
		}
		return false
	}
}

// RecordFailure counts a failed call. A failed half-open probe reopens the
// breaker with a doubled delay.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++

	switch cb.state {
	case StateHalfOpen:
		cb.delay *= 2
		if cb.delay > cb.maxDelay {
			cb.delay = cb.maxDelay
		}
		metrics.SetCircuitBreakerResetDelay(cb.name, cb.delay.Seconds())
		metrics.RecordCircuitBreakerTrip(cb.name, "half_open_failure")
		cb.transitionTo(StateOpen)
	case StateClosed:
		if cb.failures >= cb.threshold {
			metrics.RecordCircuitBreakerTrip(cb.name, "threshold_exceeded")
			cb.transitionTo(StateOpen)
		}
	}
}

// RecordSuccess closes the breaker and restores the base reset delay.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	if cb.delay != cb.baseDelay {
		cb.delay = cb.baseDelay
		metrics.SetCircuitBreakerResetDelay(cb.name, cb.delay.Seconds())
	}
	cb.transitionTo(StateClosed)
}

// transitionTo handles state transitions and updates metrics.
// Caller must hold lock.
func (cb *CircuitBreaker) transitionTo(newState State) {
	if cb.state == newState {
		return
	}
	cb.state = newState
	if newState == StateOpen {
		cb.openedAt = cb.clock.Now()
	}
	metrics.SetCircuitBreakerState(cb.name, string(newState))
}

// State returns the current state. An expired open state is reported as
// half-open without consuming the probe.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateOpen && cb.clock.Now().Sub(cb.openedAt) >= cb.delay {
		return StateHalfOpen
	}
	return cb.state
}

// Snapshot returns the breaker bookkeeping.
func (cb *CircuitBreaker) Snapshot() Snapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	s := Snapshot{
		State:               cb.state,
		ConsecutiveFailures: cb.failures,
		IsOpen:              cb.state == StateOpen,
		CurrentResetDelay:   cb.delay,
	}
	if cb.state == StateOpen {
		s.OpenedAt = cb.openedAt
		if cb.clock.Now().Sub(cb.openedAt) >= cb.delay {
			s.State = StateHalfOpen
			s.IsOpen = false
		}
	}
	return s
}
