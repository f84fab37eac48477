// ABOUTME: This file implements circuit breaker pattern for external API protection
// ABOUTME: Prevents cascade failures by temporarily blocking calls to failing vendors
package utils

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while the breaker is rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker open")

// BreakerState represents the current state of the circuit breaker.
type BreakerState int

const (
	// BreakerClosed allows requests through.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects requests.
	BreakerOpen
	// BreakerHalfOpen lets a probe request test recovery.
	BreakerHalfOpen
)

// CircuitBreaker trips open after threshold consecutive failures and probes
// again once timeout has elapsed since the last failure.
type CircuitBreaker struct {
	threshold   int
	timeout     time.Duration
	failures    int
	lastFailure time.Time
	state       BreakerState
	mu          sync.Mutex
}

// NewCircuitBreaker creates a circuit breaker with the given threshold and cool-off.
func NewCircuitBreaker(threshold int, timeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		threshold: threshold,
		timeout:   timeout,
		state:     BreakerClosed,
	}
}

// Call executes fn under breaker protection.
func (cb *CircuitBreaker) Call(fn func() error) error {
	cb.mu.Lock()
	if cb.state == BreakerOpen {
		if time.Since(cb.lastFailure) < cb.timeout {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.state = BreakerHalfOpen
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		cb.lastFailure = time.Now()
		if cb.state == BreakerHalfOpen || cb.failures >= cb.threshold {
			cb.state = BreakerOpen
		}
		return err
	}

	cb.failures = 0
	cb.state = BreakerClosed
	return nil
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
