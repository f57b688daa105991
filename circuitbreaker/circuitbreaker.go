// Package circuitbreaker stops calling an upstream lyrics API after a run of
// consecutive failures and lets a single probe through once a cooldown ends.
package circuitbreaker

import (
	"context"
	"errors"
	"lyrics-sync-go/logcolors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// State represents the circuit breaker state
type State int

const (
	StateClosed   State = iota // Calls go through
	StateOpen                  // Calls are rejected until the cooldown ends
	StateHalfOpen              // One probe call decides what happens next
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config holds circuit breaker configuration
type Config struct {
	Name            string
	Threshold       int           // consecutive failures before opening
	Cooldown        time.Duration // time spent OPEN before a probe is allowed
	HalfOpenTimeout time.Duration // a probe that never reports back reopens the circuit after this

	// OnStateChange is called, with the breaker lock held, on every transition.
	// It must not call back into the breaker.
	OnStateChange func(name string, from, to State)
}

// CircuitBreaker guards one upstream lyrics API
type CircuitBreaker struct {
	cfg Config

	mu       sync.RWMutex
	state    State
	failures int
	openedAt time.Time // when the circuit last opened
	probeAt  time.Time // when the current probe was let through
	probing  bool
}

// New creates a breaker, filling zero config values with defaults
func New(cfg Config) *CircuitBreaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	if cfg.HalfOpenTimeout <= 0 {
		cfg.HalfOpenTimeout = 30 * time.Second
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}
	return &CircuitBreaker{cfg: cfg}
}

// Name returns the breaker's name
func (cb *CircuitBreaker) Name() string {
	return cb.cfg.Name
}

// transition must be called with cb.mu held
func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	cb.state = to
	if from != to && cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.cfg.Name, from, to)
	}
}

// Allow reports whether a call may go upstream. While HALF-OPEN only the
// first caller gets true; it must report back through RecordSuccess,
// RecordFailure or Abandon.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := time.Now()
	prefix := logcolors.CircuitBreakerPrefix(cb.cfg.Name)

	switch cb.state {
	case StateOpen:
		if now.Sub(cb.openedAt) < cb.cfg.Cooldown {
			return false
		}
		cb.transition(StateHalfOpen)
		cb.probing, cb.probeAt = true, now
		log.Infof("%s Cooldown passed, letting one probe through", prefix)
		return true

	case StateHalfOpen:
		if !cb.probing {
			cb.probing, cb.probeAt = true, now
			return true
		}
		if now.Sub(cb.probeAt) >= cb.cfg.HalfOpenTimeout {
			cb.reopen(now)
			log.Warnf("%s Probe never reported back, transitioning to OPEN", prefix)
		}
		return false

	default:
		return true
	}
}

// reopen must be called with cb.mu held
func (cb *CircuitBreaker) reopen(now time.Time) {
	cb.transition(StateOpen)
	cb.openedAt = now
	cb.probing = false
}

// RecordSuccess clears the failure run and closes a half-open circuit
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	if cb.state == StateHalfOpen {
		cb.transition(StateClosed)
		cb.probing = false
		log.Infof("%s Probe succeeded, transitioning to CLOSED", logcolors.CircuitBreakerPrefix(cb.cfg.Name))
	}
}

// RecordFailure extends the failure run, opening the circuit at the
// threshold or immediately when the probe failed.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := time.Now()
	cb.failures++
	prefix := logcolors.CircuitBreakerPrefix(cb.cfg.Name)

	switch cb.state {
	case StateHalfOpen:
		cb.reopen(now)
		log.Warnf("%s Probe failed, transitioning back to OPEN", prefix)
	case StateClosed:
		if cb.failures >= cb.cfg.Threshold {
			cb.reopen(now)
			log.Warnf("%s %d consecutive failures, transitioning to OPEN for %v", prefix, cb.failures, cb.cfg.Cooldown)
		}
	}
}

// Abandon reports a call that ended without saying anything about upstream
// health, such as one cancelled because the track changed. A half-open
// circuit lets the next caller probe instead.
func (cb *CircuitBreaker) Abandon() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateHalfOpen {
		cb.probing = false
	}
}

// Execute runs fn if the breaker allows it and records the outcome.
// Cancelled calls are abandoned. Other errors for which isFailure returns
// false (a clean 404, say) count as successes; a nil isFailure treats every
// error as a failure.
func (cb *CircuitBreaker) Execute(fn func() error, isFailure func(error) bool) error {
	if !cb.Allow() {
		return ErrCircuitOpen
	}

	err := fn()
	switch {
	case errors.Is(err, context.Canceled):
		cb.Abandon()
	case err != nil && (isFailure == nil || isFailure(err)):
		cb.RecordFailure()
	default:
		cb.RecordSuccess()
	}
	return err
}

// State returns the current state
func (cb *CircuitBreaker) State() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// IsOpen reports whether calls are currently being rejected outright
func (cb *CircuitBreaker) IsOpen() bool {
	return cb.State() == StateOpen
}

// Reset closes the circuit and forgets the failure run
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transition(StateClosed)
	cb.failures = 0
	cb.probing = false
	cb.openedAt, cb.probeAt = time.Time{}, time.Time{}
	log.Infof("%s Manually reset to CLOSED", logcolors.CircuitBreakerPrefix(cb.cfg.Name))
}

// retryIn must be called with cb.mu held
func (cb *CircuitBreaker) retryIn(now time.Time) time.Duration {
	var left time.Duration
	switch cb.state {
	case StateOpen:
		left = cb.cfg.Cooldown - now.Sub(cb.openedAt)
	case StateHalfOpen:
		if cb.probing {
			left = cb.cfg.HalfOpenTimeout - now.Sub(cb.probeAt)
		}
	}
	if left < 0 {
		return 0
	}
	return left
}

// TimeUntilRetry returns how long until the next probe may go through, or
// 0 when calls are allowed now.
func (cb *CircuitBreaker) TimeUntilRetry() time.Duration {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.retryIn(time.Now())
}

// Status is a JSON-friendly view of a breaker
type Status struct {
	Name           string `json:"name"`
	State          string `json:"state"`
	Failures       int    `json:"failures"`
	Threshold      int    `json:"threshold"`
	TimeUntilRetry string `json:"time_until_retry,omitempty"`
}

// Status returns a consistent snapshot for the monitoring endpoints
func (cb *CircuitBreaker) Status() Status {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	s := Status{
		Name:      cb.cfg.Name,
		State:     cb.state.String(),
		Failures:  cb.failures,
		Threshold: cb.cfg.Threshold,
	}
	if retry := cb.retryIn(time.Now()); retry > 0 {
		s.TimeUntilRetry = retry.Round(time.Second).String()
	}
	return s
}
