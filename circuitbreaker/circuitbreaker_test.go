package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func tripped(t *testing.T, cooldown time.Duration) *CircuitBreaker {
	t.Helper()
	cb := New(Config{Name: "lrclib", Threshold: 2, Cooldown: cooldown})
	cb.RecordFailure()
	cb.RecordFailure()
	if cb.State() != StateOpen {
		t.Fatalf("Expected OPEN after threshold, got %s", cb.State())
	}
	return cb
}

func TestNew_Defaults(t *testing.T) {
	cb := New(Config{})

	if cb.cfg.Threshold != 5 {
		t.Errorf("Expected default threshold 5, got %d", cb.cfg.Threshold)
	}
	if cb.cfg.Cooldown != 5*time.Minute {
		t.Errorf("Expected default cooldown 5m, got %v", cb.cfg.Cooldown)
	}
	if cb.cfg.HalfOpenTimeout != 30*time.Second {
		t.Errorf("Expected default HalfOpenTimeout 30s, got %v", cb.cfg.HalfOpenTimeout)
	}
	if cb.Name() != "default" {
		t.Errorf("Expected default name 'default', got %q", cb.Name())
	}
	if cb.State() != StateClosed {
		t.Errorf("Expected initial state CLOSED, got %s", cb.State())
	}
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := New(Config{Threshold: 3, Cooldown: time.Minute})

	for i := 1; i < 3; i++ {
		cb.RecordFailure()
		if cb.State() != StateClosed {
			t.Fatalf("Expected CLOSED after %d failures, got %s", i, cb.State())
		}
	}

	cb.RecordFailure()
	if !cb.IsOpen() {
		t.Errorf("Expected OPEN after 3 failures, got %s", cb.State())
	}
	if cb.Allow() {
		t.Error("Expected Allow() to return false in OPEN state")
	}
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := New(Config{Threshold: 3, Cooldown: time.Minute})

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()

	if got := cb.Status().Failures; got != 0 {
		t.Errorf("Expected 0 failures after success, got %d", got)
	}
	cb.RecordFailure()
	if cb.State() != StateClosed {
		t.Errorf("Expected CLOSED since the streak was broken, got %s", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	tests := []struct {
		name     string
		record   func(cb *CircuitBreaker)
		expected State
	}{
		{name: "probe succeeds", record: (*CircuitBreaker).RecordSuccess, expected: StateClosed},
		{name: "probe fails", record: (*CircuitBreaker).RecordFailure, expected: StateOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := tripped(t, 50*time.Millisecond)
			time.Sleep(60 * time.Millisecond)

			if !cb.Allow() {
				t.Fatal("Expected the probe to be allowed after cooldown")
			}
			if cb.State() != StateHalfOpen {
				t.Fatalf("Expected HALF-OPEN, got %s", cb.State())
			}
			if cb.Allow() {
				t.Error("Expected only one probe in HALF-OPEN")
			}

			tt.record(cb)
			if cb.State() != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, cb.State())
			}
		})
	}
}

func TestCircuitBreaker_HalfOpenTimeout(t *testing.T) {
	cb := New(Config{Threshold: 1, Cooldown: 20 * time.Millisecond, HalfOpenTimeout: 20 * time.Millisecond})
	cb.RecordFailure()
	time.Sleep(30 * time.Millisecond)
	cb.Allow()

	time.Sleep(30 * time.Millisecond)
	if cb.Allow() {
		t.Error("Expected Allow() to return false after the probe timed out")
	}
	if cb.State() != StateOpen {
		t.Errorf("Expected OPEN after half-open timeout, got %s", cb.State())
	}
}

func TestCircuitBreaker_Execute(t *testing.T) {
	errUpstream := errors.New("upstream 500")
	errNotFound := errors.New("not found")
	onlyUpstream := func(err error) bool { return errors.Is(err, errUpstream) }

	cb := New(Config{Threshold: 2, Cooldown: time.Minute})

	if err := cb.Execute(func() error { return errNotFound }, onlyUpstream); !errors.Is(err, errNotFound) {
		t.Fatalf("Expected errNotFound, got %v", err)
	}
	if got := cb.Status().Failures; got != 0 {
		t.Errorf("Expected not-found to leave failures at 0, got %d", got)
	}

	cb.Execute(func() error { return errUpstream }, onlyUpstream)
	cb.Execute(func() error { return errUpstream }, onlyUpstream)
	if !cb.IsOpen() {
		t.Fatalf("Expected OPEN after two upstream errors, got %s", cb.State())
	}

	called := false
	err := cb.Execute(func() error { called = true; return nil }, nil)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Error("Expected fn not to run while OPEN")
	}
}

func TestCircuitBreaker_CancelledProbeIsAbandoned(t *testing.T) {
	cb := tripped(t, 20*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	err := cb.Execute(func() error { return context.Canceled }, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if cb.State() != StateHalfOpen {
		t.Fatalf("Expected HALF-OPEN after an abandoned probe, got %s", cb.State())
	}
	if got := cb.Status().Failures; got != 2 {
		t.Errorf("Expected the failure run untouched, got %d", got)
	}

	if err := cb.Execute(func() error { return nil }, nil); err != nil {
		t.Fatalf("Expected the next caller to probe, got %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("Expected CLOSED after a successful probe, got %s", cb.State())
	}
}

func TestCircuitBreaker_CancelledCallsDoNotTrip(t *testing.T) {
	cb := New(Config{Threshold: 1, Cooldown: time.Minute})
	for i := 0; i < 3; i++ {
		cb.Execute(func() error { return context.Canceled }, nil)
	}
	if cb.State() != StateClosed {
		t.Errorf("Expected CLOSED, got %s", cb.State())
	}
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	var transitions []string
	cb := New(Config{
		Name:      "musixmatch",
		Threshold: 1,
		Cooldown:  time.Minute,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, name+":"+from.String()+"->"+to.String())
		},
	})

	cb.RecordFailure()
	cb.Reset()
	cb.Reset()

	expected := []string{"musixmatch:CLOSED->OPEN", "musixmatch:OPEN->CLOSED"}
	if len(transitions) != len(expected) {
		t.Fatalf("Expected transitions %v, got %v", expected, transitions)
	}
	for i := range expected {
		if transitions[i] != expected[i] {
			t.Errorf("Transition %d = %q, expected %q", i, transitions[i], expected[i])
		}
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := tripped(t, time.Minute)
	cb.Reset()

	if cb.State() != StateClosed {
		t.Errorf("Expected CLOSED after reset, got %s", cb.State())
	}
	if s := cb.Status(); s.Failures != 0 || s.TimeUntilRetry != "" {
		t.Errorf("Expected cleared status, got %+v", s)
	}
	if !cb.Allow() {
		t.Error("Expected Allow() after reset")
	}
}

func TestCircuitBreaker_TimeUntilRetry(t *testing.T) {
	cb := New(Config{Threshold: 1, Cooldown: time.Minute})
	if cb.TimeUntilRetry() != 0 {
		t.Errorf("Expected 0 while CLOSED, got %v", cb.TimeUntilRetry())
	}

	cb.RecordFailure()
	retry := cb.TimeUntilRetry()
	if retry <= 50*time.Second || retry > time.Minute {
		t.Errorf("Expected retry close to 1m, got %v", retry)
	}
}

func TestCircuitBreaker_Status(t *testing.T) {
	cb := tripped(t, time.Minute)

	s := cb.Status()
	if s.Name != "lrclib" || s.State != "OPEN" || s.Failures != 2 || s.Threshold != 2 {
		t.Errorf("Unexpected status %+v", s)
	}
	if s.TimeUntilRetry == "" {
		t.Error("Expected TimeUntilRetry while OPEN")
	}

	cb.Reset()
	if s := cb.Status(); s.TimeUntilRetry != "" {
		t.Errorf("Expected no TimeUntilRetry while CLOSED, got %q", s.TimeUntilRetry)
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateClosed:   "CLOSED",
		StateOpen:     "OPEN",
		StateHalfOpen: "HALF-OPEN",
		State(42):     "UNKNOWN",
	}
	for state, expected := range tests {
		if state.String() != expected {
			t.Errorf("State(%d).String() = %q, expected %q", int(state), state.String(), expected)
		}
	}
}

func TestCircuitBreaker_ConcurrentAccess(t *testing.T) {
	cb := New(Config{Threshold: 100, Cooldown: time.Minute})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cb.Allow()
			if i%2 == 0 {
				cb.RecordFailure()
			} else {
				cb.RecordSuccess()
			}
			cb.Status()
		}(i)
	}
	wg.Wait()

	if cb.State() != StateClosed {
		t.Errorf("Expected CLOSED with a high threshold, got %s", cb.State())
	}
}
