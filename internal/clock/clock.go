// Package clock provides the current time to components that stamp data
// with it, so tests can substitute deterministic instants.
package clock

import (
	"sync"
	"time"
)

// Clock reports the current instant.
type Clock interface {
	Now() time.Time
}

// Real reads the wall clock in UTC.
type Real struct{}

// Now returns time.Now in UTC.
func (Real) Now() time.Time {
	return time.Now().UTC()
}

// Fixed always returns the same instant.
type Fixed time.Time

// Now returns the fixed instant.
func (f Fixed) Now() time.Time {
	return time.Time(f)
}

// Stepper returns Start on the first call and advances by Step on every
// following call.
type Stepper struct {
	mu    sync.Mutex
	next  time.Time
	step  time.Duration
	calls int
}

// NewStepper creates a Stepper starting at start.
func NewStepper(start time.Time, step time.Duration) *Stepper {
	return &Stepper{next: start, step: step}
}

// Now returns the current step and advances the clock.
func (s *Stepper) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.next
	s.next = s.next.Add(s.step)
	s.calls++
	return now
}

// Calls reports how many times Now has been called.
func (s *Stepper) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
