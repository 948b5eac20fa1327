package clock

import "time"

// Clock allows injecting time in domain/services.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystem returns a clock backed by time.Now.
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

type fixedClock struct {
	now time.Time
}

// NewFixed returns a clock that always returns the same instant (useful for tests).
func NewFixed(t time.Time) Clock {
	return fixedClock{now: t.UTC()}
}

func (f fixedClock) Now() time.Time {
	return f.now
}

// Stepping is a mutable clock for tests that need time to move.
type Stepping struct {
	now time.Time
}

// NewStepping returns a clock starting at t that advances only when told to.
func NewStepping(t time.Time) *Stepping {
	return &Stepping{now: t.UTC()}
}

func (s *Stepping) Now() time.Time {
	return s.now
}

// Advance moves the clock forward by d.
func (s *Stepping) Advance(d time.Duration) {
	s.now = s.now.Add(d)
}
