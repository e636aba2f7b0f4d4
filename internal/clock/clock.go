package clock

import "time"

// Clock abstracts wall-clock reads so month rollover and scheduler timing
// can be driven deterministically in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// Now returns the current UTC time.
func (systemClock) Now() time.Time { return time.Now().UTC() }

// System returns a Clock backed by the real wall clock.
func System() Clock { return systemClock{} }

// Fixed returns a Clock pinned to t. Intended for tests.
type Fixed struct {
	T time.Time
}

func (f *Fixed) Now() time.Time { return f.T }

// Advance moves the fixed clock forward by d.
func (f *Fixed) Advance(d time.Duration) { f.T = f.T.Add(d) }
