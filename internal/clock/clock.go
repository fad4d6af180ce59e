package clock

import "time"

// Clock is a testable time source. Components that stamp events or expire
// deadlines take a Clock so tests can control time deterministically.
type Clock interface {
	Now() time.Time
}

// System is the production Clock backed by time.Now.
type System struct{}

// Now implements Clock.
func (System) Now() time.Time { return time.Now() }
