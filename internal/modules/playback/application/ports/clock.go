package ports

import "time"

// Clock abstracts wall-clock time so timers can be tested with a simulated
// clock.
type Clock interface {
	Now() time.Time
}

// SystemClock is the real clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now()
}
