// Package timing provides the blocking delays used to shape trigger pulses
// and to space measurements.
package timing

import "time"

// Delayer blocks the caller for the given duration.
type Delayer interface {
	Delay(d time.Duration)
}

// BusyWait spins on the monotonic clock. It is used for pulses in the
// microsecond range where time.Sleep overshoots by far.
type BusyWait struct{}

// Delay spins until d has elapsed.
func (BusyWait) Delay(d time.Duration) {
	start := time.Now()
	for time.Since(start) < d {
	}
}

// Sleep yields to the scheduler for the given duration.
type Sleep struct{}

// Delay sleeps for d.
func (Sleep) Delay(d time.Duration) {
	time.Sleep(d)
}

// Func adapts an ordinary function to a Delayer.
type Func func(d time.Duration)

// Delay calls f(d).
func (f Func) Delay(d time.Duration) {
	f(d)
}
