package ymodem

import "time"

// Clock abstracts time so transfers can be tested deterministically.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// SystemClock uses the standard library time functions.
// Durations are measured on the monotonic clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }

// After waits for d to elapse.
func (SystemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// DeadlineTimer tracks a single waiting phase.
// A timer is armed with Start and is re-armed by calling Start again.
type DeadlineTimer struct {
	clock   Clock
	timeout time.Duration
	start   time.Time
	stop    time.Time
}

// NewDeadlineTimer creates an unarmed timer. A nil clock means SystemClock.
func NewDeadlineTimer(timeout time.Duration, clock Clock) *DeadlineTimer {
	if clock == nil {
		clock = SystemClock{}
	}
	return &DeadlineTimer{clock: clock, timeout: timeout}
}

// Start records the current time and clears any stop marker.
func (t *DeadlineTimer) Start() *DeadlineTimer {
	t.start = t.clock.Now()
	t.stop = time.Time{}
	return t
}

// Stop records the time the phase finished.
func (t *DeadlineTimer) Stop() {
	t.stop = t.clock.Now()
}

// Expired reports whether more than the timeout has passed since Start.
func (t *DeadlineTimer) Expired() bool {
	return t.clock.Now().Sub(t.start) > t.timeout
}

// Remaining returns the budget left, never negative.
func (t *DeadlineTimer) Remaining() time.Duration {
	left := t.timeout - t.clock.Now().Sub(t.start)
	if left < 0 {
		return 0
	}
	return left
}

// Elapsed returns the time between Start and Stop, or until now while running.
func (t *DeadlineTimer) Elapsed() time.Duration {
	if t.stop.IsZero() {
		return t.clock.Now().Sub(t.start)
	}
	return t.stop.Sub(t.start)
}

// Running reports whether the timer was started and not stopped.
func (t *DeadlineTimer) Running() bool {
	return !t.start.IsZero() && t.stop.IsZero()
}

// Timeout returns the configured duration.
func (t *DeadlineTimer) Timeout() time.Duration {
	return t.timeout
}
