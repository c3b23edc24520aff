package machine

import (
	"math"
	"sync"
	"time"
)

// Clock supplies the time used for delays and the time-slice guard.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock is a deterministic clock for tests and simulation. Time only
// moves through Advance, or by a fixed step on every Now call.
type ManualClock struct {
	now  time.Time
	step time.Duration
	mu   sync.Mutex
}

// NewManualClock returns a clock starting at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current reading, then advances by the step.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// SetStep sets the amount added after every Now call.
func (c *ManualClock) SetStep(d time.Duration) {
	c.mu.Lock()
	c.step = d
	c.mu.Unlock()
}

// Millis converts a millisecond count to a Duration. NaN and negative
// values give 0; values beyond the Duration range saturate.
func Millis(ms float32) time.Duration {
	if ms != ms || ms <= 0 {
		return 0
	}
	ns := float64(ms) * float64(time.Millisecond)
	if ns >= math.MaxInt64 {
		return math.MaxInt64
	}
	return time.Duration(ns)
}
