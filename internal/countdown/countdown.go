// Package countdown tracks the time left until a market closes.
package countdown

import (
	"sync"
	"time"
)

// Countdown counts whole seconds down to a fixed close instant.
type Countdown struct {
	closesAt time.Time

	mu   sync.Mutex
	last int
	seen bool
}

// New creates a countdown to closesAt.
func New(closesAt time.Time) *Countdown {
	return &Countdown{closesAt: closesAt}
}

// SecondsLeft returns max(0, floor((closesAt-now)/1s)).
func (c *Countdown) SecondsLeft(now time.Time) int {
	d := c.closesAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(d / time.Second)
}

// Expired reports whether no whole second is left. Once a tick has seen
// zero it stays expired.
func (c *Countdown) Expired(now time.Time) bool {
	return c.Current(now) == 0
}

// Tick returns the seconds left at now and whether the value changed since
// the previous tick. The value never increases, even if the wall clock is
// stepped backwards between ticks.
func (c *Countdown) Tick(now time.Time) (int, bool) {
	left := c.SecondsLeft(now)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seen && left >= c.last {
		return c.last, false
	}
	c.last = left
	c.seen = true
	return left, true
}

// Current returns the last ticked value, or the value at now if Tick was never called.
func (c *Countdown) Current(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seen {
		return c.last
	}
	return c.SecondsLeft(now)
}
