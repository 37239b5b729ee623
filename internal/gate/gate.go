package gate

import (
	"time"
)

// WithClock sets the time source used by the gate. Tests use it to drive
// the gate with a fake clock.
func WithClock(clock func() time.Time) func(*Gate) {
	return func(g *Gate) {
		g.clock = clock
	}
}

// Gate is a cooperative cooldown timer. It answers whether at least one
// interval has elapsed since it last fired and, when it has, resets itself.
//
// Gate is meant to be polled from a single loop and is not safe for
// concurrent use.
type Gate struct {
	interval time.Duration
	lastFire time.Time
	clock    func() time.Time
}

// New creates a Gate with the given interval. The gate's clock starts at
// construction time, so the first Ready result is true only once the
// interval has elapsed.
func New(interval time.Duration, options ...func(*Gate)) *Gate {
	g := Gate{
		interval: interval,
		clock:    time.Now,
	}

	for _, option := range options {
		option(&g)
	}

	g.lastFire = g.clock()
	return &g
}

// Ready reports whether the interval has elapsed since construction or the
// last true result. A true result resets the last fire time to now; a false
// result leaves the gate untouched.
//
// time.Now carries a monotonic reading, so wall clock adjustments on boards
// without an RTC do not make the gate fire early or stall.
func (g *Gate) Ready() bool {
	now := g.clock()
	if now.Sub(g.lastFire) >= g.interval {
		g.lastFire = now
		return true
	}
	return false
}

// Interval returns the gate interval.
func (g *Gate) Interval() time.Duration {
	return g.interval
}

// SetInterval changes the gate interval. The last fire time is kept.
func (g *Gate) SetInterval(interval time.Duration) {
	g.interval = interval
}

// Remaining returns the time left until the gate is ready. The value is
// negative when the gate is overdue.
func (g *Gate) Remaining() time.Duration {
	return g.interval - g.clock().Sub(g.lastFire)
}
