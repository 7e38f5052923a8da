package testfixtures

import (
	"sync"
	"time"
)

// dayLayout matches the day keys the engines store on attendance, shift and
// task records.
const dayLayout = "2006-01-02"

// Clock is a manually driven time source. Engines read it through NowFunc;
// tests move it with Advance and read day keys with Today.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{now: start}
}

// Now reports the clock's instant.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NowFunc returns Now for injection into engines. A nil clock yields time.Now.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Advance moves the clock forward by d and returns the new instant.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// Today returns the day key of the clock's instant.
func (c *Clock) Today() string {
	return c.Now().Format(dayLayout)
}
