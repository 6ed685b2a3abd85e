package sched

import "time"

// ManualClock is a Clock that only moves when told to. Replays and tests drive
// the scheduler with it.
type ManualClock struct {
	t time.Time
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{t: start}
}

func (c *ManualClock) Now() time.Time { return c.t }

func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.t = c.t.Add(d)
	return c.t
}

func (c *ManualClock) Set(t time.Time) { c.t = t }
