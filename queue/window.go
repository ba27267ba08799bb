package queue

import "time"

// WindowConfig controls the rating search radius of a queued entry:
// starting at Start, widening by Step every Interval, capped at Max.
// A long wait widens the radius; the cap keeps wildly mismatched
// entries apart forever.
type WindowConfig struct {
	Start    int
	Step     int
	Interval time.Duration
	Max      int
}

// WindowAt returns the radius after the given time in queue. The
// result is non-decreasing in elapsed and never exceeds Max.
func (c WindowConfig) WindowAt(elapsed time.Duration) int {
	if elapsed < 0 {
		elapsed = 0
	}
	window := c.Start
	if c.Interval > 0 {
		window += c.Step * int(elapsed/c.Interval)
	}
	if window > c.Max {
		window = c.Max
	}
	return window
}

func tierCompatible(tolerance int, tierA int, tierB int) bool {
	delta := tierA - tierB
	if delta < 0 {
		delta = -delta
	}
	return delta <= tolerance
}
