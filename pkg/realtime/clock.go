package realtime

import "time"

// Sleeper abstracts "sleep until an absolute monotonic deadline" so the
// realtime loop's cadence is testable without a real 2ms wall-clock wait,
// and so platform-specific deadline primitives (performance-counter-based
// on one platform, monotonic-clock-based on another) collapse to this
// single interface.
type Sleeper interface {
	SleepUntil(deadline time.Time)
}

// realSleeper sleeps using the monotonic clock via time.Sleep(time.Until).
// Sleep is always computed from an absolute deadline, not a relative
// duration, so a cycle that runs long does not push every subsequent
// deadline back.
type realSleeper struct{}

func (realSleeper) SleepUntil(deadline time.Time) {
	if d := time.Until(deadline); d > 0 {
		time.Sleep(d)
	}
}

// RealSleeper is the production [Sleeper].
var RealSleeper Sleeper = realSleeper{}
