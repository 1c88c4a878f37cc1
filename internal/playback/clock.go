package playback

import (
	"time"
)

// Clock supplies wall-clock time to the controller
type Clock interface {
	Now() time.Time
}

// SystemClock is the real wall clock
type SystemClock struct{}

// Now returns the current time
func (SystemClock) Now() time.Time { return time.Now() }

// SimClock maps animation progress onto simulated UTC time
type SimClock struct {
	Start    time.Time     // simulated time at progress 0
	Duration time.Duration // simulated time covered by a full replay
}

// At returns Start + progress*Duration
func (c SimClock) At(progress float64) time.Time {
	return c.Start.Add(time.Duration(progress * float64(c.Duration))).UTC()
}

// Elapsed returns the simulated time since Start at the given progress
func (c SimClock) Elapsed(progress float64) time.Duration {
	return time.Duration(progress * float64(c.Duration))
}

// FormatUTC renders the on-screen clock text, e.g. "04:15 UTC"
func FormatUTC(t time.Time) string {
	return t.UTC().Format("15:04") + " UTC"
}
