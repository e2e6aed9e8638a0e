// Package engine implements the scheduling and judgment core: the
// look-ahead note scheduler, the expected-hit queue, tap judgment, and
// session aggregation. All timing decisions are computed against a
// monotonic clock supplied by the caller; the engine never reads
// wall-clock time.
package engine

import "github.com/jdlr/tatum/internal/model"

// Clock exposes a monotonically increasing time value in seconds. The
// second return is false while the clock is unavailable or suspended;
// the engine performs no work in that case.
type Clock interface {
	Now() (float64, bool)
}

// Sounder receives fire-and-forget sound triggers. The `at` argument is
// the exact clock time the sound belongs to, which may be slightly in
// the future when emitted from a look-ahead pass. Implementations must
// not block.
type Sounder interface {
	// Metronome triggers a tempo pulse.
	Metronome(at float64)
	// Guide triggers the guide tone for a scheduled note.
	Guide(at float64, hand model.Hand)
	// Feedback triggers immediate tap feedback for a judged hit.
	Feedback(hand model.Hand, score int)
}

// NopSounder discards all triggers. Used for muted play and in tests
// that only care about judgment.
type NopSounder struct{}

func (NopSounder) Metronome(float64)         {}
func (NopSounder) Guide(float64, model.Hand) {}
func (NopSounder) Feedback(model.Hand, int)  {}

// ManualClock is a settable Clock for tests and offline use.
type ManualClock struct {
	Time      float64
	Suspended bool
}

// Now returns the current manual time.
func (c *ManualClock) Now() (float64, bool) {
	if c.Suspended {
		return 0, false
	}
	return c.Time, true
}

// Set moves the clock to t.
func (c *ManualClock) Set(t float64) { c.Time = t }

// Advance moves the clock forward by d seconds.
func (c *ManualClock) Advance(d float64) { c.Time += d }
