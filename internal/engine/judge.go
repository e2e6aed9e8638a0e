package engine

import (
	"math"

	"github.com/jdlr/tatum/internal/model"
)

// Judge matches a tap against the expected-hit queue and returns the
// resulting hit event, already applied to the session stats. Returns
// nil when the tap is rejected: before the count-in elapses, while
// paused or done, or when the clock is suspended.
func (s *Session) Judge(hand model.Hand) *model.HitEvent {
	if s.state != StateCountIn && s.state != StatePlaying {
		return nil
	}
	now, ok := s.clock.Now()
	if !ok || now < s.gameStart {
		return nil
	}
	// A tap can land after the count-in elapses but before the next
	// wake promotes the state; mirror Advance's transition so the tap
	// is judged rather than dropped.
	if s.state == StateCountIn {
		s.state = StatePlaying
	}
	s.queue.prune(now - retentionMargin)

	var best *ExpectedHit
	bestMatch := false
	bestDiff := 0.0
	for _, h := range s.queue.pendingUnprocessed() {
		diff := math.Abs(h.Time-now) * 1000
		if diff >= s.cfg.Window.Good {
			continue
		}
		match := h.Hand.Matches(hand)
		// Hand match outranks proximity: when two notes are nearly
		// simultaneous, trust the player's stated hand.
		if best == nil || (match && !bestMatch) || (match == bestMatch && diff < bestDiff) {
			best, bestMatch, bestDiff = h, match, diff
		}
	}

	ev := model.HitEvent{
		TappedHand:  hand,
		SessionTime: now - s.gameStart,
	}
	if best == nil {
		// Stray tap: nothing within tolerance.
		ev.Miss = true
		ev.Stray = true
		ev.ExpectedHand = model.HandAny
		ev.Beat = s.beatAt(now)
	} else {
		best.Processed = true
		ev.Beat = best.Beat
		ev.ExpectedHand = best.Hand
		ev.OffsetMs = (now - best.Time) * 1000
		if !bestMatch {
			ev.Miss = true
			ev.WrongHand = true
		} else {
			ev.Score = scoreFor(s.cfg.Window, bestDiff)
			ev.Miss = ev.Score == 0
		}
	}
	s.applyHit(ev)
	s.sound.Feedback(hand, ev.Score)
	return &ev
}

// beatAt maps a clock time to its beat position within the loop.
func (s *Session) beatAt(t float64) float64 {
	beats := (t - s.startTime) / s.beatDur
	return math.Mod(beats, s.cfg.Pattern.LoopBeats)
}

// scoreFor classifies a timing difference into the window's nested
// bands. The curve is linear inside each band and monotonically
// non-increasing in diffMs, with fixed floors at the band boundaries:
// >=90 perfect, 70-89 great, 40-69 good, 0 outside.
func scoreFor(w model.ScoringWindow, diffMs float64) int {
	switch {
	case diffMs <= w.PerfectPlus:
		return round(95 + 5*(w.PerfectPlus-diffMs)/w.PerfectPlus)
	case diffMs <= w.Perfect:
		return round(90 + 5*(w.Perfect-diffMs)/(w.Perfect-w.PerfectPlus))
	case diffMs <= w.Great:
		return round(70 + 19*(w.Great-diffMs)/(w.Great-w.Perfect))
	case diffMs < w.Good:
		return round(40 + 29*(w.Good-diffMs)/(w.Good-w.Great))
	default:
		return 0
	}
}

func round(v float64) int {
	return int(math.Floor(v + 0.5))
}
