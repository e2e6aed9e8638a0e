// Package analysis derives post-session summaries from a finalized tap
// history: timing bias, miss classification, and a first-half versus
// second-half trend.
package analysis

import (
	"math"

	"github.com/jdlr/tatum/internal/model"
)

const (
	// biasThresholdMs is how far off a hit must be to count as early
	// or late rather than centered.
	biasThresholdMs = 15.0

	// Trend classification: second-half mean absolute offset relative
	// to the first half.
	improvingRatio = 0.8
	degradingRatio = 1.2

	// minTrendEvents is the history length below which the trend
	// defaults to stable.
	minTrendEvents = 5
)

// Summarize derives an AnalysisSummary from a session history. The
// history is read-only; Summarize never mutates it.
func Summarize(history []model.HitEvent) model.AnalysisSummary {
	sum := model.AnalysisSummary{Trend: model.TrendStable}
	if len(history) == 0 {
		return sum
	}

	var scoreTotal float64
	var early, late, nonMiss int
	for _, ev := range history {
		scoreTotal += float64(ev.Score)
		if ev.Miss {
			sum.Misses++
			if !ev.Stray {
				if isDownbeat(ev.Beat) {
					sum.DownbeatMisses++
				} else {
					sum.OffbeatMisses++
				}
			}
			continue
		}
		nonMiss++
		if ev.Judgment() == model.JudgmentPerfect {
			sum.Perfects++
		}
		if ev.OffsetMs < -biasThresholdMs {
			early++
		} else if ev.OffsetMs > biasThresholdMs {
			late++
		}
	}
	sum.AverageAccuracy = scoreTotal / float64(len(history))
	if nonMiss > 0 {
		sum.EarlyRatePct = float64(early) / float64(nonMiss) * 100
		sum.LateRatePct = float64(late) / float64(nonMiss) * 100
	}
	sum.Trend = trend(history)
	return sum
}

// trend compares the mean absolute offset of the first and second
// halves of the history. Stray taps carry no meaningful offset and are
// excluded from the means.
func trend(history []model.HitEvent) string {
	if len(history) < minTrendEvents {
		return model.TrendStable
	}
	half := len(history) / 2
	first, firstN := meanAbsOffset(history[:half])
	second, secondN := meanAbsOffset(history[half:])
	if firstN == 0 || secondN == 0 || first == 0 {
		return model.TrendStable
	}
	switch {
	case second < first*improvingRatio:
		return model.TrendImproving
	case second > first*degradingRatio:
		return model.TrendDegrading
	default:
		return model.TrendStable
	}
}

func meanAbsOffset(events []model.HitEvent) (mean float64, n int) {
	var sum float64
	for _, ev := range events {
		if ev.Stray {
			continue
		}
		sum += math.Abs(ev.OffsetMs)
		n++
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}

func isDownbeat(beat float64) bool {
	_, frac := math.Modf(beat)
	return math.Abs(frac) < 1e-9 || math.Abs(frac-1) < 1e-9
}
