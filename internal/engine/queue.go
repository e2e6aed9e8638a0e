package engine

import "github.com/jdlr/tatum/internal/model"

// ExpectedHit is a scheduled note instance awaiting a matching tap or
// expiry. Instances are owned by the queue; Processed flips to true at
// most once, when a tap claims the hit.
type ExpectedHit struct {
	Time      float64 // scheduled clock time
	Beat      float64
	Hand      model.Hand
	Processed bool
}

// hitQueue is the bounded, time-ordered set of pending hits. Entries
// are appended in scheduling order and dropped once they fall behind
// the retention cutoff, which bounds growth over a long session.
type hitQueue struct {
	items []ExpectedHit
}

func (q *hitQueue) push(h ExpectedHit) {
	q.items = append(q.items, h)
}

// prune drops entries scheduled before the cutoff. The queue is
// time-ordered, so retained entries form a suffix.
func (q *hitQueue) prune(cutoff float64) {
	keep := 0
	for keep < len(q.items) && q.items[keep].Time < cutoff {
		keep++
	}
	if keep > 0 {
		q.items = append(q.items[:0], q.items[keep:]...)
	}
}

// pendingUnprocessed returns pointers to all entries not yet claimed by
// a tap, in scheduled order.
func (q *hitQueue) pendingUnprocessed() []*ExpectedHit {
	out := make([]*ExpectedHit, 0, len(q.items))
	for i := range q.items {
		if !q.items[i].Processed {
			out = append(out, &q.items[i])
		}
	}
	return out
}

// shift moves every pending entry forward by d seconds. Used when
// resuming from a pause so scheduled times stay aligned with the
// still-running clock.
func (q *hitQueue) shift(d float64) {
	for i := range q.items {
		q.items[i].Time += d
	}
}

func (q *hitQueue) clear() {
	q.items = q.items[:0]
}

// snapshot copies the current entries for external read-only consumers.
func (q *hitQueue) snapshot() []ExpectedHit {
	out := make([]ExpectedHit, len(q.items))
	copy(out, q.items)
	return out
}
