package engine

import (
	"math"
	"testing"

	"github.com/jdlr/tatum/internal/model"
)

// playingSession returns a session already past its count-in, with the
// clock at the given time and nothing scheduled yet.
func playingSession(t *testing.T, clk *ManualClock, window model.ScoringWindow) *Session {
	t.Helper()
	s := newTestSession(t, Config{Pattern: fourOnFloor(), Window: window}, clk, NopSounder{})
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	s.state = StatePlaying
	s.gameStart = 0
	return s
}

func TestJudgeRejectsDuringCountIn(t *testing.T) {
	clk := &ManualClock{}
	s := newTestSession(t, Config{Pattern: fourOnFloor()}, clk, NopSounder{})
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	clk.Set(0.5)
	s.Advance()
	if ev := s.Judge(model.HandLeft); ev != nil {
		t.Fatalf("expected tap rejected during count-in, got %+v", ev)
	}
	if len(s.Stats().History) != 0 {
		t.Fatalf("count-in tap must not be recorded")
	}
}

func TestJudgeAcceptsTapBetweenCountInEndAndNextWake(t *testing.T) {
	// gameStart is 2.0s (four count-in beats at 120 BPM) with a note
	// right on it. A tap after gameStart but before the next wake pass
	// must be judged, not dropped on the stale count-in state.
	clk := &ManualClock{}
	s := newTestSession(t, Config{Pattern: fourOnFloor()}, clk, NopSounder{})
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	for clk.Time < 1.99 {
		s.Advance()
		clk.Advance(0.025)
	}
	if s.State() != StateCountIn {
		t.Fatalf("expected count-in before gameStart, got %v", s.State())
	}

	clk.Set(2.005)
	ev := s.Judge(model.HandRight)
	if ev == nil {
		t.Fatalf("expected tap at clock time past gameStart to be judged")
	}
	if ev.Miss || ev.Score < 95 {
		t.Fatalf("expected a perfect-band hit, got %+v", ev)
	}
	if got, want := ev.OffsetMs, 5.0; math.Abs(got-want) > 1e-6 {
		t.Fatalf("expected offset %+.0fms, got %+.3fms", want, got)
	}
	if s.State() != StatePlaying {
		t.Fatalf("expected judging to promote to playing, got %v", s.State())
	}
}

func TestJudgePrunesExpiredHitsWithoutAdvance(t *testing.T) {
	// Medium retention is 300ms; a stale unprocessed entry must be gone
	// after a judgment even when no scheduler pass ran in between.
	clk := &ManualClock{Time: 0.9}
	s := playingSession(t, clk, model.Windows[model.DifficultyMedium])
	s.queue.push(ExpectedHit{Time: 0.2, Beat: 0, Hand: model.HandRight})
	s.queue.push(ExpectedHit{Time: 1.0, Beat: 2, Hand: model.HandLeft})

	clk.Set(1.0)
	ev := s.Judge(model.HandLeft)
	if ev == nil || ev.Miss {
		t.Fatalf("expected the on-time note to be hit, got %+v", ev)
	}
	pending := s.Pending()
	if len(pending) != 1 {
		t.Fatalf("expected expired entry pruned, got %d pending", len(pending))
	}
	if pending[0].Time != 1.0 {
		t.Fatalf("wrong entry retained: %+v", pending[0])
	}
}

func TestJudgeRejectsWhenClockSuspended(t *testing.T) {
	clk := &ManualClock{Time: 1.0}
	s := playingSession(t, clk, model.Windows[model.DifficultyMedium])
	clk.Suspended = true
	if ev := s.Judge(model.HandLeft); ev != nil {
		t.Fatalf("expected nil judgment with suspended clock, got %+v", ev)
	}
}

func TestJudgePerfectTenMsLate(t *testing.T) {
	// Medium windows [25,50,100,150]: 10ms late is a perfect.
	clk := &ManualClock{Time: 0.9}
	s := playingSession(t, clk, model.Windows[model.DifficultyMedium])
	s.queue.push(ExpectedHit{Time: 1.000, Beat: 2, Hand: model.HandLeft})

	clk.Set(1.010)
	ev := s.Judge(model.HandLeft)
	if ev == nil {
		t.Fatalf("expected a hit event")
	}
	if ev.Score < 90 {
		t.Fatalf("expected score >= 90, got %d", ev.Score)
	}
	if ev.Judgment() != model.JudgmentPerfect {
		t.Fatalf("expected perfect, got %s", ev.Judgment())
	}
	if math.Abs(ev.OffsetMs-10) > 1e-6 {
		t.Fatalf("expected offset +10ms, got %.3f", ev.OffsetMs)
	}
}

func TestJudgeGoodBand(t *testing.T) {
	// 120ms late sits in the good band (100..150).
	clk := &ManualClock{Time: 0.9}
	s := playingSession(t, clk, model.Windows[model.DifficultyMedium])
	s.queue.push(ExpectedHit{Time: 1.000, Beat: 2, Hand: model.HandLeft})

	clk.Set(1.120)
	ev := s.Judge(model.HandLeft)
	if ev == nil {
		t.Fatalf("expected a hit event")
	}
	if ev.Score < 40 || ev.Score >= 70 {
		t.Fatalf("expected score in [40,70), got %d", ev.Score)
	}
	if ev.Judgment() != model.JudgmentGood {
		t.Fatalf("expected good, got %s", ev.Judgment())
	}
}

func TestJudgeWrongHand(t *testing.T) {
	clk := &ManualClock{Time: 0.99}
	s := playingSession(t, clk, model.Windows[model.DifficultyMedium])
	s.queue.push(ExpectedHit{Time: 1.000, Beat: 2, Hand: model.HandLeft})

	clk.Set(1.005)
	ev := s.Judge(model.HandRight)
	if ev == nil {
		t.Fatalf("expected a hit event")
	}
	if !ev.Miss || !ev.WrongHand || ev.Score != 0 {
		t.Fatalf("expected wrong-hand zero-score miss, got %+v", ev)
	}
	if ev.ExpectedHand != model.HandLeft {
		t.Fatalf("expected hand left recorded, got %v", ev.ExpectedHand)
	}
	if ev.Judgment() != model.JudgmentWrongHand {
		t.Fatalf("expected wrong drum label, got %s", ev.Judgment())
	}
}

func TestJudgeStrayTap(t *testing.T) {
	clk := &ManualClock{Time: 5.0}
	s := playingSession(t, clk, model.Windows[model.DifficultyMedium])
	// Queue empty: nothing within 150ms.
	ev := s.Judge(model.HandLeft)
	if ev == nil {
		t.Fatalf("expected a stray miss event")
	}
	if !ev.Miss || !ev.Stray || ev.Score != 0 {
		t.Fatalf("expected stray zero-score miss, got %+v", ev)
	}
	if ev.ExpectedHand != model.HandAny {
		t.Fatalf("stray miss must carry no expected hand, got %v", ev.ExpectedHand)
	}
	if len(s.Stats().History) != 1 {
		t.Fatalf("stray miss must be recorded")
	}
}

func TestJudgeHandMatchOutranksProximity(t *testing.T) {
	// Two nearly simultaneous notes: the right-hand note is closer in
	// time, but the tap says left, so the left note wins.
	clk := &ManualClock{Time: 0.9}
	s := playingSession(t, clk, model.Windows[model.DifficultyMedium])
	s.queue.push(ExpectedHit{Time: 1.000, Beat: 2, Hand: model.HandRight})
	s.queue.push(ExpectedHit{Time: 1.050, Beat: 2.1, Hand: model.HandLeft})

	clk.Set(1.005)
	ev := s.Judge(model.HandLeft)
	if ev == nil {
		t.Fatalf("expected a hit event")
	}
	if ev.ExpectedHand != model.HandLeft {
		t.Fatalf("expected the hand-matching note selected, got %v", ev.ExpectedHand)
	}
	if ev.WrongHand {
		t.Fatalf("hand-matching selection must not be a wrong-hand miss")
	}
}

func TestJudgeAnyHandMatches(t *testing.T) {
	clk := &ManualClock{Time: 0.99}
	s := playingSession(t, clk, model.Windows[model.DifficultyMedium])
	s.queue.push(ExpectedHit{Time: 1.000, Beat: 0, Hand: model.HandAny})
	clk.Set(1.0)
	ev := s.Judge(model.HandRight)
	if ev == nil || ev.Miss {
		t.Fatalf("any-hand note must accept either hand, got %+v", ev)
	}
	if ev.Score != 100 {
		t.Fatalf("exact hit scores 100, got %d", ev.Score)
	}
}

func TestJudgeProcessedHitNotClaimedTwice(t *testing.T) {
	clk := &ManualClock{Time: 0.99}
	s := playingSession(t, clk, model.Windows[model.DifficultyMedium])
	s.queue.push(ExpectedHit{Time: 1.000, Beat: 2, Hand: model.HandAny})

	clk.Set(1.010)
	first := s.Judge(model.HandLeft)
	if first == nil || first.Miss {
		t.Fatalf("first tap should hit, got %+v", first)
	}
	second := s.Judge(model.HandLeft)
	if second == nil {
		t.Fatalf("second tap still produces an event")
	}
	if !second.Miss || !second.Stray {
		t.Fatalf("second tap on a claimed hit must be a stray miss, got %+v", second)
	}
}

func TestJudgeNearestWithinEqualPriority(t *testing.T) {
	clk := &ManualClock{Time: 0.9}
	s := playingSession(t, clk, model.Windows[model.DifficultyEasy])
	s.queue.push(ExpectedHit{Time: 0.950, Beat: 1, Hand: model.HandLeft})
	s.queue.push(ExpectedHit{Time: 1.040, Beat: 1.2, Hand: model.HandLeft})

	clk.Set(1.0)
	ev := s.Judge(model.HandLeft)
	if ev == nil {
		t.Fatalf("expected a hit event")
	}
	if math.Abs(ev.Beat-1.2) > 1e-9 {
		t.Fatalf("expected the closer note (beat 1.2) selected, got beat %.3f", ev.Beat)
	}
}

func TestScoreCurveMonotonic(t *testing.T) {
	w := model.Windows[model.DifficultyMedium]
	prev := 101
	for d := 0.0; d <= w.Good+10; d += 0.5 {
		sc := scoreFor(w, d)
		if sc > prev {
			t.Fatalf("score increased with distance at %.1fms: %d > %d", d, sc, prev)
		}
		prev = sc
	}
	// Band floors.
	if scoreFor(w, 0) != 100 {
		t.Fatalf("exact hit must score 100")
	}
	if sc := scoreFor(w, w.Perfect); sc < 90 {
		t.Fatalf("perfect boundary below floor: %d", sc)
	}
	if sc := scoreFor(w, w.Great); sc < 70 || sc > 89 {
		t.Fatalf("great boundary out of band: %d", sc)
	}
	if sc := scoreFor(w, w.Good-0.001); sc < 40 || sc > 69 {
		t.Fatalf("good inner edge out of band: %d", sc)
	}
	if scoreFor(w, w.Good) != 0 {
		t.Fatalf("outside good window must score 0")
	}
}
