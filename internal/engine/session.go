package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/jdlr/tatum/internal/model"
)

// State of a session's lifecycle.
type State int

const (
	StateIdle State = iota
	StateCountIn
	StatePlaying
	StatePaused
	StateDone
)

const (
	// WakeInterval is how often the driving loop should call Advance.
	// It is deliberately coarse; scheduled times never derive from it.
	WakeInterval = 25 * time.Millisecond

	// scheduleAhead is the look-ahead horizon in seconds. It exceeds
	// the wake interval by a wide margin so no event is skipped even
	// under timer jitter.
	scheduleAhead = 0.120

	// retentionMargin is how long an expected hit survives past its
	// scheduled time before the queue drops it. Wider than the widest
	// judgment window (easy, 200ms).
	retentionMargin = 0.300

	// DefaultDuration is seconds of scored play per session.
	DefaultDuration = 30.0

	// DefaultCountInBeats is the unscored lead-in length.
	DefaultCountInBeats = 4.0
)

// Config carries everything a session needs: the pattern, the scoring
// window, and the play policies. The pattern is referenced read-only
// for the session's duration.
type Config struct {
	Pattern      model.Pattern
	Window       model.ScoringWindow
	Tempo        float64 // BPM; 0 uses the pattern default
	Duration     float64 // seconds of scored play; 0 uses the default
	CountInBeats float64 // 0 uses the default
	ComboBonus   bool
}

// Session is the engine's per-run context: cursors, queue, and stats.
// A single logical thread must drive both Advance and Judge; the
// session performs no internal locking.
type Session struct {
	cfg     Config
	clock   Clock
	sound   Sounder
	beatDur float64

	state     State
	prevState State
	startTime float64
	gameStart float64
	pausedAt  float64

	// Scheduling cursors. Advanced only by beat-duration arithmetic
	// anchored to the clock, never by accumulating wake intervals.
	nextNoteTime      float64
	nextMetronomeTime float64
	noteIndex         int

	queue hitQueue
	stats model.SessionStats
}

// NewSession validates the configuration and builds an idle session.
func NewSession(cfg Config, clock Clock, sound Sounder) (*Session, error) {
	if clock == nil {
		return nil, fmt.Errorf("session: clock is required")
	}
	if sound == nil {
		sound = NopSounder{}
	}
	p := cfg.Pattern
	if len(p.Notes) == 0 {
		return nil, fmt.Errorf("session: pattern %q has no notes", p.ID)
	}
	if p.LoopBeats <= 0 {
		return nil, fmt.Errorf("session: pattern %q loop length must be positive", p.ID)
	}
	if last := p.Notes[len(p.Notes)-1].Beat; p.LoopBeats < last {
		return nil, fmt.Errorf("session: pattern %q loop length %.3g is shorter than last beat %.3g", p.ID, p.LoopBeats, last)
	}
	w := cfg.Window
	if !(w.PerfectPlus > 0 && w.PerfectPlus < w.Perfect && w.Perfect < w.Great && w.Great < w.Good) {
		return nil, fmt.Errorf("session: scoring window bands must be positive and strictly increasing")
	}
	if cfg.Tempo == 0 {
		cfg.Tempo = p.Tempo
	}
	if cfg.Tempo <= 0 {
		return nil, fmt.Errorf("session: tempo must be positive")
	}
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultDuration
	}
	if cfg.CountInBeats <= 0 {
		cfg.CountInBeats = DefaultCountInBeats
	}
	return &Session{
		cfg:     cfg,
		clock:   clock,
		sound:   sound,
		beatDur: 60.0 / cfg.Tempo,
	}, nil
}

// Start anchors the session to the current clock time and enters the
// count-in phase. The pattern plays from here; scoring begins once the
// count-in elapses.
func (s *Session) Start() error {
	now, ok := s.clock.Now()
	if !ok {
		return fmt.Errorf("session: clock unavailable")
	}
	s.startTime = now
	s.gameStart = now + s.cfg.CountInBeats*s.beatDur
	s.nextMetronomeTime = now
	s.nextNoteTime = now + s.cfg.Pattern.Notes[0].Beat*s.beatDur
	s.noteIndex = 0
	s.queue.clear()
	s.stats = model.SessionStats{}
	s.state = StateCountIn
	return nil
}

// Advance runs one scheduler pass: emit every metronome pulse and note
// whose scheduled time falls inside the look-ahead horizon, then prune
// expired hits. A no-op while paused, done, or when the clock is
// suspended.
func (s *Session) Advance() {
	if s.state != StateCountIn && s.state != StatePlaying {
		return
	}
	now, ok := s.clock.Now()
	if !ok {
		return
	}
	if s.state == StateCountIn && now >= s.gameStart {
		s.state = StatePlaying
	}
	if s.state == StatePlaying && now-s.gameStart >= s.cfg.Duration {
		s.finish()
		return
	}

	horizon := now + scheduleAhead
	for s.nextMetronomeTime < horizon {
		s.sound.Metronome(s.nextMetronomeTime)
		s.nextMetronomeTime += s.beatDur
	}
	notes := s.cfg.Pattern.Notes
	for s.nextNoteTime < horizon {
		note := notes[s.noteIndex]
		s.queue.push(ExpectedHit{Time: s.nextNoteTime, Beat: note.Beat, Hand: note.Hand})
		s.sound.Guide(s.nextNoteTime, note.Hand)

		next := s.noteIndex + 1
		var delta float64
		if next == len(notes) {
			next = 0
			delta = s.cfg.Pattern.LoopBeats - note.Beat + notes[0].Beat
		} else {
			delta = notes[next].Beat - note.Beat
		}
		if delta <= 0 {
			// Malformed pattern; force forward progress.
			delta = 1
		}
		s.nextNoteTime += delta * s.beatDur
		s.noteIndex = next
	}
	s.queue.prune(now - retentionMargin)
}

// Pause freezes the session. No scheduling or judgment happens until
// Resume.
func (s *Session) Pause() {
	if s.state != StateCountIn && s.state != StatePlaying {
		return
	}
	if now, ok := s.clock.Now(); ok {
		s.pausedAt = now
	}
	s.prevState = s.state
	s.state = StatePaused
}

// Resume continues from the current true clock time. If the clock kept
// running while paused, every timing anchor shifts by the gap so the
// beat grid stays aligned; missed wake cycles are never replayed.
func (s *Session) Resume() {
	if s.state != StatePaused {
		return
	}
	now, ok := s.clock.Now()
	if !ok {
		// Stay paused until the clock comes back; restoring state
		// against a suspended clock would leave stale anchors.
		return
	}
	if now > s.pausedAt {
		gap := now - s.pausedAt
		s.startTime += gap
		s.gameStart += gap
		s.nextNoteTime += gap
		s.nextMetronomeTime += gap
		s.queue.shift(gap)
	}
	s.state = s.prevState
}

// End finalizes the session immediately, cancelling pending scheduling.
func (s *Session) End() {
	if s.state == StateDone || s.state == StateIdle {
		return
	}
	s.finish()
}

func (s *Session) finish() {
	s.state = StateDone
	s.queue.clear()
}

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Stats returns a snapshot of the running statistics. The history slice
// is shared but append-only; callers must not mutate it.
func (s *Session) Stats() model.SessionStats { return s.stats }

// Pending returns a snapshot of the expected-hit queue for display.
func (s *Session) Pending() []ExpectedHit { return s.queue.snapshot() }

// BeatDuration returns seconds per beat at the session tempo.
func (s *Session) BeatDuration() float64 { return s.beatDur }

// CountInRemaining reports whole beats left before scoring starts, for
// display during the count-in. Zero once play begins.
func (s *Session) CountInRemaining() int {
	if s.state != StateCountIn {
		return 0
	}
	now, ok := s.clock.Now()
	if !ok || now >= s.gameStart {
		return 0
	}
	return int(math.Ceil((s.gameStart - now) / s.beatDur))
}

// Elapsed returns scored play time in seconds, clamped to the session
// duration. Zero during the count-in.
func (s *Session) Elapsed() float64 {
	now, ok := s.clock.Now()
	if !ok {
		return 0
	}
	e := now - s.gameStart
	if s.state == StatePaused {
		e = s.pausedAt - s.gameStart
	}
	if e < 0 {
		return 0
	}
	if e > s.cfg.Duration {
		return s.cfg.Duration
	}
	return e
}

// Duration returns the configured scored-play length in seconds.
func (s *Session) Duration() float64 { return s.cfg.Duration }

func (s *Session) applyHit(ev model.HitEvent) {
	if ev.Score > 0 {
		s.stats.Combo++
		if s.stats.Combo > s.stats.MaxCombo {
			s.stats.MaxCombo = s.stats.Combo
		}
	} else {
		s.stats.Combo = 0
	}
	bonus := 1.0
	if s.cfg.ComboBonus {
		bonus = 1 + float64(s.stats.Combo/10)*0.1
	}
	s.stats.TotalScore += float64(ev.Score) * bonus

	switch ev.Judgment() {
	case model.JudgmentPerfect:
		s.stats.Perfects++
	case model.JudgmentGreat:
		s.stats.Greats++
	case model.JudgmentGood:
		s.stats.Goods++
	default:
		s.stats.Misses++
	}

	n := float64(len(s.stats.History) + 1)
	s.stats.Accuracy = (s.stats.Accuracy*(n-1) + float64(ev.Score)) / n
	s.stats.History = append(s.stats.History, ev)
}

// ReplayTotal recomputes the total score from a history using the same
// combo and bonus rules the aggregator applies. Summing history this
// way reproduces SessionStats.TotalScore exactly.
func ReplayTotal(history []model.HitEvent, comboBonus bool) float64 {
	total := 0.0
	combo := 0
	for _, ev := range history {
		if ev.Score > 0 {
			combo++
		} else {
			combo = 0
		}
		bonus := 1.0
		if comboBonus {
			bonus = 1 + float64(combo/10)*0.1
		}
		total += float64(ev.Score) * bonus
	}
	return total
}
