// Package model defines shared data structures.
package model

import "time"

// Hand identifies the input lane a note is scored against.
type Hand int

const (
	HandLeft Hand = iota
	HandRight
	HandAny
)

// String returns the lane label used in output and storage.
func (h Hand) String() string {
	switch h {
	case HandLeft:
		return "left"
	case HandRight:
		return "right"
	case HandAny:
		return "any"
	default:
		return "unknown"
	}
}

// Matches reports whether a tap with the given hand satisfies this
// required hand.
func (h Hand) Matches(tapped Hand) bool {
	return h == HandAny || h == tapped
}

// NoteEvent places a required hand at a beat position within a loop.
// Integer beats are downbeats, fractional beats are offbeats.
type NoteEvent struct {
	Beat float64
	Hand Hand
}

// Pattern is an immutable looping note sequence. Notes are ordered by
// ascending beat and every beat lies inside [0, LoopBeats).
type Pattern struct {
	ID        string
	Name      string
	Tempo     float64 // default BPM
	LoopBeats float64
	Notes     []NoteEvent
}

// Difficulty selects a scoring window tier.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ScoringWindow holds the four nested timing tolerance bands in
// milliseconds, strictly increasing.
type ScoringWindow struct {
	PerfectPlus float64
	Perfect     float64
	Great       float64
	Good        float64
}

// Windows maps each difficulty tier to its tolerance bands.
var Windows = map[Difficulty]ScoringWindow{
	DifficultyEasy:   {PerfectPlus: 40, Perfect: 70, Great: 130, Good: 200},
	DifficultyMedium: {PerfectPlus: 25, Perfect: 50, Great: 100, Good: 150},
	DifficultyHard:   {PerfectPlus: 15, Perfect: 30, Great: 60, Good: 100},
}

// Judgment labels for a scored tap.
const (
	JudgmentPerfect   = "perfect"
	JudgmentGreat     = "great"
	JudgmentGood      = "good"
	JudgmentMiss      = "miss"
	JudgmentWrongHand = "wrong drum"
)

// JudgmentFor maps a tap score to its display label. Wrong-hand misses
// carry their own label and do not go through this mapping.
func JudgmentFor(score int) string {
	switch {
	case score >= 90:
		return JudgmentPerfect
	case score >= 70:
		return JudgmentGreat
	case score >= 40:
		return JudgmentGood
	default:
		return JudgmentMiss
	}
}

// HitEvent records a single judged tap. Events are append-only and never
// mutated once added to a session history.
type HitEvent struct {
	OffsetMs     float64 // tap minus expected; negative = early
	Miss         bool
	WrongHand    bool
	Stray        bool // no candidate within tolerance
	Beat         float64
	TappedHand   Hand
	ExpectedHand Hand
	Score        int
	SessionTime  float64 // clock seconds since scoring began
}

// Judgment returns the display label for this event.
func (e HitEvent) Judgment() string {
	if e.WrongHand {
		return JudgmentWrongHand
	}
	return JudgmentFor(e.Score)
}

// SessionStats accumulates running counters over a session and holds the
// append-only tap history.
type SessionStats struct {
	TotalScore float64
	Combo      int
	MaxCombo   int
	Perfects   int
	Greats     int
	Goods      int
	Misses     int
	Accuracy   float64 // incremental mean of per-tap scores
	History    []HitEvent
}

// Trend labels for AnalysisSummary.
const (
	TrendImproving = "improving"
	TrendDegrading = "degrading"
	TrendStable    = "stable"
)

// AnalysisSummary is derived once from a finalized session history.
type AnalysisSummary struct {
	Perfects        int
	Misses          int
	AverageAccuracy float64
	EarlyRatePct    float64
	LateRatePct     float64
	OffbeatMisses   int
	DownbeatMisses  int
	Trend           string
}

// PlayConfig defines settings for one play session.
type PlayConfig struct {
	Level      string
	Difficulty Difficulty
	Tempo      float64 // 0 = use pattern default
	Duration   float64 // seconds of scored play
	ComboBonus bool
	Mute       bool
}

// StatsConfig defines filters for stats output.
type StatsConfig struct {
	Level      string
	Difficulty string
	Since      *time.Time
	Last       int
	Plot       bool
}

// SessionRecord is a finished session as persisted.
type SessionRecord struct {
	ID         int64
	StartedAt  time.Time
	EndedAt    time.Time
	Level      string
	Difficulty string
	Tempo      float64
	Duration   float64
	Score      float64
	MaxCombo   int
	Accuracy   float64
	Perfects   int
	Greats     int
	Goods      int
	Misses     int
	EarlyPct   float64
	LatePct    float64
	Trend      string
}

// BestScore is the stored best for a (level, difficulty) pair.
type BestScore struct {
	Level      string
	Difficulty string
	Score      float64
	Accuracy   float64
	AchievedAt time.Time
}
