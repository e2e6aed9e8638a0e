// Package tui provides the Bubble Tea play interface.
package tui

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jdlr/tatum/internal/analysis"
	"github.com/jdlr/tatum/internal/engine"
	"github.com/jdlr/tatum/internal/model"
	"github.com/jdlr/tatum/internal/store"
)

// AudioControl lets the pause key suspend the clock source along with
// the session. Nil when playing muted on a manual clock.
type AudioControl interface {
	Pause()
	Resume()
}

type tickMsg time.Time

// Model implements the Bubble Tea play UI. All engine calls happen on
// the update goroutine, which keeps scheduling and judgment on one
// logical thread.
type Model struct {
	cfg     model.PlayConfig
	pattern model.Pattern
	session *engine.Session
	clock   engine.Clock
	audio   AudioControl
	store   *store.Store

	width  int
	height int

	startedAt time.Time
	paused    bool
	finished  bool
	quitting  bool

	lastJudgment string
	lastOffset   float64
	judgmentAge  int

	summary model.AnalysisSummary
	best    *model.BestScore
	newBest bool
	errMsg  string
}

// NewModel builds the play UI around a prepared session. The session
// must not be started yet; the model starts it on Init.
func NewModel(cfg model.PlayConfig, pattern model.Pattern, session *engine.Session, clock engine.Clock, audio AudioControl, st *store.Store) *Model {
	return &Model{
		cfg:     cfg,
		pattern: pattern,
		session: session,
		clock:   clock,
		audio:   audio,
		store:   st,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	m.startedAt = time.Now()
	if err := m.session.Start(); err != nil {
		m.errMsg = err.Error()
		return tea.Quit
	}
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(engine.WakeInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		return m.handleTick()
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleTick() (tea.Model, tea.Cmd) {
	if m.finished || m.quitting {
		return m, nil
	}
	m.session.Advance()
	if m.judgmentAge > 0 {
		m.judgmentAge--
		if m.judgmentAge == 0 {
			m.lastJudgment = ""
		}
	}
	if m.session.State() == engine.StateDone {
		m.finishSession()
		return m, nil
	}
	return m, tick()
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc", "q":
		m.quitting = true
		if !m.finished {
			m.session.End()
		}
		return m, tea.Quit
	case "f":
		m.tap(model.HandLeft)
		return m, nil
	case "j":
		m.tap(model.HandRight)
		return m, nil
	case "p":
		m.togglePause()
		return m, nil
	case "enter":
		if m.finished {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	default:
		return m, nil
	}
}

func (m *Model) tap(hand model.Hand) {
	if m.finished || m.paused {
		return
	}
	ev := m.session.Judge(hand)
	if ev == nil {
		return
	}
	m.lastJudgment = ev.Judgment()
	m.lastOffset = ev.OffsetMs
	m.judgmentAge = 20
}

func (m *Model) togglePause() {
	if m.finished {
		return
	}
	if m.paused {
		if m.audio != nil {
			m.audio.Resume()
		}
		m.session.Resume()
		m.paused = false
		return
	}
	m.session.Pause()
	if m.audio != nil {
		m.audio.Pause()
	}
	m.paused = true
}

// finishSession freezes stats, derives the summary, and persists the
// run. Save failures are reported, not fatal.
func (m *Model) finishSession() {
	m.finished = true
	stats := m.session.Stats()
	m.summary = analysis.Summarize(stats.History)

	if m.store == nil {
		return
	}
	ctx := context.Background()
	prev, err := m.store.BestScore(ctx, m.pattern.ID, string(m.cfg.Difficulty))
	if err != nil {
		logErrf("failed to load best score: %v\n", err)
	} else {
		m.best = prev
	}
	rec := model.SessionRecord{
		StartedAt:  m.startedAt,
		EndedAt:    time.Now(),
		Level:      m.pattern.ID,
		Difficulty: string(m.cfg.Difficulty),
		Tempo:      m.pattern.Tempo,
		Duration:   m.session.Duration(),
		Score:      stats.TotalScore,
		MaxCombo:   stats.MaxCombo,
		Accuracy:   stats.Accuracy,
		Perfects:   stats.Perfects,
		Greats:     stats.Greats,
		Goods:      stats.Goods,
		Misses:     stats.Misses,
		EarlyPct:   m.summary.EarlyRatePct,
		LatePct:    m.summary.LateRatePct,
		Trend:      m.summary.Trend,
	}
	if m.cfg.Tempo > 0 {
		rec.Tempo = m.cfg.Tempo
	}
	if _, improved, err := m.store.InsertSession(ctx, rec); err != nil {
		logErrf("failed to save session: %v\n", err)
	} else {
		m.newBest = improved
	}
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
