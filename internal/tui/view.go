package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jdlr/tatum/internal/analysis"
	"github.com/jdlr/tatum/internal/model"
)

var (
	laneStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	leftStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#5AC8FA")).Bold(true)
	rightStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	anyStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	markerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
	judgmentStyles = map[string]lipgloss.Style{
		model.JudgmentPerfect:   lipgloss.NewStyle().Foreground(lipgloss.Color("#7CFC00")).Bold(true),
		model.JudgmentGreat:     lipgloss.NewStyle().Foreground(lipgloss.Color("#5AC8FA")).Bold(true),
		model.JudgmentGood:      lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")),
		model.JudgmentMiss:      lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")),
		model.JudgmentWrongHand: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true),
	}
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	bestStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7CFC00")).Bold(true)
	pausedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
)

// laneSeconds is how far ahead the lane display looks. Wider than the
// scheduler horizon so notes appear before their guide tone plays.
const laneSeconds = 2.0

// View implements tea.Model.
func (m *Model) View() string {
	if m.errMsg != "" {
		return "error: " + m.errMsg + "\n"
	}
	var content string
	switch {
	case m.finished:
		content = m.resultView()
	case m.paused:
		content = pausedStyle.Render("paused") + "\n\n" + footerStyle.Render("p resume · q quit")
	default:
		content = m.playView()
	}
	if m.width == 0 || m.height == 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m *Model) playView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s · %s · %.0f BPM", m.pattern.Name, m.cfg.Difficulty, m.tempo())))
	b.WriteString("\n\n")

	if remaining := m.session.CountInRemaining(); remaining > 0 {
		b.WriteString(anyStyle.Render(fmt.Sprintf("get ready: %d", remaining)))
		b.WriteString("\n\n")
	} else {
		label := " "
		if m.lastJudgment != "" {
			style, ok := judgmentStyles[m.lastJudgment]
			if !ok {
				style = laneStyle
			}
			label = style.Render(fmt.Sprintf("%s %+.0fms", m.lastJudgment, m.lastOffset))
		}
		b.WriteString(label)
		b.WriteString("\n\n")
	}

	b.WriteString(m.laneView())
	b.WriteString("\n\n")

	stats := m.session.Stats()
	b.WriteString(footerStyle.Render(fmt.Sprintf(
		"score %.0f · combo %d · acc %.1f%% · %.0fs left   f=left j=right p=pause",
		stats.TotalScore, stats.Combo, stats.Accuracy,
		m.session.Duration()-m.session.Elapsed())))
	return b.String()
}

// laneView renders upcoming notes on a strip flowing right to left
// toward the hit marker.
func (m *Model) laneView() string {
	width := m.width - 10
	if width < 20 {
		width = 40
	}
	if width > 70 {
		width = 70
	}
	cells := make([]string, width)
	for i := range cells {
		cells[i] = laneStyle.Render("·")
	}
	now, ok := m.clock.Now()
	if ok {
		for _, h := range m.session.Pending() {
			if h.Processed {
				continue
			}
			rel := (h.Time - now) / laneSeconds
			if rel < 0 || rel >= 1 {
				continue
			}
			idx := int(rel * float64(width-1))
			switch h.Hand {
			case model.HandLeft:
				cells[idx] = leftStyle.Render("L")
			case model.HandRight:
				cells[idx] = rightStyle.Render("R")
			default:
				cells[idx] = anyStyle.Render("◆")
			}
		}
	}
	return markerStyle.Render("▌") + strings.Join(cells, "")
}

func (m *Model) resultView() string {
	stats := m.session.Stats()
	var b strings.Builder
	b.WriteString(titleStyle.Render("session complete"))
	b.WriteString("\n\n")
	lines := []string{
		fmt.Sprintf("score     %.0f", stats.TotalScore),
		fmt.Sprintf("accuracy  %.1f%%", stats.Accuracy),
		fmt.Sprintf("max combo %d", stats.MaxCombo),
		fmt.Sprintf("perfect %d · great %d · good %d · miss %d",
			stats.Perfects, stats.Greats, stats.Goods, stats.Misses),
		"",
		fmt.Sprintf("early %.0f%% · late %.0f%%", m.summary.EarlyRatePct, m.summary.LateRatePct),
		fmt.Sprintf("missed on beat %d · off beat %d", m.summary.DownbeatMisses, m.summary.OffbeatMisses),
		fmt.Sprintf("trend %s", m.summary.Trend),
	}
	b.WriteString(strings.Join(lines, "\n"))
	if spark := analysis.OffsetSparkline(stats.History, 48); spark != "" {
		b.WriteString("\n\noffsets " + laneStyle.Render(spark))
	}
	b.WriteString("\n\n")
	switch {
	case m.newBest:
		b.WriteString(bestStyle.Render("new best!"))
	case m.best != nil:
		b.WriteString(footerStyle.Render(fmt.Sprintf("best %.0f · %.1f%%", m.best.Score, m.best.Accuracy)))
	}
	b.WriteString("\n\n")
	b.WriteString(footerStyle.Render("enter/q to exit"))
	return b.String()
}

func (m *Model) tempo() float64 {
	if m.cfg.Tempo > 0 {
		return m.cfg.Tempo
	}
	return m.pattern.Tempo
}
