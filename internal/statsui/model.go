// Package statsui provides the Bubble Tea stats interface.
package statsui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/jdlr/tatum/internal/analysis"
	"github.com/jdlr/tatum/internal/model"
	"github.com/jdlr/tatum/internal/store"
)

const (
	tabSessions = iota
	tabBests
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	sparkStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#5AC8FA"))
)

// Model implements the Bubble Tea stats UI.
type Model struct {
	store *store.Store
	cfg   model.StatsConfig

	sessions []model.SessionRecord
	bests    []model.BestScore
	errMsg   string

	tabs         []string
	activeTab    int
	sessionTable table.Model
	bestTable    table.Model

	width  int
	height int
}

// NewModel loads sessions and bests and builds the stats UI.
func NewModel(st *store.Store, cfg model.StatsConfig) *Model {
	m := &Model{
		store: st,
		cfg:   cfg,
		tabs:  []string{"Sessions", "Bests"},
	}
	ctx := context.Background()
	var err error
	if m.sessions, err = st.ListSessions(ctx, cfg); err != nil {
		m.errMsg = err.Error()
	}
	if m.bests, err = st.ListBests(ctx); err != nil {
		m.errMsg = err.Error()
	}
	m.sessionTable = buildTable(sessionColumns(m.sessions), sessionRows(m.sessions))
	m.bestTable = buildTable(bestColumns(m.bests), bestRows(m.bests))
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		height := m.height - 8
		if height < 3 {
			height = 3
		}
		m.sessionTable.SetHeight(height)
		m.bestTable.SetHeight(height)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "tab", "right", "l":
			m.activeTab = (m.activeTab + 1) % len(m.tabs)
			return m, nil
		case "shift+tab", "left", "h":
			m.activeTab = (m.activeTab + len(m.tabs) - 1) % len(m.tabs)
			return m, nil
		}
	}
	var cmd tea.Cmd
	switch m.activeTab {
	case tabSessions:
		m.sessionTable, cmd = m.sessionTable.Update(msg)
	case tabBests:
		m.bestTable, cmd = m.bestTable.Update(msg)
	}
	return m, cmd
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.errMsg != "" {
		return errorStyle.Render("error: "+m.errMsg) + "\n"
	}
	var b strings.Builder
	nav := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		style := inactiveNavStyle
		if i == m.activeTab {
			style = activeNavStyle
		}
		nav = append(nav, style.Render(tab))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, nav...))
	b.WriteString("\n")
	b.WriteString(m.summaryLine())
	b.WriteString("\n\n")
	switch m.activeTab {
	case tabSessions:
		b.WriteString(m.sessionTable.View())
	case tabBests:
		b.WriteString(m.bestTable.View())
	}
	b.WriteString("\n")
	b.WriteString(headerStyle.Render("tab switch · ↑/↓ scroll · q quit"))
	return b.String()
}

func (m *Model) summaryLine() string {
	if len(m.sessions) == 0 {
		return headerStyle.Render("No sessions yet.")
	}
	var scoreSum, accSum float64
	best := 0.0
	scores := make([]float64, 0, len(m.sessions))
	for _, s := range m.sessions {
		scoreSum += s.Score
		accSum += s.Accuracy
		if s.Score > best {
			best = s.Score
		}
		scores = append(scores, s.Score)
	}
	n := float64(len(m.sessions))
	line := fmt.Sprintf("Sessions %d · Avg score %.0f · Best %.0f · Avg acc %.1f%%",
		len(m.sessions), scoreSum/n, best, accSum/n)
	if spark := analysis.Sparkline(scores, 32); spark != "" {
		line += "  " + sparkStyle.Render(spark)
	}
	return headerStyle.Render(line)
}

func buildTable(cols []table.Column, rows []table.Row) table.Model {
	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(true),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true).Foreground(lipgloss.Color("#F0F0F0"))
	styles.Selected = styles.Selected.Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	t.SetStyles(styles)
	return t
}

func sessionColumns(sessions []model.SessionRecord) []table.Column {
	cols := []table.Column{
		{Title: "Date", Width: 16},
		{Title: "Level", Width: 12},
		{Title: "Diff", Width: 6},
		{Title: "Score", Width: 7},
		{Title: "Acc", Width: 6},
		{Title: "Combo", Width: 5},
		{Title: "Miss", Width: 4},
		{Title: "Trend", Width: 9},
	}
	return fitColumns(cols, sessionRows(sessions))
}

func sessionRows(sessions []model.SessionRecord) []table.Row {
	rows := make([]table.Row, 0, len(sessions))
	// Newest first for browsing.
	for i := len(sessions) - 1; i >= 0; i-- {
		s := sessions[i]
		rows = append(rows, table.Row{
			s.EndedAt.Local().Format("2006-01-02 15:04"),
			s.Level,
			s.Difficulty,
			fmt.Sprintf("%.0f", s.Score),
			fmt.Sprintf("%.1f", s.Accuracy),
			fmt.Sprintf("%d", s.MaxCombo),
			fmt.Sprintf("%d", s.Misses),
			s.Trend,
		})
	}
	return rows
}

func bestColumns(bests []model.BestScore) []table.Column {
	cols := []table.Column{
		{Title: "Level", Width: 12},
		{Title: "Diff", Width: 6},
		{Title: "Score", Width: 7},
		{Title: "Acc", Width: 6},
		{Title: "Achieved", Width: 16},
	}
	return fitColumns(cols, bestRows(bests))
}

func bestRows(bests []model.BestScore) []table.Row {
	rows := make([]table.Row, 0, len(bests))
	for _, b := range bests {
		rows = append(rows, table.Row{
			b.Level,
			b.Difficulty,
			fmt.Sprintf("%.0f", b.Score),
			fmt.Sprintf("%.1f", b.Accuracy),
			b.AchievedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return rows
}

// fitColumns widens columns to their longest cell so nothing truncates.
func fitColumns(cols []table.Column, rows []table.Row) []table.Column {
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(cols) {
				break
			}
			if w := runewidth.StringWidth(cell); w > cols[i].Width {
				cols[i].Width = w
			}
		}
	}
	return cols
}
