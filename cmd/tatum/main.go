// Package main provides the CLI entrypoint for tatum.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jdlr/tatum/internal/analysis"
	"github.com/jdlr/tatum/internal/audio"
	"github.com/jdlr/tatum/internal/config"
	"github.com/jdlr/tatum/internal/engine"
	"github.com/jdlr/tatum/internal/level"
	"github.com/jdlr/tatum/internal/model"
	"github.com/jdlr/tatum/internal/statsui"
	"github.com/jdlr/tatum/internal/store"
	"github.com/jdlr/tatum/internal/tui"
)

const (
	defaultLevel      = "alternating"
	defaultDifficulty = "medium"
	defaultDuration   = 30.0
	defaultComboBonus = true
)

var (
	playLevel      string
	playDifficulty string
	playTempo      float64
	playDuration   float64
	playComboBonus bool
	playMute       bool

	statsLevel      string
	statsDifficulty string
	statsSince      string
	statsLast       int
	statsPlot       bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tatum",
		Short:         "Terminal rhythm trainer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPlayCmd,
	}

	rootCmd.Flags().StringVar(&playLevel, "level", defaultLevel, "level id (see: tatum levels)")
	rootCmd.Flags().StringVar(&playDifficulty, "difficulty", defaultDifficulty, "easy, medium, or hard")
	rootCmd.Flags().Float64Var(&playTempo, "tempo", 0, "BPM override (0 = level default)")
	rootCmd.Flags().Float64Var(&playDuration, "duration", defaultDuration, "seconds of scored play")
	rootCmd.Flags().BoolVar(&playComboBonus, "combo-bonus", defaultComboBonus, "scale score by the running combo")
	rootCmd.Flags().BoolVar(&playMute, "mute", false, "disable metronome and guide tones")

	rootCmd.AddCommand(newLevelsCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func runPlayCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "level", &playLevel, fileCfg.Play.Level)
	applyStringConfig(cmd, "difficulty", &playDifficulty, fileCfg.Play.Difficulty)
	applyFloatConfig(cmd, "tempo", &playTempo, fileCfg.Play.Tempo)
	applyFloatConfig(cmd, "duration", &playDuration, fileCfg.Play.Duration)
	applyBoolConfig(cmd, "combo-bonus", &playComboBonus, fileCfg.Play.ComboBonus)
	applyBoolConfig(cmd, "mute", &playMute, fileCfg.Play.Mute)

	difficulty, err := parseDifficulty(playDifficulty)
	if err != nil {
		return err
	}
	cfg := model.PlayConfig{
		Level:      playLevel,
		Difficulty: difficulty,
		Tempo:      playTempo,
		Duration:   playDuration,
		ComboBonus: playComboBonus,
		Mute:       playMute,
	}
	if err := validatePlayConfig(cfg); err != nil {
		return err
	}

	pattern, err := level.Load(cfg.Level, config.DefaultLevelDir())
	if err != nil {
		return levelLoadError(cfg.Level, err)
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	audioEng, err := audio.New(audio.DefaultSampleRate)
	if err != nil {
		return fmt.Errorf("failed to init audio: %w", err)
	}
	defer func() {
		if cerr := audioEng.Close(); cerr != nil {
			logErrf("failed to close audio: %v\n", cerr)
		}
	}()

	var sounder engine.Sounder = audioEng
	if cfg.Mute {
		sounder = engine.NopSounder{}
	}
	session, err := engine.NewSession(engine.Config{
		Pattern:    pattern,
		Window:     model.Windows[cfg.Difficulty],
		Tempo:      cfg.Tempo,
		Duration:   cfg.Duration,
		ComboBonus: cfg.ComboBonus,
	}, audioEng, sounder)
	if err != nil {
		return err
	}

	audioEng.Start()
	playModel := tui.NewModel(cfg, pattern, session, audioEng, audioEng, st)
	program := tea.NewProgram(playModel, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}

	// The alt screen is gone once the TUI exits; repeat the result on
	// stdout so it stays in the scrollback.
	if stats := session.Stats(); len(stats.History) > 0 {
		if err := analysis.RenderSummary(cmd.OutOrStdout(), stats, analysis.Summarize(stats.History)); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}
	return nil
}

func newLevelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "levels",
		Short: "List available levels",
		Args:  cobra.NoArgs,
		RunE:  runLevelsCmd,
	}
}

func runLevelsCmd(cmd *cobra.Command, _ []string) error {
	patterns, err := level.List(config.DefaultLevelDir())
	if err != nil {
		return fmt.Errorf("failed to list levels: %w", err)
	}
	for _, p := range patterns {
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%-14s %-22s %3.0f BPM · %g beats · %d notes\n",
			p.ID, p.Name, p.Tempo, p.LoopBeats, len(p.Notes)); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show session stats and best scores",
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsLevel, "level", "", "level filter")
	cmd.Flags().StringVar(&statsDifficulty, "difficulty", "", "difficulty filter")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N sessions")
	cmd.Flags().BoolVar(&statsPlot, "plot", false, "print a score sparkline instead of the TUI")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	cfg := model.StatsConfig{
		Level:      statsLevel,
		Difficulty: statsDifficulty,
		Since:      sinceTime,
		Last:       statsLast,
		Plot:       statsPlot,
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if cfg.Plot {
		return printScorePlot(cmd, st, cfg)
	}

	statsModel := statsui.NewModel(st, cfg)
	program := tea.NewProgram(statsModel, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func printScorePlot(cmd *cobra.Command, st *store.Store, cfg model.StatsConfig) error {
	sessions, err := st.ListSessions(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "No sessions found.")
		return err
	}
	scores := make([]float64, 0, len(sessions))
	maxScore := 0.0
	for _, s := range sessions {
		scores = append(scores, s.Score)
		if s.Score > maxScore {
			maxScore = s.Score
		}
	}
	width := analysis.TerminalWidth() - 2
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Score over %d sessions (max %.0f):\n %s\n",
		len(sessions), maxScore, analysis.Sparkline(scores, width)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func parseDifficulty(s string) (model.Difficulty, error) {
	d := model.Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := model.Windows[d]; !ok {
		return "", fmt.Errorf("unknown difficulty %q (easy, medium, hard)", s)
	}
	return d, nil
}

func validatePlayConfig(cfg model.PlayConfig) error {
	if cfg.Level == "" {
		return fmt.Errorf("--level must not be empty")
	}
	if cfg.Tempo < 0 {
		return fmt.Errorf("--tempo must be >= 0")
	}
	if cfg.Tempo > 0 && (cfg.Tempo < 20 || cfg.Tempo > 400) {
		return fmt.Errorf("--tempo must be between 20 and 400")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("--duration must be > 0")
	}
	return nil
}

func levelLoadError(id string, err error) error {
	lines := []string{
		fmt.Sprintf("failed to load level %q: %v", id, err),
		"Run: tatum levels",
		fmt.Sprintf("Custom levels go in: %s", config.DefaultLevelDir()),
	}
	return fmt.Errorf("%s", strings.Join(lines, "\n"))
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# tatum configuration
# Uncomment a value to enable it. CLI flags override config values.

[play]
# level = %q          # Level id (see: tatum levels)
# difficulty = %q     # easy, medium, or hard
# tempo = 0           # BPM override (0 = level default)
# duration = %.0f     # Seconds of scored play
# combo-bonus = %v    # Scale score by the running combo
# mute = false        # Disable metronome and guide tones
`,
		defaultLevel,
		defaultDifficulty,
		defaultDuration,
		defaultComboBonus,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
