package analysis

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/jdlr/tatum/internal/model"
)

const sparkChars = " .:-=+*#%@"

const terminalWidthBackup = 80

// TerminalWidth returns the current terminal width, or a backup value
// when stdout is not a terminal.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

// OffsetSparkline renders the absolute timing offsets of a history as a
// single-line sparkline, resampled to the given width. Lower is better.
func OffsetSparkline(history []model.HitEvent, width int) string {
	values := make([]float64, 0, len(history))
	for _, ev := range history {
		if ev.Stray {
			continue
		}
		values = append(values, math.Abs(ev.OffsetMs))
	}
	return Sparkline(values, width)
}

// Sparkline renders values as a single-line strip scaled to their max,
// resampled to the given width when longer.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 {
		return ""
	}
	if width > 0 && len(values) > width {
		values = resample(values, width)
	}
	maxVal := values[0]
	for _, v := range values[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	if maxVal < 1e-9 {
		return strings.Repeat(string(sparkChars[0]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		idx := int(math.Round(v / maxVal * float64(len(sparkChars)-1)))
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

func resample(values []float64, width int) []float64 {
	out := make([]float64, width)
	for i := 0; i < width; i++ {
		lo := i * len(values) / width
		hi := (i + 1) * len(values) / width
		if hi <= lo {
			hi = lo + 1
		}
		var sum float64
		for _, v := range values[lo:hi] {
			sum += v
		}
		out[i] = sum / float64(hi-lo)
	}
	return out
}

// RenderSummary prints a session result with its analysis to w.
func RenderSummary(w io.Writer, stats model.SessionStats, sum model.AnalysisSummary) error {
	lines := []string{
		fmt.Sprintf("Score: %.0f", stats.TotalScore),
		fmt.Sprintf("Accuracy: %.1f%%", stats.Accuracy),
		fmt.Sprintf("Max combo: %d", stats.MaxCombo),
		fmt.Sprintf("Perfect %d · Great %d · Good %d · Miss %d",
			stats.Perfects, stats.Greats, stats.Goods, stats.Misses),
		fmt.Sprintf("Early %.0f%% · Late %.0f%%", sum.EarlyRatePct, sum.LateRatePct),
		fmt.Sprintf("Missed on beat %d · off beat %d", sum.DownbeatMisses, sum.OffbeatMisses),
		fmt.Sprintf("Trend: %s", sum.Trend),
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if spark := OffsetSparkline(stats.History, TerminalWidth()-8); spark != "" {
		if _, err := fmt.Fprintf(w, "Offsets %s\n", spark); err != nil {
			return err
		}
	}
	return nil
}
