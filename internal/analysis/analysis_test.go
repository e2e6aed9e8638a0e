package analysis

import (
	"math"
	"strings"
	"testing"

	"github.com/jdlr/tatum/internal/model"
)

func hit(offset float64, score int) model.HitEvent {
	return model.HitEvent{OffsetMs: offset, Score: score, Miss: score == 0}
}

func TestSummarizeEmptyHistory(t *testing.T) {
	sum := Summarize(nil)
	if sum.Trend != model.TrendStable {
		t.Fatalf("empty history defaults to stable, got %s", sum.Trend)
	}
	if sum.Misses != 0 || sum.Perfects != 0 {
		t.Fatalf("unexpected counts for empty history: %+v", sum)
	}
}

func TestSummarizeBiasRates(t *testing.T) {
	history := []model.HitEvent{
		hit(-30, 80), // early
		hit(-20, 85), // early
		hit(5, 98),   // centered
		hit(25, 75),  // late
	}
	sum := Summarize(history)
	if math.Abs(sum.EarlyRatePct-50) > 1e-9 {
		t.Fatalf("expected 50%% early, got %.1f", sum.EarlyRatePct)
	}
	if math.Abs(sum.LateRatePct-25) > 1e-9 {
		t.Fatalf("expected 25%% late, got %.1f", sum.LateRatePct)
	}
	if sum.Perfects != 1 {
		t.Fatalf("expected 1 perfect, got %d", sum.Perfects)
	}
}

func TestSummarizeMissPartition(t *testing.T) {
	history := []model.HitEvent{
		{Miss: true, WrongHand: true, Beat: 2},   // downbeat
		{Miss: true, WrongHand: true, Beat: 1.5}, // offbeat
		{Miss: true, WrongHand: true, Beat: 3.5}, // offbeat
		{Miss: true, Stray: true, Beat: 0.7},     // stray, not partitioned
		hit(0, 100),
	}
	sum := Summarize(history)
	if sum.Misses != 4 {
		t.Fatalf("expected 4 misses, got %d", sum.Misses)
	}
	if sum.DownbeatMisses != 1 || sum.OffbeatMisses != 2 {
		t.Fatalf("unexpected partition: down %d off %d", sum.DownbeatMisses, sum.OffbeatMisses)
	}
}

func TestTrendImproving(t *testing.T) {
	history := []model.HitEvent{
		hit(40, 70), hit(42, 70), hit(38, 70),
		hit(10, 98), hit(8, 98), hit(12, 98),
	}
	if got := Summarize(history).Trend; got != model.TrendImproving {
		t.Fatalf("expected improving, got %s", got)
	}
}

func TestTrendDegrading(t *testing.T) {
	history := []model.HitEvent{
		hit(10, 98), hit(8, 98), hit(12, 98),
		hit(40, 70), hit(42, 70), hit(38, 70),
	}
	if got := Summarize(history).Trend; got != model.TrendDegrading {
		t.Fatalf("expected degrading, got %s", got)
	}
}

func TestTrendStableWhenShort(t *testing.T) {
	history := []model.HitEvent{
		hit(40, 70), hit(42, 70), hit(8, 98), hit(10, 98),
	}
	if got := Summarize(history).Trend; got != model.TrendStable {
		t.Fatalf("fewer than 5 events must be stable, got %s", got)
	}
}

func TestTrendStableWhenFlat(t *testing.T) {
	history := []model.HitEvent{
		hit(20, 90), hit(21, 90), hit(19, 90),
		hit(20, 90), hit(22, 90), hit(18, 90),
	}
	if got := Summarize(history).Trend; got != model.TrendStable {
		t.Fatalf("expected stable, got %s", got)
	}
}

func TestAverageAccuracyIncludesMisses(t *testing.T) {
	history := []model.HitEvent{hit(0, 100), {Miss: true, Stray: true}}
	sum := Summarize(history)
	if math.Abs(sum.AverageAccuracy-50) > 1e-9 {
		t.Fatalf("expected 50, got %.2f", sum.AverageAccuracy)
	}
}

func TestOffsetSparkline(t *testing.T) {
	history := []model.HitEvent{hit(0, 100), hit(50, 60), hit(100, 40)}
	spark := OffsetSparkline(history, 10)
	if len(spark) != 3 {
		t.Fatalf("expected 3 cells, got %d", len(spark))
	}
	if spark[0] != sparkChars[0] {
		t.Fatalf("smallest offset should map to the lowest glyph")
	}
	if spark[2] != sparkChars[len(sparkChars)-1] {
		t.Fatalf("largest offset should map to the highest glyph")
	}
}

func TestOffsetSparklineResamples(t *testing.T) {
	var history []model.HitEvent
	for i := 0; i < 40; i++ {
		history = append(history, hit(float64(i), 80))
	}
	spark := OffsetSparkline(history, 8)
	if len(spark) != 8 {
		t.Fatalf("expected resample to width 8, got %d", len(spark))
	}
}

func TestRenderSummary(t *testing.T) {
	stats := model.SessionStats{
		TotalScore: 1234, Accuracy: 87.5, MaxCombo: 14,
		Perfects: 10, Greats: 3, Goods: 1, Misses: 2,
		History: []model.HitEvent{hit(5, 98)},
	}
	sum := Summarize(stats.History)
	var b strings.Builder
	if err := RenderSummary(&b, stats, sum); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := b.String()
	for _, want := range []string{"Score: 1234", "Max combo: 14", "Trend:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary output missing %q:\n%s", want, out)
		}
	}
}
