package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jdlr/tatum/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "tatum.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func record(level string, difficulty string, score float64, ended time.Time) model.SessionRecord {
	return model.SessionRecord{
		StartedAt:  ended.Add(-32 * time.Second),
		EndedAt:    ended,
		Level:      level,
		Difficulty: difficulty,
		Tempo:      100,
		Duration:   30,
		Score:      score,
		MaxCombo:   12,
		Accuracy:   88.5,
		Perfects:   20,
		Greats:     5,
		Goods:      2,
		Misses:     3,
		EarlyPct:   10,
		LatePct:    35,
		Trend:      model.TrendImproving,
	}
}

func TestInsertSessionUpdatesBestOnlyOnImprovement(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Unix(1700000000, 0).UTC()

	_, improved, err := st.InsertSession(ctx, record("clave", "medium", 1000, base))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !improved {
		t.Fatalf("first session must set a best")
	}

	_, improved, err = st.InsertSession(ctx, record("clave", "medium", 900, base.Add(time.Minute)))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if improved {
		t.Fatalf("lower score must not replace the best")
	}

	_, improved, err = st.InsertSession(ctx, record("clave", "medium", 1200, base.Add(2*time.Minute)))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !improved {
		t.Fatalf("higher score must replace the best")
	}

	best, err := st.BestScore(ctx, "clave", "medium")
	if err != nil {
		t.Fatalf("best: %v", err)
	}
	if best == nil || best.Score != 1200 {
		t.Fatalf("expected best 1200, got %+v", best)
	}
}

func TestBestScoreKeyedByLevelAndDifficulty(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Unix(1700000000, 0).UTC()

	if _, _, err := st.InsertSession(ctx, record("clave", "easy", 500, base)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, _, err := st.InsertSession(ctx, record("clave", "hard", 300, base)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	best, err := st.BestScore(ctx, "clave", "hard")
	if err != nil {
		t.Fatalf("best: %v", err)
	}
	if best == nil || best.Score != 300 {
		t.Fatalf("expected hard best 300, got %+v", best)
	}
	if missing, err := st.BestScore(ctx, "clave", "medium"); err != nil || missing != nil {
		t.Fatalf("expected no medium best, got %+v err %v", missing, err)
	}

	bests, err := st.ListBests(ctx)
	if err != nil {
		t.Fatalf("list bests: %v", err)
	}
	if len(bests) != 2 {
		t.Fatalf("expected 2 bests, got %d", len(bests))
	}
}

func TestListSessionsFilters(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Unix(1700000000, 0).UTC()

	for i := 0; i < 5; i++ {
		level := "clave"
		if i%2 == 1 {
			level = "offbeats"
		}
		if _, _, err := st.InsertSession(ctx, record(level, "medium", float64(100*i), base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	all, err := st.ListSessions(ctx, model.StatsConfig{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 sessions, got %d", len(all))
	}
	if !all[0].EndedAt.Before(all[4].EndedAt) {
		t.Fatalf("sessions must be ordered oldest first")
	}

	clave, err := st.ListSessions(ctx, model.StatsConfig{Level: "clave"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(clave) != 3 {
		t.Fatalf("expected 3 clave sessions, got %d", len(clave))
	}

	since := base.Add(90 * time.Minute)
	recent, err := st.ListSessions(ctx, model.StatsConfig{Since: &since})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 sessions since cutoff, got %d", len(recent))
	}

	last, err := st.ListSessions(ctx, model.StatsConfig{Last: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(last) != 2 || last[1].Score != 400 {
		t.Fatalf("expected the 2 most recent sessions, got %+v", last)
	}

	rec := all[0]
	if rec.Trend != model.TrendImproving || rec.MaxCombo != 12 || rec.Accuracy != 88.5 {
		t.Fatalf("round-tripped record mismatch: %+v", rec)
	}
}
