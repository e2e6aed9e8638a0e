// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jdlr/tatum/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for session and best-score data.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			level TEXT NOT NULL,
			difficulty TEXT NOT NULL,
			tempo REAL NOT NULL,
			duration REAL NOT NULL,
			score REAL NOT NULL,
			max_combo INTEGER NOT NULL,
			accuracy REAL NOT NULL,
			perfects INTEGER NOT NULL,
			greats INTEGER NOT NULL,
			goods INTEGER NOT NULL,
			misses INTEGER NOT NULL,
			early_pct REAL NOT NULL,
			late_pct REAL NOT NULL,
			trend TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS best_scores (
			level TEXT NOT NULL,
			difficulty TEXT NOT NULL,
			score REAL NOT NULL,
			accuracy REAL NOT NULL,
			achieved_at TEXT NOT NULL,
			PRIMARY KEY (level, difficulty)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_level ON sessions(level, difficulty);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertSession stores a finished session and updates the best score
// for its (level, difficulty) when beaten. Returns the session id and
// whether a new best was set.
func (s *Store) InsertSession(ctx context.Context, rec model.SessionRecord) (int64, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (started_at, ended_at, level, difficulty, tempo, duration, score, max_combo, accuracy, perfects, greats, goods, misses, early_pct, late_pct, trend)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.StartedAt.Format(time.RFC3339Nano),
		rec.EndedAt.Format(time.RFC3339Nano),
		rec.Level,
		rec.Difficulty,
		rec.Tempo,
		rec.Duration,
		rec.Score,
		rec.MaxCombo,
		rec.Accuracy,
		rec.Perfects,
		rec.Greats,
		rec.Goods,
		rec.Misses,
		rec.EarlyPct,
		rec.LatePct,
		rec.Trend,
	)
	if err != nil {
		return 0, false, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, false, err
	}

	var prev float64
	improved := false
	row := tx.QueryRowContext(ctx,
		`SELECT score FROM best_scores WHERE level = ? AND difficulty = ?`,
		rec.Level, rec.Difficulty)
	switch err = row.Scan(&prev); err {
	case sql.ErrNoRows:
		improved = true
		err = nil
	case nil:
		improved = rec.Score > prev
	default:
		return 0, false, err
	}
	if improved {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO best_scores (level, difficulty, score, accuracy, achieved_at)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(level, difficulty) DO UPDATE SET score = excluded.score, accuracy = excluded.accuracy, achieved_at = excluded.achieved_at`,
			rec.Level, rec.Difficulty, rec.Score, rec.Accuracy,
			rec.EndedAt.Format(time.RFC3339Nano)); err != nil {
			return 0, false, err
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, false, err
	}
	return id, improved, nil
}

// BestScore returns the stored best for a (level, difficulty) pair, or
// nil when none exists yet.
func (s *Store) BestScore(ctx context.Context, level string, difficulty string) (*model.BestScore, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT level, difficulty, score, accuracy, achieved_at FROM best_scores WHERE level = ? AND difficulty = ?`,
		level, difficulty)
	var best model.BestScore
	var achieved string
	if err := row.Scan(&best.Level, &best.Difficulty, &best.Score, &best.Accuracy, &achieved); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, achieved)
	if err != nil {
		return nil, fmt.Errorf("failed to parse achieved_at: %w", err)
	}
	best.AchievedAt = t
	return &best, nil
}

// ListBests returns all stored bests ordered by level then difficulty.
func (s *Store) ListBests(ctx context.Context) ([]model.BestScore, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT level, difficulty, score, accuracy, achieved_at FROM best_scores ORDER BY level, difficulty`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()
	var out []model.BestScore
	for rows.Next() {
		var best model.BestScore
		var achieved string
		if err := rows.Scan(&best.Level, &best.Difficulty, &best.Score, &best.Accuracy, &achieved); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339Nano, achieved)
		if err != nil {
			return nil, fmt.Errorf("failed to parse achieved_at: %w", err)
		}
		best.AchievedAt = t
		out = append(out, best)
	}
	return out, rows.Err()
}

// ListSessions returns sessions matching the filters, oldest first.
func (s *Store) ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionRecord, error) {
	var conds []string
	var args []any
	if cfg.Level != "" {
		conds = append(conds, "level = ?")
		args = append(args, cfg.Level)
	}
	if cfg.Difficulty != "" {
		conds = append(conds, "difficulty = ?")
		args = append(args, cfg.Difficulty)
	}
	if cfg.Since != nil {
		conds = append(conds, "ended_at >= ?")
		args = append(args, cfg.Since.Format(time.RFC3339Nano))
	}
	query := `SELECT id, started_at, ended_at, level, difficulty, tempo, duration, score, max_combo, accuracy, perfects, greats, goods, misses, early_pct, late_pct, trend FROM sessions`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY ended_at"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var out []model.SessionRecord
	for rows.Next() {
		var rec model.SessionRecord
		var started, ended string
		if err := rows.Scan(&rec.ID, &started, &ended, &rec.Level, &rec.Difficulty, &rec.Tempo, &rec.Duration,
			&rec.Score, &rec.MaxCombo, &rec.Accuracy, &rec.Perfects, &rec.Greats, &rec.Goods, &rec.Misses,
			&rec.EarlyPct, &rec.LatePct, &rec.Trend); err != nil {
			return nil, err
		}
		if rec.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("failed to parse started_at: %w", err)
		}
		if rec.EndedAt, err = time.Parse(time.RFC3339Nano, ended); err != nil {
			return nil, fmt.Errorf("failed to parse ended_at: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if cfg.Last > 0 && len(out) > cfg.Last {
		out = out[len(out)-cfg.Last:]
	}
	return out, nil
}
