// Package level provides the pattern catalog: built-in percussion
// patterns plus user-supplied TOML level files.
package level

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jdlr/tatum/internal/model"
)

// builtins are ordered roughly by difficulty of execution.
var builtins = []model.Pattern{
	{
		ID: "quarters", Name: "Quarter notes", Tempo: 100, LoopBeats: 4,
		Notes: []model.NoteEvent{
			{Beat: 0, Hand: model.HandAny},
			{Beat: 1, Hand: model.HandAny},
			{Beat: 2, Hand: model.HandAny},
			{Beat: 3, Hand: model.HandAny},
		},
	},
	{
		ID: "alternating", Name: "Alternating eighths", Tempo: 100, LoopBeats: 4,
		Notes: []model.NoteEvent{
			{Beat: 0, Hand: model.HandRight},
			{Beat: 0.5, Hand: model.HandLeft},
			{Beat: 1, Hand: model.HandRight},
			{Beat: 1.5, Hand: model.HandLeft},
			{Beat: 2, Hand: model.HandRight},
			{Beat: 2.5, Hand: model.HandLeft},
			{Beat: 3, Hand: model.HandRight},
			{Beat: 3.5, Hand: model.HandLeft},
		},
	},
	{
		ID: "offbeats", Name: "Offbeats", Tempo: 110, LoopBeats: 4,
		Notes: []model.NoteEvent{
			{Beat: 0.5, Hand: model.HandAny},
			{Beat: 1.5, Hand: model.HandAny},
			{Beat: 2.5, Hand: model.HandAny},
			{Beat: 3.5, Hand: model.HandAny},
		},
	},
	{
		ID: "paradiddle", Name: "Single paradiddle", Tempo: 90, LoopBeats: 4,
		Notes: []model.NoteEvent{
			{Beat: 0, Hand: model.HandRight},
			{Beat: 0.5, Hand: model.HandLeft},
			{Beat: 1, Hand: model.HandRight},
			{Beat: 1.5, Hand: model.HandRight},
			{Beat: 2, Hand: model.HandLeft},
			{Beat: 2.5, Hand: model.HandRight},
			{Beat: 3, Hand: model.HandLeft},
			{Beat: 3.5, Hand: model.HandLeft},
		},
	},
	{
		ID: "clave", Name: "Son clave", Tempo: 95, LoopBeats: 8,
		Notes: []model.NoteEvent{
			{Beat: 0, Hand: model.HandRight},
			{Beat: 1.5, Hand: model.HandRight},
			{Beat: 3, Hand: model.HandRight},
			{Beat: 5, Hand: model.HandLeft},
			{Beat: 6, Hand: model.HandLeft},
		},
	},
}

// filePattern maps the TOML level file layout.
type filePattern struct {
	ID        string     `toml:"id"`
	Name      string     `toml:"name"`
	Tempo     float64    `toml:"tempo"`
	LoopBeats float64    `toml:"loop-beats"`
	Notes     []fileNote `toml:"note"`
}

type fileNote struct {
	Beat float64 `toml:"beat"`
	Hand string  `toml:"hand"`
}

// List returns all available patterns: built-ins followed by any valid
// TOML levels found in dir, ordered by ID. A missing dir is not an
// error.
func List(dir string) ([]model.Pattern, error) {
	out := append([]model.Pattern(nil), builtins...)
	loaded, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}
	out = append(out, loaded...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Load resolves a pattern by ID, preferring built-ins over files.
func Load(id, dir string) (model.Pattern, error) {
	for _, p := range builtins {
		if p.ID == id {
			return p, nil
		}
	}
	loaded, err := LoadDir(dir)
	if err != nil {
		return model.Pattern{}, err
	}
	for _, p := range loaded {
		if p.ID == id {
			return p, nil
		}
	}
	return model.Pattern{}, fmt.Errorf("unknown level %q", id)
}

// LoadDir reads every .toml level file in dir. A missing dir yields an
// empty list.
func LoadDir(dir string) ([]model.Pattern, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read level directory: %w", err)
	}
	var out []model.Pattern
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		p, err := LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// LoadFile decodes and validates a single TOML level file.
func LoadFile(path string) (model.Pattern, error) {
	var fp filePattern
	if _, err := toml.DecodeFile(path, &fp); err != nil {
		return model.Pattern{}, fmt.Errorf("failed to decode level %s: %w", path, err)
	}
	if fp.ID == "" {
		fp.ID = strings.TrimSuffix(filepath.Base(path), ".toml")
	}
	if fp.Name == "" {
		fp.Name = fp.ID
	}
	p := model.Pattern{ID: fp.ID, Name: fp.Name, Tempo: fp.Tempo, LoopBeats: fp.LoopBeats}
	for _, n := range fp.Notes {
		hand, err := parseHand(n.Hand)
		if err != nil {
			return model.Pattern{}, fmt.Errorf("level %s: %w", path, err)
		}
		p.Notes = append(p.Notes, model.NoteEvent{Beat: n.Beat, Hand: hand})
	}
	if err := Validate(p); err != nil {
		return model.Pattern{}, fmt.Errorf("level %s: %w", path, err)
	}
	return p, nil
}

// Validate enforces the pattern invariants: non-empty ascending notes
// inside a positive loop.
func Validate(p model.Pattern) error {
	if len(p.Notes) == 0 {
		return fmt.Errorf("pattern %q has no notes", p.ID)
	}
	if p.LoopBeats <= 0 {
		return fmt.Errorf("pattern %q loop-beats must be positive", p.ID)
	}
	if p.Tempo <= 0 {
		return fmt.Errorf("pattern %q tempo must be positive", p.ID)
	}
	prev := -1.0
	for i, n := range p.Notes {
		if n.Beat < 0 {
			return fmt.Errorf("pattern %q note %d: beat must be >= 0", p.ID, i)
		}
		if n.Beat <= prev {
			return fmt.Errorf("pattern %q note %d: beats must be strictly ascending", p.ID, i)
		}
		prev = n.Beat
	}
	if last := p.Notes[len(p.Notes)-1].Beat; last > p.LoopBeats {
		return fmt.Errorf("pattern %q: last beat %.3g exceeds loop-beats %.3g", p.ID, last, p.LoopBeats)
	}
	return nil
}

func parseHand(s string) (model.Hand, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left", "l":
		return model.HandLeft, nil
	case "right", "r":
		return model.HandRight, nil
	case "any", "":
		return model.HandAny, nil
	default:
		return 0, fmt.Errorf("unknown hand %q", s)
	}
}
