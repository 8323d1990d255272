package data

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/duskwatch/server/internal/world"
	"gopkg.in/yaml.v3"
)

// WaveDefinition is a burst of same-archetype spawns.
type WaveDefinition struct {
	Archetype     string        `yaml:"archetype"`
	Count         int           `yaml:"count"`
	SpawnInterval time.Duration `yaml:"spawn_interval"`
}

// PhaseWaveTable is the ordered wave list run when a phase begins.
type PhaseWaveTable struct {
	Phase            world.Phase      `yaml:"phase"`
	TimeBetweenWaves time.Duration    `yaml:"time_between_waves"`
	Waves            []WaveDefinition `yaml:"waves"`
}

// TotalSpawns returns the number of spawn requests the table issues.
func (t *PhaseWaveTable) TotalSpawns() int {
	n := 0
	for _, w := range t.Waves {
		n += w.Count
	}
	return n
}

// Duration returns how long a full run of the table takes with
// wait-then-spawn pacing.
func (t *PhaseWaveTable) Duration() time.Duration {
	var d time.Duration
	for i, w := range t.Waves {
		d += time.Duration(w.Count) * w.SpawnInterval
		if i < len(t.Waves)-1 {
			d += t.TimeBetweenWaves
		}
	}
	return d
}

type waveListFile struct {
	Phases []PhaseWaveTable `yaml:"phases"`
}

// WaveTables holds at most one table per phase. Read-only after load.
type WaveTables struct {
	tables map[world.Phase]*PhaseWaveTable
}

// NewWaveTables validates and indexes tables.
func NewWaveTables(tables []PhaseWaveTable) (*WaveTables, error) {
	wt := &WaveTables{tables: make(map[world.Phase]*PhaseWaveTable, len(tables))}
	for i := range tables {
		t := &tables[i]
		if _, dup := wt.tables[t.Phase]; dup {
			return nil, fmt.Errorf("duplicate wave table for phase %s", t.Phase)
		}
		if err := t.validate(); err != nil {
			return nil, fmt.Errorf("phase %s: %w", t.Phase, err)
		}
		wt.tables[t.Phase] = t
	}
	return wt, nil
}

func (t *PhaseWaveTable) validate() error {
	if t.TimeBetweenWaves < 0 {
		return errors.New("time_between_waves must not be negative")
	}
	for i, w := range t.Waves {
		switch {
		case w.Archetype == "":
			return fmt.Errorf("wave %d: archetype is required", i)
		case w.Count <= 0:
			return fmt.Errorf("wave %d: count must be positive", i)
		case w.SpawnInterval <= 0:
			return fmt.Errorf("wave %d: spawn_interval must be positive", i)
		}
	}
	return nil
}

// LoadWaveTables loads wave_list.yaml.
func LoadWaveTables(path string) (*WaveTables, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read wave list: %w", err)
	}
	var f waveListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse wave list: %w", err)
	}
	return NewWaveTables(f.Phases)
}

// Get returns the table for phase, or nil if the phase has none.
func (t *WaveTables) Get(phase world.Phase) *PhaseWaveTable {
	if t == nil {
		return nil
	}
	return t.tables[phase]
}

// Count returns the number of phases with a table.
func (t *WaveTables) Count() int {
	if t == nil {
		return 0
	}
	return len(t.tables)
}

// Archetypes returns every archetype referenced by any wave.
func (t *WaveTables) Archetypes() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range world.Phases {
		tbl := t.Get(p)
		if tbl == nil {
			continue
		}
		for _, w := range tbl.Waves {
			if _, ok := seen[w.Archetype]; !ok {
				seen[w.Archetype] = struct{}{}
				out = append(out, w.Archetype)
			}
		}
	}
	return out
}
