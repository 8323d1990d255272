package data

import (
	"fmt"
	"os"
	"time"

	"github.com/duskwatch/server/internal/world"
	"gopkg.in/yaml.v3"
)

// Kind groups archetypes by role.
type Kind string

const (
	KindEnemy     Kind = "enemy"
	KindStructure Kind = "structure"
	KindEffect    Kind = "effect"
)

// Archetype is the static description of something the world can
// instantiate.
type Archetype struct {
	ID       string        `yaml:"id"`
	Name     string        `yaml:"name"`
	Kind     Kind          `yaml:"kind"`
	HalfSize float64       `yaml:"half_size"`
	TTL      time.Duration `yaml:"ttl"` // effects only; 0 = permanent
}

type archetypeListFile struct {
	Archetypes []Archetype `yaml:"archetypes"`
}

// ArchetypeTable holds archetypes indexed by ID.
type ArchetypeTable struct {
	byID map[string]*Archetype
}

// LoadArchetypeTable loads archetype_list.yaml.
func LoadArchetypeTable(path string) (*ArchetypeTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read archetype list: %w", err)
	}
	var f archetypeListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse archetype list: %w", err)
	}
	return NewArchetypeTable(f.Archetypes)
}

// NewArchetypeTable indexes list, rejecting duplicates and unknown kinds.
func NewArchetypeTable(list []Archetype) (*ArchetypeTable, error) {
	t := &ArchetypeTable{byID: make(map[string]*Archetype, len(list))}
	for i := range list {
		a := &list[i]
		if a.ID == "" {
			return nil, fmt.Errorf("archetype %d: id is required", i)
		}
		if _, dup := t.byID[a.ID]; dup {
			return nil, fmt.Errorf("duplicate archetype %q", a.ID)
		}
		switch a.Kind {
		case KindEnemy, KindStructure, KindEffect:
		case "":
			a.Kind = KindEnemy
		default:
			return nil, fmt.Errorf("archetype %q: unknown kind %q", a.ID, a.Kind)
		}
		if a.HalfSize <= 0 {
			a.HalfSize = 0.5
		}
		t.byID[a.ID] = a
	}
	return t, nil
}

// Get returns the archetype with id, or nil.
func (t *ArchetypeTable) Get(id string) *Archetype {
	if t == nil {
		return nil
	}
	return t.byID[id]
}

// Count returns the number of archetypes loaded.
func (t *ArchetypeTable) Count() int {
	if t == nil {
		return 0
	}
	return len(t.byID)
}

// Footprint implements world.FootprintSource.
func (t *ArchetypeTable) Footprint(id string) (world.Footprint, bool) {
	a := t.Get(id)
	if a == nil {
		return world.Footprint{}, false
	}
	fp := world.Footprint{Half: a.HalfSize, TTL: a.TTL}
	switch a.Kind {
	case KindStructure:
		fp.Tag = world.TagStructure
	case KindEffect:
		fp.Tag = world.TagEffect
	default:
		fp.Tag = world.TagEnemy
	}
	return fp, true
}
