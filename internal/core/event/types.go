package event

import (
	"github.com/duskwatch/server/internal/core/ecs"
	"github.com/duskwatch/server/internal/geom"
	"github.com/duskwatch/server/internal/world"
)

// Clock notifications.

type PhaseChanged struct {
	Phase world.Phase
	Day   int
}

type DayChanged struct {
	Day int
}

type BloodMoonStarted struct {
	Day int
}

// Encounter scheduling.

type WaveStarted struct {
	RunID     uint64
	Phase     world.Phase
	Wave      int // 0-based index into the phase table
	Archetype string
	Count     int
}

type RunCompleted struct {
	RunID uint64
	Phase world.Phase
}

type EnemySpawned struct {
	Entity    ecs.EntityID
	Archetype string
	Pos       geom.Vec2
}

// SpawnSkipped is emitted when no off-screen point was found in budget.
type SpawnSkipped struct {
	Archetype string
	Attempts  int
}

// Build mode.

type BuildModeChanged struct {
	Active bool
}

type StructurePlaced struct {
	Entity    ecs.EntityID
	Archetype string
	Cell      world.Cell
	Pos       geom.Vec2
	Cost      int
}

type PlacementRejected struct {
	Cell    world.Cell
	Pos     geom.Vec2
	Verdict world.Verdict
}
