package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: apply queued commands (build mode, autopilot)
	PhasePreUpdate               // 1: move anchors, refresh camera view volume
	PhaseUpdate                  // 2: phase clock, encounter scheduling
	PhasePostUpdate              // 3: build preview, lifetimes
	PhasePersist                 // 4: telemetry flush
	PhaseCleanup                 // 5: destroy queued entities
)

// System is the interface every per-tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
