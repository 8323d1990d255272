package system

import (
	"time"

	"github.com/duskwatch/server/internal/core/event"
	coresys "github.com/duskwatch/server/internal/core/system"
	"github.com/duskwatch/server/internal/geom"
	"github.com/duskwatch/server/internal/world"
	"go.uber.org/zap"
)

// Funding is the currency collaborator. Spend must check and deduct in one
// step.
type Funding interface {
	HasSufficient(amount int) bool
	Spend(amount int) bool
}

// BuildConfig holds structure placement settings.
type BuildConfig struct {
	MaxBuildDistance   float64 // in cells
	StructureCost      int
	StructureArchetype string
	PlacementEffect    string // optional transient effect archetype
	PreviewCooldown    time.Duration
}

// Preview is the placement affordance shown while in build mode.
type Preview struct {
	Visible bool
	Pos     geom.Vec2
	Cell    world.Cell
	Verdict world.Verdict
}

// BuildController lets an external actor place structures on the build grid.
// Input arrives through Toggle, Cancel, Aim and ConfirmPlacement; Update
// refreshes the preview once per tick while build mode is on.
// Phase 3 (PostUpdate).
type BuildController struct {
	cfg     BuildConfig
	grid    *world.BuildGrid
	funding Funding
	anchor  Anchor
	world   Instantiator
	bus     *event.Bus
	log     *zap.Logger

	disabled bool
	active   bool
	aim      geom.Vec2
	preview  Preview
	hidden   time.Duration // preview suppressed while > 0
}

func NewBuildController(cfg BuildConfig, grid *world.BuildGrid, funding Funding, anchor Anchor, inst Instantiator, bus *event.Bus, log *zap.Logger) *BuildController {
	c := &BuildController{
		cfg:     cfg,
		grid:    grid,
		funding: funding,
		anchor:  anchor,
		world:   inst,
		bus:     bus,
		log:     log,
	}
	if grid == nil || funding == nil || anchor == nil || inst == nil {
		log.Error("build controller missing collaborators, build mode disabled",
			zap.Bool("grid", grid != nil),
			zap.Bool("funding", funding != nil),
			zap.Bool("anchor", anchor != nil),
			zap.Bool("world", inst != nil))
		c.disabled = true
	}
	return c
}

func (c *BuildController) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (c *BuildController) IsInBuildMode() bool { return c.active }

// Toggle flips build mode.
func (c *BuildController) Toggle() {
	if c.disabled {
		return
	}
	c.setActive(!c.active)
}

// Cancel leaves build mode if it is on.
func (c *BuildController) Cancel() {
	if c.active {
		c.setActive(false)
	}
}

func (c *BuildController) setActive(on bool) {
	c.active = on
	c.hidden = 0
	c.preview = Preview{}
	c.log.Debug("build mode", zap.Bool("active", on))
	event.Emit(c.bus, event.BuildModeChanged{Active: on})
}

// Aim sets the world point the actor is pointing at.
func (c *BuildController) Aim(p geom.Vec2) { c.aim = p }

// Preview returns the affordance computed on the last Update.
func (c *BuildController) Preview() Preview { return c.preview }

func (c *BuildController) Update(dt time.Duration) {
	if !c.active {
		return
	}
	if c.hidden > 0 {
		c.hidden -= dt
		if c.hidden > 0 {
			c.preview.Visible = false
			return
		}
		c.hidden = 0
	}
	p, v := c.evaluate()
	c.preview = Preview{
		Visible: true,
		Pos:     p,
		Cell:    c.grid.CellOf(p),
		Verdict: v,
	}
}

// Check returns the first failing placement check for gridPoint, or
// VerdictOK. Distance, ground, funding and occupancy are evaluated in that
// order.
func (c *BuildController) Check(gridPoint, player geom.Vec2) world.Verdict {
	if c.disabled {
		return world.VerdictInactive
	}
	if !c.grid.InRange(player, gridPoint, c.cfg.MaxBuildDistance) {
		return world.VerdictTooFar
	}
	if !c.grid.IsOnGround(gridPoint) {
		return world.VerdictNoGround
	}
	if !c.funding.HasSufficient(c.cfg.StructureCost) {
		return world.VerdictNoFunds
	}
	if c.grid.IsOccupied(gridPoint) {
		return world.VerdictOccupied
	}
	return world.VerdictOK
}

// CanBuildAt reports whether all four placement checks pass.
func (c *BuildController) CanBuildAt(gridPoint, player geom.Vec2) bool {
	return c.Check(gridPoint, player) == world.VerdictOK
}

// evaluate snaps the current aim and checks it against the live world.
func (c *BuildController) evaluate() (geom.Vec2, world.Verdict) {
	p := c.grid.Snap(c.aim)
	player, ok := c.anchor.PlayerPosition()
	if !ok {
		return p, world.VerdictNoAnchor
	}
	return p, c.Check(p, player)
}

// ConfirmPlacement attempts one placement at the current aim. Every check is
// re-run now, the preview result is not trusted.
func (c *BuildController) ConfirmPlacement() bool {
	if !c.active {
		return false
	}
	p, v := c.evaluate()
	if v == world.VerdictOK && c.cfg.StructureCost > 0 && !c.funding.Spend(c.cfg.StructureCost) {
		v = world.VerdictNoFunds
	}
	cell := c.grid.CellOf(p)
	if v != world.VerdictOK {
		c.log.Debug("placement rejected", zap.Stringer("cell", cell), zap.Stringer("verdict", v))
		event.Emit(c.bus, event.PlacementRejected{Cell: cell, Pos: p, Verdict: v})
		return false
	}

	id := c.world.Instantiate(c.cfg.StructureArchetype, p)
	if c.cfg.PlacementEffect != "" {
		c.world.Instantiate(c.cfg.PlacementEffect, p)
	}
	c.hidden = c.cfg.PreviewCooldown
	c.preview.Visible = false

	c.log.Debug("structure placed",
		zap.String("archetype", c.cfg.StructureArchetype),
		zap.Stringer("cell", cell),
		zap.Int("cost", c.cfg.StructureCost))
	event.Emit(c.bus, event.StructurePlaced{
		Entity:    id,
		Archetype: c.cfg.StructureArchetype,
		Cell:      cell,
		Pos:       p,
		Cost:      c.cfg.StructureCost,
	})
	return true
}
