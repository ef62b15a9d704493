package sim

import (
	"math"

	"swarmops-sim/internal/world"
)

// updateTailing keeps a drone at its standoff distance from the tailed
// hostile. Inside the dead zone the drone holds still, so a stationary
// pair stays bit-identical over any number of ticks.
func (s *Simulator) updateTailing(d *world.Drone, dt float64) {
	hostile, ok := s.world.Drones[d.TailTargetID]
	if !ok || hostile.Team != world.TeamEnemy {
		d.TailTargetID = ""
		d.TailStandoff = 0
		d.Mode = world.ModeIdle
		d.Vel = world.Vec2{}
		return
	}

	err := d.Pos.Dist(hostile.Pos) - d.TailStandoff
	if math.Abs(err) <= s.cfg.Tail.DeadZone {
		d.Vel = world.Vec2{}
		return
	}

	offset := hostile.Pos.Sub(d.Pos)
	if offset.Len() == 0 {
		// coincident with the hostile; no away direction exists
		d.Vel = world.Vec2{}
		return
	}
	unit := offset.Norm()
	if err < 0 {
		unit = unit.Scale(-1)
	}
	// never cross the dead zone in one tick
	step := math.Min(d.Speed*dt, math.Abs(err))
	prev := d.Pos
	d.Pos = s.world.Clamp(d.Pos.Add(unit.Scale(step)))
	d.Vel = d.Pos.Sub(prev).Scale(1 / dt)
}
