package sim

import (
	"math"

	"swarmops-sim/internal/world"
)

// updatePatrolling flies a drone onto its patrol circle, then orbits it
// with the same circular pattern math the hostiles use. Holding drones
// have no controller at all; they were zeroed when tasked.
func (s *Simulator) updatePatrolling(d *world.Drone, dt float64) {
	p := d.Pattern
	if p.Kind != world.PatternCircular || p.Radius <= 0 {
		d.Mode = world.ModeIdle
		d.Vel = world.Vec2{}
		return
	}

	offset := d.Pos.Sub(p.Center)
	if math.Abs(offset.Len()-p.Radius) > s.cfg.Sim.ArrivalThreshold {
		// transit stage: head for the nearest point on the circle
		aim := p.Center.Add(world.Vec2{X: p.Radius})
		if offset.Len() > 0 {
			aim = p.Center.Add(offset.Norm().Scale(p.Radius))
		}
		s.stepToward(d, aim, dt)
		return
	}

	d.Pattern.AngularPos = math.Atan2(offset.Y, offset.X)
	prev := d.Pos
	d.Pos, d.Pattern = d.Pattern.Step(d.Pos, d.Speed, dt)
	d.Pos = s.world.Clamp(d.Pos)
	d.Vel = d.Pos.Sub(prev).Scale(1 / dt)
}
