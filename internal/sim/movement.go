package sim

import "swarmops-sim/internal/world"

// updateHostile advances one hostile along its motion pattern.
// Integration clamps to the world rectangle like every moving update.
func (s *Simulator) updateHostile(d *world.Drone, dt float64) {
	if d.Pattern.Kind == world.PatternNone {
		d.Vel = world.Vec2{}
		return
	}
	prev := d.Pos
	d.Pos, d.Pattern = d.Pattern.Step(d.Pos, d.Speed, dt)
	d.Pos = s.world.Clamp(d.Pos)
	d.Vel = d.Pos.Sub(prev).Scale(1 / dt)
}

// updateMoving advances a drone in moving or returning mode straight
// toward its target and handles arrival.
func (s *Simulator) updateMoving(d *world.Drone, dt float64) {
	if d.Target == nil {
		d.Mode = world.ModeIdle
		d.Vel = world.Vec2{}
		return
	}
	target := *d.Target
	if d.Pos.Dist(target) <= s.cfg.Sim.ArrivalThreshold || s.stepToward(d, target, dt) {
		s.arrive(d, target)
	}
}

// stepToward advances d one tick straight toward aim, never
// overshooting, and refreshes velocity. Returns true when aim was
// reached this tick.
func (s *Simulator) stepToward(d *world.Drone, aim world.Vec2, dt float64) bool {
	delta := aim.Sub(d.Pos)
	dist := delta.Len()
	step := d.Speed * dt
	if dist <= step {
		prev := d.Pos
		d.Pos = s.world.Clamp(aim)
		d.Vel = d.Pos.Sub(prev).Scale(1 / dt)
		return true
	}
	d.Vel = delta.Scale(1 / dist).Scale(d.Speed)
	d.Pos = s.world.Clamp(d.Pos.Add(d.Vel.Scale(dt)))
	return false
}

// arrive snaps d onto its destination, then either parks it in its
// group or releases it to idle.
func (s *Simulator) arrive(d *world.Drone, target world.Vec2) {
	d.Pos = s.world.Clamp(target)
	d.Vel = world.Vec2{}
	if d.GroupID != nil {
		g, ok := s.world.Groups[*d.GroupID]
		if ok {
			// stays moving until the whole group resolves
			g.Arrived[d.ID] = true
			return
		}
		d.GroupID = nil
	}
	d.Target = nil
	d.Mode = world.ModeIdle
}
