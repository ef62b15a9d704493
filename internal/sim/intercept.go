package sim

import "swarmops-sim/internal/world"

// planIntercept scans the prediction horizon for the earliest time the
// drone can reach the hostile's future position. It accepts the first
// sample t where the travel time fits within t plus one scan step, so
// the result is within one step of the true earliest rendezvous.
func (s *Simulator) planIntercept(d, hostile *world.Drone) (world.Vec2, float64, bool) {
	if d.Speed <= 0 {
		return world.Vec2{}, 0, false
	}
	step := s.cfg.Intercept.StepS
	horizon := s.cfg.Intercept.HorizonS
	for t := 0.0; t <= horizon+1e-9; t += step {
		p := hostile.Pattern.Predict(hostile.Pos, hostile.Speed, t)
		needed := d.Pos.Dist(p) / d.Speed
		if needed <= t+step {
			return p, t, true
		}
	}
	return world.Vec2{}, 0, false
}

// updateIntercepting steers a drone toward its cached rendezvous point,
// replanning when the prediction drifts or the ETA elapses. With no
// feasible rendezvous inside the horizon the drone degrades to pure
// pursuit of the hostile's current position. Interception never ends on
// its own; only collision, retasking, or target loss clears it.
func (s *Simulator) updateIntercepting(d *world.Drone, dt float64) {
	hostile, ok := s.world.Drones[d.InterceptTargetID]
	if !ok || hostile.Team != world.TeamEnemy {
		d.InterceptTargetID = ""
		d.InterceptPoint = nil
		d.InterceptETA = 0
		d.Mode = world.ModeIdle
		d.Vel = world.Vec2{}
		return
	}

	replan := d.InterceptPoint == nil || d.InterceptETA <= 0
	if !replan {
		drift := hostile.Pattern.Predict(hostile.Pos, hostile.Speed, d.InterceptETA).Dist(*d.InterceptPoint)
		replan = drift > s.cfg.Intercept.ReplanDrift
	}
	if replan {
		if p, eta, ok := s.planIntercept(d, hostile); ok {
			cp := p
			d.InterceptPoint = &cp
			d.InterceptETA = eta
		} else {
			d.InterceptPoint = nil
			d.InterceptETA = 0
		}
	}

	aim := hostile.Pos // pure pursuit fallback
	if d.InterceptPoint != nil {
		aim = *d.InterceptPoint
	}
	s.stepToward(d, aim, dt)
	if d.InterceptETA > 0 {
		d.InterceptETA -= dt
	}
}
