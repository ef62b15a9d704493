package sim

import "swarmops-sim/internal/world"

// ClockControls bundles the engine callbacks an interactive writer may
// invoke to steer the simulation clock.
type ClockControls struct {
	SetPaused    func(bool)
	SetDirection func(world.Direction)
	JumpBack     func() int64
}

// Controller allows setting clock-control callbacks on a writer.
type Controller interface {
	SetControls(ClockControls)
}
