package sim

import "swarmops-sim/internal/config"

// HostileSpawner allows setting a callback used to spawn hostiles.
type HostileSpawner interface {
	SetSpawner(func(config.HostileSpec) (string, error))
}
