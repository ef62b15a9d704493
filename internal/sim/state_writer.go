package sim

import "swarmops-sim/internal/telemetry"

// StateWriter handles engine state rows.
type StateWriter interface {
	WriteState(telemetry.StateRow) error
}

// Optional: writers may support batch mode for state rows.
type batchStateWriter interface {
	WriteStates([]telemetry.StateRow) error
}
