package sim

import "swarmops-sim/internal/telemetry"

// EventWriter handles discrete simulation events.
type EventWriter interface {
	WriteEvent(telemetry.EventRow) error
}

// Optional: writers may support batch mode for events.
type batchEventWriter interface {
	WriteEvents([]telemetry.EventRow) error
}
