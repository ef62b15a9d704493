package sim

import (
	"swarmops-sim/internal/config"
	"swarmops-sim/internal/telemetry"
)

// MultiWriter fans telemetry, event, and state rows out to multiple
// writers. Control hooks are forwarded to every capable telemetry
// writer, so interactive sinks keep working behind the fan-out.
type MultiWriter struct {
	telewriters  []TelemetryWriter
	eventwriters []EventWriter
	statewriters []StateWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(tws []TelemetryWriter, ews []EventWriter, sws []StateWriter) *MultiWriter {
	return &MultiWriter{telewriters: tws, eventwriters: ews, statewriters: sws}
}

// Write sends a telemetry row to all writers.
func (mw *MultiWriter) Write(row telemetry.TelemetryRow) error {
	for _, w := range mw.telewriters {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteBatch sends multiple telemetry rows to all writers, using batch if supported.
func (mw *MultiWriter) WriteBatch(rows []telemetry.TelemetryRow) error {
	for _, w := range mw.telewriters {
		if bw, ok := w.(batchWriter); ok {
			if err := bw.WriteBatch(rows); err != nil {
				return err
			}
			continue
		}
		for _, r := range rows {
			if err := w.Write(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteEvent sends an event row to all event writers.
func (mw *MultiWriter) WriteEvent(row telemetry.EventRow) error {
	for _, w := range mw.eventwriters {
		if err := w.WriteEvent(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteEvents sends multiple event rows to all event writers, using batch if supported.
func (mw *MultiWriter) WriteEvents(rows []telemetry.EventRow) error {
	for _, w := range mw.eventwriters {
		if bw, ok := w.(batchEventWriter); ok {
			if err := bw.WriteEvents(rows); err != nil {
				return err
			}
			continue
		}
		for _, r := range rows {
			if err := w.WriteEvent(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteState sends a state row to all state writers.
func (mw *MultiWriter) WriteState(row telemetry.StateRow) error {
	for _, w := range mw.statewriters {
		if err := w.WriteState(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteStates sends multiple state rows to all state writers, using batch if supported.
func (mw *MultiWriter) WriteStates(rows []telemetry.StateRow) error {
	for _, w := range mw.statewriters {
		if bw, ok := w.(batchStateWriter); ok {
			if err := bw.WriteStates(rows); err != nil {
				return err
			}
			continue
		}
		for _, r := range rows {
			if err := w.WriteState(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// SetAPIStatus forwards the API listener state to capable writers.
func (mw *MultiWriter) SetAPIStatus(listening bool) {
	for _, w := range mw.telewriters {
		if sw, ok := w.(APIStatusWriter); ok {
			sw.SetAPIStatus(listening)
		}
	}
}

// SetSpawner forwards the hostile spawn hook to capable writers.
func (mw *MultiWriter) SetSpawner(fn func(config.HostileSpec) (string, error)) {
	for _, w := range mw.telewriters {
		if sw, ok := w.(HostileSpawner); ok {
			sw.SetSpawner(fn)
		}
	}
}

// SetControls forwards the clock control hooks to capable writers.
func (mw *MultiWriter) SetControls(c ClockControls) {
	for _, w := range mw.telewriters {
		if cw, ok := w.(Controller); ok {
			cw.SetControls(c)
		}
	}
}
