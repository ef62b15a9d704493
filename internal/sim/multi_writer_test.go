package sim

import (
	"testing"

	"swarmops-sim/internal/config"
	"swarmops-sim/internal/telemetry"
)

type stubControlWriter struct {
	spawn    func(config.HostileSpec) (string, error)
	controls *ClockControls
	api      *bool
}

func (s *stubControlWriter) Write(telemetry.TelemetryRow) error { return nil }
func (s *stubControlWriter) SetSpawner(fn func(config.HostileSpec) (string, error)) {
	s.spawn = fn
}
func (s *stubControlWriter) SetControls(c ClockControls) { s.controls = &c }
func (s *stubControlWriter) SetAPIStatus(listening bool) { s.api = &listening }

type countingWriter struct {
	rows    int
	batches int
	events  int
	states  int
}

func (c *countingWriter) Write(telemetry.TelemetryRow) error { c.rows++; return nil }
func (c *countingWriter) WriteBatch(rows []telemetry.TelemetryRow) error {
	c.batches++
	c.rows += len(rows)
	return nil
}
func (c *countingWriter) WriteEvent(telemetry.EventRow) error { c.events++; return nil }
func (c *countingWriter) WriteState(telemetry.StateRow) error { c.states++; return nil }

type plainWriter struct {
	rows int
}

func (p *plainWriter) Write(telemetry.TelemetryRow) error { p.rows++; return nil }

func TestMultiWriterBatchDetection(t *testing.T) {
	batching := &countingWriter{}
	plain := &plainWriter{}
	mw := NewMultiWriter([]TelemetryWriter{batching, plain}, nil, nil)

	rows := []telemetry.TelemetryRow{{DroneID: "d_1"}, {DroneID: "d_2"}, {DroneID: "d_3"}}
	if err := mw.WriteBatch(rows); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	if batching.batches != 1 || batching.rows != 3 {
		t.Errorf("Expected one batch of 3, got batches=%d rows=%d", batching.batches, batching.rows)
	}
	if plain.rows != 3 {
		t.Errorf("Expected 3 per-row writes, got %d", plain.rows)
	}
}

func TestMultiWriterEventAndStateFanout(t *testing.T) {
	a := &countingWriter{}
	b := &countingWriter{}
	mw := NewMultiWriter(nil, []EventWriter{a, b}, []StateWriter{a})

	if err := mw.WriteEvents([]telemetry.EventRow{{ID: "ev-1"}, {ID: "ev-2"}}); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}
	if a.events != 2 || b.events != 2 {
		t.Errorf("Expected both writers to see 2 events, got %d and %d", a.events, b.events)
	}

	if err := mw.WriteState(telemetry.StateRow{SimID: "s"}); err != nil {
		t.Fatalf("WriteState: %v", err)
	}
	if a.states != 1 || b.states != 0 {
		t.Errorf("Expected only the state writer to see the row, got %d and %d", a.states, b.states)
	}
}

func TestMultiWriterSetSpawner(t *testing.T) {
	s := &stubControlWriter{}
	mw := NewMultiWriter([]TelemetryWriter{s}, nil, nil)
	mw.SetSpawner(func(config.HostileSpec) (string, error) { return "", nil })
	if s.spawn == nil {
		t.Fatalf("spawner not forwarded")
	}
}

func TestMultiWriterSetControls(t *testing.T) {
	s := &stubControlWriter{}
	mw := NewMultiWriter([]TelemetryWriter{s}, nil, nil)
	mw.SetControls(ClockControls{})
	if s.controls == nil {
		t.Fatalf("controls not forwarded")
	}
}

func TestMultiWriterSetAPIStatus(t *testing.T) {
	s := &stubControlWriter{}
	mw := NewMultiWriter([]TelemetryWriter{s}, nil, nil)
	mw.SetAPIStatus(true)
	if s.api == nil || !*s.api {
		t.Fatalf("api status not forwarded")
	}
}
