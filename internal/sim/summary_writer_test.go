package sim

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"swarmops-sim/internal/telemetry"
)

func newTestSummaryWriter(buf *bytes.Buffer) *SummaryWriter {
	return &SummaryWriter{
		out:         buf,
		startTime:   time.Now(),
		teams:       make(map[string]string),
		lost:        make(map[string]int),
		eventCounts: make(map[string]int),
	}
}

func TestSummaryWriterCountsRowsAndEvents(t *testing.T) {
	var buf bytes.Buffer
	w := newTestSummaryWriter(&buf)

	rows := []telemetry.TelemetryRow{
		{DroneID: "d_1", Team: "friendly", Tick: 1},
		{DroneID: "d_2", Team: "friendly", Tick: 1},
		{DroneID: "h_1", Team: "enemy", Tick: 1},
	}
	if err := w.WriteBatch(rows); err != nil {
		t.Fatalf("batch: %v", err)
	}
	if err := w.WriteEvent(telemetry.EventRow{Type: telemetry.EventTask, Tick: 2}); err != nil {
		t.Fatalf("event: %v", err)
	}
	if err := w.WriteEvent(telemetry.EventRow{Type: telemetry.EventCollision, DroneIDs: []string{"d_2", "h_1"}, Tick: 3}); err != nil {
		t.Fatalf("collision event: %v", err)
	}
	if err := w.WriteState(telemetry.StateRow{Tick: 3}); err != nil {
		t.Fatalf("state: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "SIMULATION SUMMARY") {
		t.Fatalf("missing heading in output:\n%s", out)
	}
	if !strings.Contains(out, "Final Tick: 3") {
		t.Fatalf("expected final tick 3 in output:\n%s", out)
	}
	if !strings.Contains(out, "Telemetry Rows: 3") {
		t.Fatalf("expected 3 telemetry rows in output:\n%s", out)
	}
	if !strings.Contains(out, "collision") || !strings.Contains(out, "task") {
		t.Fatalf("expected event distribution in output:\n%s", out)
	}
	if !strings.Contains(out, "1 destroyed") {
		t.Fatalf("expected per-team losses in output:\n%s", out)
	}
}

func TestSummaryWriterUnknownCollisionIDs(t *testing.T) {
	var buf bytes.Buffer
	w := newTestSummaryWriter(&buf)

	ev := telemetry.EventRow{Type: telemetry.EventCollision, DroneIDs: []string{"ghost_1", "ghost_2"}}
	if err := w.WriteEvent(ev); err != nil {
		t.Fatalf("event: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if w.lost["unknown"] != 2 {
		t.Fatalf("expected 2 unknown losses, got %d", w.lost["unknown"])
	}
}

func TestSummaryWriterEmptyRunPrintsHeader(t *testing.T) {
	var buf bytes.Buffer
	w := newTestSummaryWriter(&buf)
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Final Tick: 0") {
		t.Fatalf("expected zero tick line, got:\n%s", out)
	}
	if strings.Contains(out, "Event Distribution") {
		t.Fatalf("did not expect event section for empty run:\n%s", out)
	}
}
