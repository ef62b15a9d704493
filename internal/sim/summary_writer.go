package sim

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/fatih/color"

	"swarmops-sim/internal/telemetry"
)

var (
	summaryHeading = color.New(color.FgGreen, color.Bold)
	summaryLabel   = color.New(color.FgCyan)
	summaryLoss    = color.New(color.FgRed)
)

// SummaryWriter tallies everything written to it and prints an
// end-of-run summary on Close. It is meant to be combined with other
// writers through MultiWriter.
type SummaryWriter struct {
	out       io.Writer
	startTime time.Time

	mu          sync.Mutex
	rows        int
	finalTick   int64
	teams       map[string]string
	lost        map[string]int
	eventCounts map[string]int
	totalEvents int
}

// NewSummaryWriter returns a SummaryWriter printing to stdout.
func NewSummaryWriter() *SummaryWriter {
	return &SummaryWriter{
		out:         color.Output,
		startTime:   time.Now(),
		teams:       make(map[string]string),
		lost:        make(map[string]int),
		eventCounts: make(map[string]int),
	}
}

// Write implements TelemetryWriter.
func (w *SummaryWriter) Write(row telemetry.TelemetryRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rows++
	w.finalTick = row.Tick
	w.teams[row.DroneID] = row.Team
	return nil
}

// WriteBatch tallies multiple telemetry rows.
func (w *SummaryWriter) WriteBatch(rows []telemetry.TelemetryRow) error {
	for _, r := range rows {
		_ = w.Write(r)
	}
	return nil
}

// WriteEvent implements EventWriter.
func (w *SummaryWriter) WriteEvent(e telemetry.EventRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.totalEvents++
	w.eventCounts[e.Type]++
	if e.Type == telemetry.EventCollision {
		for _, id := range e.DroneIDs {
			team, ok := w.teams[id]
			if !ok {
				team = "unknown"
			}
			w.lost[team]++
		}
	}
	return nil
}

// WriteEvents tallies multiple event rows.
func (w *SummaryWriter) WriteEvents(rows []telemetry.EventRow) error {
	for _, e := range rows {
		_ = w.WriteEvent(e)
	}
	return nil
}

// WriteState implements StateWriter.
func (w *SummaryWriter) WriteState(row telemetry.StateRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.finalTick = row.Tick
	return nil
}

// WriteStates tallies multiple state rows.
func (w *SummaryWriter) WriteStates(rows []telemetry.StateRow) error {
	for _, r := range rows {
		_ = w.WriteState(r)
	}
	return nil
}

// Close prints the run summary.
func (w *SummaryWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	teamTotals := make(map[string]int)
	for _, team := range w.teams {
		teamTotals[team]++
	}

	summaryHeading.Fprintln(w.out, "╔══════════════════════════════════════╗")
	summaryHeading.Fprintln(w.out, "║          SIMULATION SUMMARY          ║")
	summaryHeading.Fprintln(w.out, "╚══════════════════════════════════════╝")

	fmt.Fprintf(w.out, "Duration: %s | Final Tick: %d | Telemetry Rows: %d\n",
		time.Since(w.startTime).Round(time.Millisecond), w.finalTick, w.rows)

	if w.totalEvents > 0 {
		summaryLabel.Fprintf(w.out, "\nEvent Distribution (%d total):\n", w.totalEvents)
		types := make([]string, 0, len(w.eventCounts))
		for t := range w.eventCounts {
			types = append(types, t)
		}
		sort.Strings(types)
		for _, t := range types {
			fmt.Fprintf(w.out, "   %-20s: %d\n", t, w.eventCounts[t])
		}
	}

	if len(teamTotals) > 0 {
		summaryLabel.Fprintln(w.out, "\nDrones:")
		teams := make([]string, 0, len(teamTotals))
		for t := range teamTotals {
			teams = append(teams, t)
		}
		sort.Strings(teams)
		for _, t := range teams {
			lost := w.lost[t]
			fmt.Fprintf(w.out, "   %-10s: %d seen", t, teamTotals[t])
			if lost > 0 {
				fmt.Fprint(w.out, ", ")
				summaryLoss.Fprintf(w.out, "%d destroyed", lost)
			}
			fmt.Fprintln(w.out)
		}
	}
	return nil
}
