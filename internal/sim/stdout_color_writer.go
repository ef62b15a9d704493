// ColorStdoutWriter prints human-friendly, colorized telemetry to STDOUT.
package sim

import (
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"swarmops-sim/internal/config"
	"swarmops-sim/internal/telemetry"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

// ColorStdoutWriter prints telemetry rows using ANSI colors.
type ColorStdoutWriter struct {
	cfg         *config.Config
	out         io.Writer
	once        sync.Once
	groupColors map[int64]string
	colorIdx    int
}

var groupPalette = []string{colorYellow, colorBlue, colorMagenta, colorCyan, colorGreen}

var modeColors = map[string]string{
	"idle":         colorGray,
	"moving":       colorBlue,
	"patrolling":   colorCyan,
	"tailing":      colorYellow,
	"intercepting": colorMagenta,
	"holding":      colorWhite(),
	"returning":    colorBlue,
	"destroyed":    colorRed,
}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
func NewColorStdoutWriter(cfg *config.Config) *ColorStdoutWriter {
	return &ColorStdoutWriter{
		cfg:         cfg,
		out:         os.Stdout,
		groupColors: make(map[int64]string),
	}
}

func (w *ColorStdoutWriter) getGroupColor(id int64) string {
	if c, ok := w.groupColors[id]; ok {
		return c
	}
	c := groupPalette[w.colorIdx%len(groupPalette)]
	w.groupColors[id] = c
	w.colorIdx++
	return c
}

func (w *ColorStdoutWriter) printOverview() {
	if w.cfg == nil {
		return
	}

	fmt.Fprintln(w.out, "Simulation Configuration:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "World:\t%.0fx%.0f\n", w.cfg.World.Width, w.cfg.World.Height)
	fmt.Fprintf(tw, "Drone Radius:\t%.1f\n", w.cfg.World.DroneRadius)
	fmt.Fprintf(tw, "Timestep (s):\t%.3f\n", w.cfg.Sim.DT)
	fmt.Fprintf(tw, "History Capacity:\t%d\n", w.cfg.Sim.HistoryCapacity)
	fmt.Fprintf(tw, "Jump Back (ticks):\t%d\n", w.cfg.Sim.JumpBackTicks)
	fmt.Fprintf(tw, "Arrival Threshold:\t%.1f\n", w.cfg.Sim.ArrivalThreshold)
	fmt.Fprintf(tw, "Formation Spacing:\t%.1f\n", w.cfg.Sim.FormationSpacing)
	tw.Flush()

	fmt.Fprintln(w.out, "\nFleets:")
	tw = tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Name\tCount\tOrigin\n")
	for _, f := range w.cfg.Fleets {
		fmt.Fprintf(tw, "%s%s%s\t%d\t(%.0f,%.0f)\n", colorGreen, f.Name, colorReset, f.Count, f.OriginX, f.OriginY)
	}
	tw.Flush()

	fmt.Fprintln(w.out, "\nHostiles:")
	tw = tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tPattern\tSpeed\n")
	for _, h := range w.cfg.Hostiles {
		fmt.Fprintf(tw, "%s%s%s\t%s\t%.0f\n", colorRed, h.ID, colorReset, h.Pattern, h.Speed)
	}
	tw.Flush()
	fmt.Fprintln(w.out)
}

// Write outputs a single telemetry row in colorized format.
func (w *ColorStdoutWriter) Write(row telemetry.TelemetryRow) error {
	w.once.Do(w.printOverview)

	teamColor := colorGreen
	if row.Team == "enemy" {
		teamColor = colorRed
	}
	modeColor, ok := modeColors[row.Mode]
	if !ok {
		modeColor = colorGray
	}

	fmt.Fprintf(w.out, "%s[%s]%s ", colorGray, row.Timestamp.Format(time.RFC3339), colorReset)
	fmt.Fprintf(w.out, "%stick=%d%s ", colorBlue, row.Tick, colorReset)
	fmt.Fprintf(w.out, "%sdrone=%s%s ", colorWhite(), row.DroneID, colorReset)
	fmt.Fprintf(w.out, "%steam=%s%s ", teamColor, row.Team, colorReset)
	fmt.Fprintf(w.out, "%spos=(%.1f,%.1f)%s ", colorGreen, row.X, row.Y, colorReset)
	fmt.Fprintf(w.out, "%svel=(%.1f,%.1f)%s ", colorYellow, row.VX, row.VY, colorReset)
	fmt.Fprintf(w.out, "%smode=%s%s", modeColor, row.Mode, colorReset)
	if row.GroupID != nil {
		gc := w.getGroupColor(*row.GroupID)
		fmt.Fprintf(w.out, " %sgroup=%d%s", gc, *row.GroupID, colorReset)
	}
	if row.TargetX != nil && row.TargetY != nil {
		fmt.Fprintf(w.out, " %starget=(%.1f,%.1f)%s", colorCyan, *row.TargetX, *row.TargetY, colorReset)
	}
	if row.Direction == "reverse" {
		fmt.Fprintf(w.out, " %sreverse%s", colorMagenta, colorReset)
	}
	fmt.Fprintln(w.out)
	return nil
}

func colorWhite() string { return "\x1b[37m" }

// WriteBatch outputs multiple telemetry rows.
func (w *ColorStdoutWriter) WriteBatch(rows []telemetry.TelemetryRow) error {
	for _, r := range rows {
		_ = w.Write(r)
	}
	return nil
}

// WriteEvent prints a simulation event to STDOUT.
func (w *ColorStdoutWriter) WriteEvent(row telemetry.EventRow) error {
	w.once.Do(w.printOverview)
	fmt.Fprintf(w.out, "%s[%s]%s %sEVENT%s type=%s drones=%v",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorRed, colorReset, row.Type, row.DroneIDs)
	if row.TargetID != "" {
		fmt.Fprintf(w.out, " target=%s", row.TargetID)
	}
	if row.GroupID != nil {
		fmt.Fprintf(w.out, " group=%d", *row.GroupID)
	}
	if row.Detail != "" {
		fmt.Fprintf(w.out, " detail=%q", row.Detail)
	}
	fmt.Fprintln(w.out)
	return nil
}

// WriteEvents prints multiple simulation events.
func (w *ColorStdoutWriter) WriteEvents(rows []telemetry.EventRow) error {
	for _, r := range rows {
		_ = w.WriteEvent(r)
	}
	return nil
}

// WriteState prints simulation state metrics to STDOUT.
func (w *ColorStdoutWriter) WriteState(row telemetry.StateRow) error {
	w.once.Do(w.printOverview)
	fmt.Fprintf(w.out, "%s[%s]%s %sSTATE%s tick=%d paused=%t dir=%s drones=%d hostiles=%d groups=%d history=%d\n",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorBlue, colorReset, row.Tick, row.Paused, row.Direction,
		row.Drones, row.Hostiles, row.Groups, row.HistoryLen)
	return nil
}

// WriteStates prints multiple simulation state rows.
func (w *ColorStdoutWriter) WriteStates(rows []telemetry.StateRow) error {
	for _, r := range rows {
		_ = w.WriteState(r)
	}
	return nil
}
