package main

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"swarmops-sim/internal/config"
	"swarmops-sim/internal/sim"
)

type closer interface{ Close() error }

// newWriters assembles the writer stack from flags and env vars: one
// base writer (TUI, color, JSON stdout, or GreptimeDB), optionally a
// run summary and a JSONL file export fanned out behind a MultiWriter.
// The returned cleanup closes every resource-holding writer.
func newWriters(cfg *config.Config, printOnly, useColor, useTUI, summary bool, logFile string) (sim.TelemetryWriter, sim.EventWriter, func(), error) {
	base, err := baseWriter(cfg, printOnly, useColor, useTUI)
	if err != nil {
		return nil, nil, nil, err
	}

	tws := []sim.TelemetryWriter{base}
	var closers []closer
	if c, ok := base.(closer); ok {
		closers = append(closers, c)
	}
	if summary {
		sw := sim.NewSummaryWriter()
		tws = append(tws, sw)
		closers = append(closers, sw)
	}
	if logFile != "" {
		fw, err := sim.NewFileWriter(logFile, logFile+".events", logFile+".state")
		if err != nil {
			return nil, nil, nil, err
		}
		tws = append(tws, fw)
		closers = append(closers, fw)
	}
	cleanup := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}

	if len(tws) == 1 {
		ew, _ := base.(sim.EventWriter)
		return base, ew, cleanup, nil
	}

	var ews []sim.EventWriter
	var sws []sim.StateWriter
	for _, tw := range tws {
		if ew, ok := tw.(sim.EventWriter); ok {
			ews = append(ews, ew)
		}
		if sw, ok := tw.(sim.StateWriter); ok {
			sws = append(sws, sw)
		}
	}
	mw := sim.NewMultiWriter(tws, ews, sws)
	return mw, mw, cleanup, nil
}

// baseWriter chooses the primary sink. GreptimeDB is used only when an
// endpoint is configured and no terminal-facing mode is requested.
func baseWriter(cfg *config.Config, printOnly, useColor, useTUI bool) (sim.TelemetryWriter, error) {
	switch {
	case useTUI:
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return nil, fmt.Errorf("--tui requires a terminal")
		}
		return sim.NewTUIWriter(cfg), nil
	case useColor:
		return sim.NewColorStdoutWriter(cfg), nil
	case printOnly || os.Getenv("GREPTIMEDB_ENDPOINT") == "":
		return sim.NewJSONStdoutWriter(), nil
	}
	settings := config.Env()
	return sim.NewGreptimeDBWriter(settings.GreptimeEndpoint, settings.GreptimeDB)
}
