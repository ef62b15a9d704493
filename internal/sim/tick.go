package sim

import (
	"context"
	"time"

	"swarmops-sim/internal/logging"
	"swarmops-sim/internal/telemetry"
	"swarmops-sim/internal/world"
)

// Run starts the simulation loop and stops when the context is done.
// The wall-clock ticker only schedules ticks; physics advances by the
// configured dt, so tick interval and simulated time are independent.
func (s *Simulator) Run(ctx context.Context) {
	log := logging.FromContext(ctx)
	log.Info("starting simulator", "tick_interval", s.tickInterval, "dt", s.cfg.Sim.DT)
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-ctx.Done():
			log.Info("stopping simulator")
			return
		}
	}
}

// tick advances the engine one step according to the clock state and
// writes telemetry.
func (s *Simulator) tick(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.world.Paused {
		s.writeStateRow(ctx, s.stateRow())
		return
	}
	if s.world.Direction == world.DirectionReverse {
		s.stepReverse()
		s.flush(ctx, s.telemetryBatch(), nil)
		return
	}

	s.tickEvents = s.tickEvents[:0]
	s.stepForward()
	s.history.Push(s.world.Clone())
	s.cursor = s.history.Len() - 1
	s.flush(ctx, s.telemetryBatch(), s.tickEvents)
}

// stepForward runs one full physics tick: hostiles first, then the
// friendly controllers, then collision and group resolution. Iteration
// is always over sorted IDs so identical inputs replay identically.
func (s *Simulator) stepForward() {
	dt := s.cfg.Sim.DT
	s.world.Tick++

	for _, id := range s.world.DroneIDs(world.TeamEnemy) {
		s.updateHostile(s.world.Drones[id], dt)
	}
	for _, id := range s.world.DroneIDs(world.TeamFriendly) {
		d := s.world.Drones[id]
		switch d.Mode {
		case world.ModeMoving, world.ModeReturning:
			s.updateMoving(d, dt)
		case world.ModePatrolling:
			s.updatePatrolling(d, dt)
		case world.ModeTailing:
			s.updateTailing(d, dt)
		case world.ModeIntercepting:
			s.updateIntercepting(d, dt)
		}
	}
	s.resolveCollisions()
	s.resolveGroups()
}

// stepReverse walks the history cursor back one snapshot and restores
// it. At the oldest snapshot the engine holds position until the
// direction flips forward or a jump arrives.
func (s *Simulator) stepReverse() {
	if s.history.Len() == 0 {
		return
	}
	if s.cursor >= s.history.Len() {
		s.cursor = s.history.Len() - 1
	}
	if s.cursor > 0 {
		s.cursor--
	}
	s.restoreSnapshot(s.history.At(s.cursor))
}

// telemetryBatch builds one row per live drone for the current state.
func (s *Simulator) telemetryBatch() []telemetry.TelemetryRow {
	rows := make([]telemetry.TelemetryRow, 0, len(s.world.Drones))
	ts := s.now().UTC()
	for _, id := range s.world.DroneIDs("") {
		d := s.world.Drones[id]
		row := telemetry.TelemetryRow{
			SimID:     s.simID,
			DroneID:   d.ID,
			Team:      string(d.Team),
			X:         d.Pos.X,
			Y:         d.Pos.Y,
			VX:        d.Vel.X,
			VY:        d.Vel.Y,
			Mode:      string(d.Mode),
			Tick:      s.world.Tick,
			Direction: string(s.world.Direction),
			Timestamp: ts,
		}
		if d.GroupID != nil {
			g := *d.GroupID
			row.GroupID = &g
		}
		if d.Target != nil {
			x, y := d.Target.X, d.Target.Y
			row.TargetX, row.TargetY = &x, &y
		}
		rows = append(rows, row)
	}
	return rows
}

func (s *Simulator) stateRow() telemetry.StateRow {
	friendlies, hostiles := 0, 0
	for _, d := range s.world.Drones {
		if d.Team == world.TeamEnemy {
			hostiles++
		} else {
			friendlies++
		}
	}
	return telemetry.StateRow{
		SimID:      s.simID,
		Tick:       s.world.Tick,
		Paused:     s.world.Paused,
		Direction:  string(s.world.Direction),
		Drones:     friendlies,
		Hostiles:   hostiles,
		Groups:     len(s.world.Groups),
		HistoryLen: s.history.Len(),
		Timestamp:  s.now().UTC(),
	}
}

// flush writes the tick's telemetry batch, queued events, and state row.
func (s *Simulator) flush(ctx context.Context, rows []telemetry.TelemetryRow, events []telemetry.EventRow) {
	log := logging.FromContext(ctx)

	// Batch support if writer implements WriteBatch
	if bw, ok := s.writer.(batchWriter); ok {
		if err := bw.WriteBatch(rows); err != nil {
			log.Error("batch write failed", "err", err)
		}
	} else {
		for _, row := range rows {
			if err := s.writer.Write(row); err != nil {
				log.Error("write failed", "drone_id", row.DroneID, "err", err)
			}
		}
	}

	s.writeEvents(ctx, events)
	s.writeStateRow(ctx, s.stateRow())
}

// writeStateRow emits one state row if the writer supports it.
func (s *Simulator) writeStateRow(ctx context.Context, row telemetry.StateRow) {
	sw, ok := s.writer.(StateWriter)
	if !ok {
		return
	}
	if err := sw.WriteState(row); err != nil {
		logging.FromContext(ctx).Error("state write failed", "err", err)
	}
}
