package sim

import (
	"context"

	"github.com/google/uuid"

	"swarmops-sim/internal/logging"
	"swarmops-sim/internal/telemetry"
)

func (s *Simulator) newEvent(eventType string, droneIDs []string, targetID string, groupID *int64, detail string) telemetry.EventRow {
	return telemetry.EventRow{
		ID:        uuid.NewString(),
		SimID:     s.simID,
		Type:      eventType,
		DroneIDs:  droneIDs,
		TargetID:  targetID,
		GroupID:   groupID,
		Tick:      s.world.Tick,
		Detail:    detail,
		Timestamp: s.now().UTC(),
	}
}

// recordEvent appends a row to the bounded operator feed.
func (s *Simulator) recordEvent(row telemetry.EventRow) {
	s.recentEvents = append(s.recentEvents, row)
	if len(s.recentEvents) > recentEventsCap {
		s.recentEvents = s.recentEvents[len(s.recentEvents)-recentEventsCap:]
	}
}

// queueEvent records an event produced inside the running tick; the
// batch flushes when the tick completes.
func (s *Simulator) queueEvent(row telemetry.EventRow) {
	s.recordEvent(row)
	s.tickEvents = append(s.tickEvents, row)
}

// emitEvent records a command-produced event and writes it out at once,
// so the feed stays live even while the clock is paused.
func (s *Simulator) emitEvent(ctx context.Context, row telemetry.EventRow) {
	s.recordEvent(row)
	s.writeEvents(ctx, []telemetry.EventRow{row})
}

// writeEvents sends rows to the event writer, falling back to an
// event-capable main writer.
func (s *Simulator) writeEvents(ctx context.Context, rows []telemetry.EventRow) {
	if len(rows) == 0 {
		return
	}
	log := logging.FromContext(ctx)
	w := s.eventWriter
	if w == nil {
		ew, ok := s.writer.(EventWriter)
		if !ok {
			return
		}
		w = ew
	}
	if bw, ok := w.(batchEventWriter); ok {
		if err := bw.WriteEvents(rows); err != nil {
			log.Error("event batch write failed", "err", err)
		}
		return
	}
	for _, row := range rows {
		if err := w.WriteEvent(row); err != nil {
			log.Error("event write failed", "event_type", row.Type, "err", err)
		}
	}
}
