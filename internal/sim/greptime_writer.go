package sim

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"strconv"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	ingesterContext "github.com/GreptimeTeam/greptimedb-ingester-go/context"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"swarmops-sim/internal/telemetry"
)

// greptimeClient is the slice of the ingester client the writer needs.
// Tests substitute a capture mock here.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes telemetry, event, and state rows to GreptimeDB
// via the ingester client. Tables are auto-created on first ingest.
type GreptimeDBWriter struct {
	client     greptimeClient
	table      string
	eventTable string
	stateTable string
}

// NewGreptimeDBWriter creates a new GreptimeDB writer. endpoint is the
// host or host:port of the gRPC ingest listener.
func NewGreptimeDBWriter(endpoint, database string) (*GreptimeDBWriter, error) {
	cfg := greptime.NewConfig(endpoint).WithDatabase(database)
	if host, port, err := net.SplitHostPort(endpoint); err == nil {
		if p, err := strconv.Atoi(port); err == nil {
			cfg = greptime.NewConfig(host).WithPort(p).WithDatabase(database)
		}
	}
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &GreptimeDBWriter{
		client:     client,
		table:      telemetry.TelemetryTableName(),
		eventTable: telemetry.EventTableName(),
		stateTable: telemetry.StateTableName(),
	}, nil
}

// Write inserts a single telemetry row.
func (w *GreptimeDBWriter) Write(row telemetry.TelemetryRow) error {
	return w.WriteBatch([]telemetry.TelemetryRow{row})
}

// WriteBatch inserts multiple telemetry rows.
func (w *GreptimeDBWriter) WriteBatch(rows []telemetry.TelemetryRow) error {
	if len(rows) == 0 {
		return nil
	}

	tbl, err := table.New(w.table)
	if err != nil {
		return err
	}
	if err := firstErr(
		tbl.AddTagColumn("sim_id", types.STRING),
		tbl.AddTagColumn("drone_id", types.STRING),
		tbl.AddTagColumn("team", types.STRING),
		tbl.AddFieldColumn("x", types.FLOAT64),
		tbl.AddFieldColumn("y", types.FLOAT64),
		tbl.AddFieldColumn("vx", types.FLOAT64),
		tbl.AddFieldColumn("vy", types.FLOAT64),
		tbl.AddFieldColumn("mode", types.STRING),
		tbl.AddFieldColumn("tick", types.INT64),
		tbl.AddFieldColumn("direction", types.STRING),
		tbl.AddFieldColumn("group_id", types.INT64),
		tbl.AddFieldColumn("target_x", types.FLOAT64),
		tbl.AddFieldColumn("target_y", types.FLOAT64),
		tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND),
	); err != nil {
		return err
	}

	for _, r := range rows {
		if err := tbl.AddRow(
			r.SimID, r.DroneID, r.Team,
			r.X, r.Y, r.VX, r.VY,
			r.Mode, r.Tick, r.Direction,
			nullableInt(r.GroupID), nullableFloat(r.TargetX), nullableFloat(r.TargetY),
			r.Timestamp,
		); err != nil {
			return err
		}
	}

	return w.send(tbl, len(rows))
}

// WriteEvent inserts a single event row.
func (w *GreptimeDBWriter) WriteEvent(row telemetry.EventRow) error {
	return w.WriteEvents([]telemetry.EventRow{row})
}

// WriteEvents inserts multiple event rows. The drone id list goes into
// a JSON column so dashboards can unnest it.
func (w *GreptimeDBWriter) WriteEvents(rows []telemetry.EventRow) error {
	if len(rows) == 0 {
		return nil
	}

	tbl, err := table.New(w.eventTable)
	if err != nil {
		return err
	}
	if err := firstErr(
		tbl.AddTagColumn("id", types.STRING),
		tbl.AddTagColumn("sim_id", types.STRING),
		tbl.AddFieldColumn("event_type", types.STRING),
		tbl.AddFieldColumn("drone_ids", types.JSON),
		tbl.AddFieldColumn("target_id", types.STRING),
		tbl.AddFieldColumn("group_id", types.INT64),
		tbl.AddFieldColumn("tick", types.INT64),
		tbl.AddFieldColumn("detail", types.STRING),
		tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND),
	); err != nil {
		return err
	}

	for _, r := range rows {
		ids, err := json.Marshal(r.DroneIDs)
		if err != nil {
			return err
		}
		if err := tbl.AddRow(
			r.ID, r.SimID,
			r.Type, string(ids), r.TargetID,
			nullableInt(r.GroupID), r.Tick, r.Detail,
			r.Timestamp,
		); err != nil {
			return err
		}
	}

	return w.send(tbl, len(rows))
}

// WriteState inserts a single state row.
func (w *GreptimeDBWriter) WriteState(row telemetry.StateRow) error {
	return w.WriteStates([]telemetry.StateRow{row})
}

// WriteStates inserts multiple state rows.
func (w *GreptimeDBWriter) WriteStates(rows []telemetry.StateRow) error {
	if len(rows) == 0 {
		return nil
	}

	tbl, err := table.New(w.stateTable)
	if err != nil {
		return err
	}
	if err := firstErr(
		tbl.AddTagColumn("sim_id", types.STRING),
		tbl.AddFieldColumn("tick", types.INT64),
		tbl.AddFieldColumn("paused", types.BOOLEAN),
		tbl.AddFieldColumn("direction", types.STRING),
		tbl.AddFieldColumn("drones", types.INT64),
		tbl.AddFieldColumn("hostiles", types.INT64),
		tbl.AddFieldColumn("groups", types.INT64),
		tbl.AddFieldColumn("history_len", types.INT64),
		tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND),
	); err != nil {
		return err
	}

	for _, r := range rows {
		if err := tbl.AddRow(
			r.SimID,
			r.Tick, r.Paused, r.Direction,
			int64(r.Drones), int64(r.Hostiles), int64(r.Groups), int64(r.HistoryLen),
			r.Timestamp,
		); err != nil {
			return err
		}
	}

	return w.send(tbl, len(rows))
}

func (w *GreptimeDBWriter) send(tbl *table.Table, n int) error {
	ctx := ingesterContext.New(context.Background())
	if _, err := w.client.Write(ctx, tbl); err != nil {
		log.Printf("[GreptimeDBWriter] Write failed: %v", err)
		return err
	}
	log.Printf("[GreptimeDBWriter] wrote %d rows", n)
	return nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func nullableInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
