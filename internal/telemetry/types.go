// Telemetry structs with greptime tags
package telemetry

import (
	"os"
	"time"
)

// TelemetryRow represents one drone position record for GreptimeDB.
type TelemetryRow struct {
	SimID     string    `json:"sim_id"`    // TAG
	DroneID   string    `json:"drone_id"`  // TAG
	Team      string    `json:"team"`      // TAG
	X         float64   `json:"x"`         // FIELD
	Y         float64   `json:"y"`         // FIELD
	VX        float64   `json:"vx"`        // FIELD
	VY        float64   `json:"vy"`        // FIELD
	Mode      string    `json:"mode"`      // FIELD
	Tick      int64     `json:"tick"`      // FIELD
	Direction string    `json:"direction"` // FIELD
	GroupID   *int64    `json:"group_id,omitempty"`
	TargetX   *float64  `json:"target_x,omitempty"`
	TargetY   *float64  `json:"target_y,omitempty"`
	Timestamp time.Time `json:"ts"` // TIME INDEX
}

// TelemetryTableName returns the table name used when writing telemetry
// to GreptimeDB. It defaults to "drone_telemetry" but can be overridden
// via the GREPTIMEDB_TABLE environment variable.
func TelemetryTableName() string {
	if env := os.Getenv("GREPTIMEDB_TABLE"); env != "" {
		return env
	}
	return "drone_telemetry"
}

func (TelemetryRow) TableName() string {
	return TelemetryTableName()
}
