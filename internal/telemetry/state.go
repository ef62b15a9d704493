package telemetry

import (
	"os"
	"time"
)

// StateRow captures per-tick simulator state metrics.
type StateRow struct {
	SimID      string    `json:"sim_id"` // TAG
	Tick       int64     `json:"tick"`
	Paused     bool      `json:"paused"`
	Direction  string    `json:"direction"`
	Drones     int       `json:"drones"`
	Hostiles   int       `json:"hostiles"`
	Groups     int       `json:"groups"`
	HistoryLen int       `json:"history_len"`
	Timestamp  time.Time `json:"ts"` // TIME INDEX
}

// StateTableName returns the GreptimeDB table for state rows, overridable
// via the STATE_TABLE environment variable.
func StateTableName() string {
	if env := os.Getenv("STATE_TABLE"); env != "" {
		return env
	}
	return "sim_state"
}

func (StateRow) TableName() string {
	return StateTableName()
}
