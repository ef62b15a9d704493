package telemetry

import (
	"os"
	"time"
)

// Event type constants.
const (
	EventCollision      = "collision"
	EventGroupDispersed = "group_dispersed"
	EventTask           = "task"
	EventMove           = "move"
	EventReset          = "reset"
	EventTimeControl    = "time_control"
	EventJumpBack       = "jump_back"
	EventLaunch         = "launch"
	EventSpawn          = "spawn"
	EventSetBase        = "set_base"
)

// EventRow represents one discrete simulation event.
type EventRow struct {
	ID        string    `json:"id"`     // TAG
	SimID     string    `json:"sim_id"` // TAG
	Type      string    `json:"event_type"`
	DroneIDs  []string  `json:"drone_ids"`
	TargetID  string    `json:"target_id,omitempty"`
	GroupID   *int64    `json:"group_id,omitempty"`
	Tick      int64     `json:"tick"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"ts"` // TIME INDEX
}

// EventTableName returns the GreptimeDB table for event rows, overridable
// via the EVENT_TABLE environment variable.
func EventTableName() string {
	if env := os.Getenv("EVENT_TABLE"); env != "" {
		return env
	}
	return "sim_events"
}

func (EventRow) TableName() string {
	return EventTableName()
}
