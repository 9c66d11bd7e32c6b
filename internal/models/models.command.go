// FilePath: internal/models/models.command.go
package models

import "time"

type CommandStatus string

const (
	CommandPending CommandStatus = "pending"
	CommandDone    CommandStatus = "done"
	CommandFailed  CommandStatus = "failed"
)

type CommandAction string

const (
	CommandOn  CommandAction = "ON"
	CommandOff CommandAction = "OFF"
)

type CommandSource string

// SourceAuto covers both machine-driven paths: the soil trigger and the
// watering schedule ticker.
const (
	SourceUser  CommandSource = "user"
	SourceAdmin CommandSource = "admin"
	SourceAuto  CommandSource = "auto"
)

// Actuator device identifiers known to the firmware
const (
	DevicePump = "pump"
	DeviceMist = "mist"
)

// DeviceCommand is one unit of actuation intent. Commands are created
// pending and transition exactly once to done or failed; terminal rows are
// never mutated again.
type DeviceCommand struct {
	ID                string        `json:"id" db:"id"`
	FarmID            string        `json:"farm_id" db:"farm_id"`
	DeviceID          string        `json:"device_id" db:"device_id"`
	Command           CommandAction `json:"command" db:"command"`
	DurationSec       int           `json:"duration_sec" db:"duration_sec"`
	Status            CommandStatus `json:"status" db:"status"`
	Source            CommandSource `json:"source" db:"source"`
	Timestamp         time.Time     `json:"timestamp" db:"timestamp"`
	CompletedAt       *time.Time    `json:"completed_at,omitempty" db:"completed_at"`
	ActualDurationSec int           `json:"actual_duration_sec" db:"actual_duration_sec"`
	// ScheduledKey deduplicates schedule/auto enqueues: farm|date|HH:mm for
	// scheduled watering, soil|farm|bucket for auto-soil watering.
	ScheduledKey *string    `json:"scheduled_key,omitempty" db:"scheduled_key"`
	SendCount    int        `json:"send_count" db:"send_count"`
	LastSentAt   *time.Time `json:"last_sent_at,omitempty" db:"last_sent_at"`
}

// Terminal reports whether the command has reached a final state
func (c *DeviceCommand) Terminal() bool {
	return c.Status == CommandDone || c.Status == CommandFailed
}

// ValidDevice reports whether id names a known actuator
func ValidDevice(id string) bool {
	return id == DevicePump || id == DeviceMist
}
