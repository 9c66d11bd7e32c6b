// FilePath: internal/repository/repository.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/kasetlab/farmhub/internal/database"
	"github.com/kasetlab/farmhub/internal/models"
)

var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")
	// ErrDuplicate indicates that a resource already exists
	ErrDuplicate = errors.New("resource already exists")
	// ErrInvalidInput indicates that the input data is invalid
	ErrInvalidInput = errors.New("invalid input")
)

// SettingsRepository defines the interface for per-farm configuration
type SettingsRepository interface {
	database.Repository
	Get(ctx context.Context, farmID string) (*models.FarmSetting, error)
	Upsert(ctx context.Context, setting *models.FarmSetting) error
	// ClaimDeviceKey stores key for the farm only while the stored key is
	// blank. Returns true when the claim took effect.
	ClaimDeviceKey(ctx context.Context, farmID, key string) (bool, error)
	// ListScheduled returns every setting row with at least one configured
	// watering schedule.
	ListScheduled(ctx context.Context) ([]*models.FarmSetting, error)
}

// CommandRepository defines the interface for the device command queue
type CommandRepository interface {
	database.Repository
	Create(ctx context.Context, cmd *models.DeviceCommand) error
	Get(ctx context.Context, farmID, id string) (*models.DeviceCommand, error)
	List(ctx context.Context, farmID string, limit int) ([]*models.DeviceCommand, error)
	// LatestPending returns the most recently created pending command for
	// the farm, or ErrNotFound.
	LatestPending(ctx context.Context, farmID string) (*models.DeviceCommand, error)
	// MarkSent stamps last_sent_at and increments send_count, but only when
	// more than debounce has elapsed since the previous send (or the command
	// was never sent). Returns true when the stamp was applied.
	MarkSent(ctx context.Context, id string, sentAt time.Time, debounce time.Duration) (bool, error)
	// Acknowledge transitions a pending command to the given terminal
	// status. Returns false when the command is unknown, foreign to the
	// farm, or already terminal.
	Acknowledge(ctx context.Context, farmID, id string, status models.CommandStatus, completedAt time.Time, actualDurationSec int) (bool, error)
	HasPendingOn(ctx context.Context, farmID string) (bool, error)
	ScheduledKeyExists(ctx context.Context, farmID, key string) (bool, error)
	// FailPending bulk-transitions pending commands to failed, optionally
	// filtered by device, returning the number of rows transitioned.
	FailPending(ctx context.Context, farmID, deviceID string, completedAt time.Time) (int64, error)
}

// DeviceStatusRepository defines the interface for device heartbeats
type DeviceStatusRepository interface {
	database.Repository
	// Upsert overwrites the row for (farm_id, device_key)
	Upsert(ctx context.Context, status *models.DeviceStatus) error
	// ListByFarm returns the farm's devices, most recently seen first
	ListByFarm(ctx context.Context, farmID string) ([]*models.DeviceStatus, error)
}

// RuleRepository defines the interface for alert rule configuration
type RuleRepository interface {
	database.Repository
	Create(ctx context.Context, rule *models.AlertRule) error
	Get(ctx context.Context, farmID, id string) (*models.AlertRule, error)
	Update(ctx context.Context, rule *models.AlertRule) error
	Delete(ctx context.Context, farmID, id string) error
	ListByFarm(ctx context.Context, farmID string, onlyEnabled bool) ([]*models.AlertRule, error)
}

// NotificationRepository defines the interface for emitted alert events
type NotificationRepository interface {
	database.Repository
	Create(ctx context.Context, n *models.Notification) error
	// ExistsSince reports whether a notification with the given alert_type
	// was already created for the farm at or after since. This is the
	// anti-spam window check; it is evaluated at creation time.
	ExistsSince(ctx context.Context, farmID, alertType string, since time.Time) (bool, error)
	List(ctx context.Context, farmID string, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, farmID, id string) error
}

// ReadingRepository defines the interface for the telemetry store
// (raw readings and derived indices, backed by TimescaleDB)
type ReadingRepository interface {
	InsertReading(ctx context.Context, r *models.Reading) error
	// InsertIndex skips silently when a row for (farm_id, timestamp)
	// already exists.
	InsertIndex(ctx context.Context, ix *models.DerivedIndex) error
	// PreviousBefore returns the newest reading strictly older than ts,
	// or ErrNotFound.
	PreviousBefore(ctx context.Context, farmID string, ts time.Time) (*models.Reading, error)
	Latest(ctx context.Context, farmID string) (*models.Reading, error)
	// History and IndexHistory return the newest window of at most limit
	// rows, ordered oldest-first.
	History(ctx context.Context, farmID string, start, end time.Time, limit int) ([]*models.Reading, error)
	LatestIndex(ctx context.Context, farmID string) (*models.DerivedIndex, error)
	IndexHistory(ctx context.Context, farmID string, start, end time.Time, limit int) ([]*models.DerivedIndex, error)
	// CountZero counts readings in [since, now] where the named field
	// (temperature, humidity_air or soil_moisture) equals exactly zero.
	CountZero(ctx context.Context, farmID string, field models.Metric, since time.Time) (int, error)
}
