// FilePath: internal/repository/postgres/postgres.commands.go
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/kasetlab/farmhub/internal/database"
	"github.com/kasetlab/farmhub/internal/errors"
	"github.com/kasetlab/farmhub/internal/models"
)

type CommandRepo struct {
	PostgresBaseRepo
}

func NewCommandRepository(db database.DB) (*CommandRepo, error) {
	repo := &CommandRepo{PostgresBaseRepo: PostgresBaseRepo{db: db}}
	if err := repo.initializeSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *CommandRepo) initializeSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS device_commands (
			id TEXT PRIMARY KEY,
			farm_id TEXT NOT NULL,
			device_id TEXT NOT NULL DEFAULT 'pump',
			command TEXT NOT NULL,
			duration_sec INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'pending',
			source TEXT NOT NULL DEFAULT 'user',
			timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			completed_at TIMESTAMPTZ NULL,
			actual_duration_sec INTEGER NOT NULL DEFAULT 0,
			scheduled_key TEXT NULL,
			send_count INTEGER NOT NULL DEFAULT 0,
			last_sent_at TIMESTAMPTZ NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_device_commands_farm_status_ts
			ON device_commands(farm_id, status, timestamp DESC)`,
		// Hard uniqueness on the dedup token. Enqueue paths check before
		// insert; this closes the remaining race.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_device_commands_scheduled_key
			ON device_commands(farm_id, command, scheduled_key)
			WHERE scheduled_key IS NOT NULL`,
	}

	for _, query := range queries {
		if _, err := r.db.GetDB().Exec(query); err != nil {
			return errors.NewDatabaseError("failed to initialize device_commands schema", err)
		}
	}
	return nil
}

func (r *CommandRepo) Create(ctx context.Context, cmd *models.DeviceCommand) error {
	query := `
		INSERT INTO device_commands (
			id, farm_id, device_id, command, duration_sec, status, source,
			timestamp, completed_at, actual_duration_sec, scheduled_key,
			send_count, last_sent_at
		) VALUES (
			:id, :farm_id, :device_id, :command, :duration_sec, :status, :source,
			:timestamp, :completed_at, :actual_duration_sec, :scheduled_key,
			:send_count, :last_sent_at
		)`

	_, err := r.db.GetDB().NamedExecContext(ctx, query, cmd)
	if err != nil {
		return errors.NewDatabaseError("failed to create device command", err)
	}
	return nil
}

func (r *CommandRepo) Get(ctx context.Context, farmID, id string) (*models.DeviceCommand, error) {
	cmd := &models.DeviceCommand{}
	query := `SELECT * FROM device_commands WHERE id = $1 AND farm_id = $2`

	err := r.db.GetDB().GetContext(ctx, cmd, query, id, farmID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("device command not found", err)
		}
		return nil, errors.NewDatabaseError("failed to get device command", err)
	}
	return cmd, nil
}

func (r *CommandRepo) List(ctx context.Context, farmID string, limit int) ([]*models.DeviceCommand, error) {
	cmds := []*models.DeviceCommand{}
	query := `SELECT * FROM device_commands WHERE farm_id = $1 ORDER BY timestamp DESC LIMIT $2`

	err := r.db.GetDB().SelectContext(ctx, &cmds, query, farmID, limit)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list device commands", err)
	}
	return cmds, nil
}

func (r *CommandRepo) LatestPending(ctx context.Context, farmID string) (*models.DeviceCommand, error) {
	cmd := &models.DeviceCommand{}
	query := `SELECT * FROM device_commands
		WHERE farm_id = $1 AND status = 'pending'
		ORDER BY timestamp DESC LIMIT 1`

	err := r.db.GetDB().GetContext(ctx, cmd, query, farmID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("no pending command", err)
		}
		return nil, errors.NewDatabaseError("failed to get pending command", err)
	}
	return cmd, nil
}

// MarkSent is conditional on the debounce window so concurrent polls update
// the send bookkeeping at most once per window.
func (r *CommandRepo) MarkSent(ctx context.Context, id string, sentAt time.Time, debounce time.Duration) (bool, error) {
	query := `UPDATE device_commands
		SET last_sent_at = $1, send_count = send_count + 1
		WHERE id = $2 AND (last_sent_at IS NULL OR last_sent_at <= $3)`

	result, err := r.db.GetDB().ExecContext(ctx, query, sentAt, id, sentAt.Add(-debounce))
	if err != nil {
		return false, errors.NewDatabaseError("failed to mark command sent", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewDatabaseError("failed to get rows affected", err)
	}
	return rows > 0, nil
}

// Acknowledge only ever moves pending rows; done/failed are final and
// repeated acks fall through as no-ops.
func (r *CommandRepo) Acknowledge(ctx context.Context, farmID, id string, status models.CommandStatus, completedAt time.Time, actualDurationSec int) (bool, error) {
	query := `UPDATE device_commands
		SET status = $1, completed_at = $2, actual_duration_sec = $3
		WHERE id = $4 AND farm_id = $5 AND status = 'pending'`

	result, err := r.db.GetDB().ExecContext(ctx, query, status, completedAt, actualDurationSec, id, farmID)
	if err != nil {
		return false, errors.NewDatabaseError("failed to acknowledge command", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewDatabaseError("failed to get rows affected", err)
	}
	return rows > 0, nil
}

func (r *CommandRepo) HasPendingOn(ctx context.Context, farmID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM device_commands
		WHERE farm_id = $1 AND status = 'pending' AND command = 'ON')`

	err := r.db.GetDB().GetContext(ctx, &exists, query, farmID)
	if err != nil {
		return false, errors.NewDatabaseError("failed to check pending commands", err)
	}
	return exists, nil
}

func (r *CommandRepo) ScheduledKeyExists(ctx context.Context, farmID, key string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM device_commands
		WHERE farm_id = $1 AND command = 'ON' AND scheduled_key = $2)`

	err := r.db.GetDB().GetContext(ctx, &exists, query, farmID, key)
	if err != nil {
		return false, errors.NewDatabaseError("failed to check scheduled key", err)
	}
	return exists, nil
}

func (r *CommandRepo) FailPending(ctx context.Context, farmID, deviceID string, completedAt time.Time) (int64, error) {
	query := `UPDATE device_commands SET status = 'failed', completed_at = $1
		WHERE farm_id = $2 AND status = 'pending'`
	args := []interface{}{completedAt, farmID}

	if deviceID != "" {
		query += ` AND device_id = $3`
		args = append(args, deviceID)
	}

	result, err := r.db.GetDB().ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.NewDatabaseError("failed to cancel pending commands", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewDatabaseError("failed to get rows affected", err)
	}
	return rows, nil
}
