// FilePath: internal/repository/postgres/postgres.settings.go
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/kasetlab/farmhub/internal/database"
	"github.com/kasetlab/farmhub/internal/errors"
	"github.com/kasetlab/farmhub/internal/models"
)

type SettingsRepo struct {
	PostgresBaseRepo
}

func NewSettingsRepository(db database.DB) (*SettingsRepo, error) {
	repo := &SettingsRepo{PostgresBaseRepo: PostgresBaseRepo{db: db}}
	if err := repo.initializeSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *SettingsRepo) initializeSchema() error {
	query := `
		CREATE TABLE IF NOT EXISTS farm_settings (
			farm_id TEXT PRIMARY KEY,
			device_key TEXT NOT NULL DEFAULT '',
			auto_soil_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			auto_soil_start_at DOUBLE PRECISION NOT NULL DEFAULT 35,
			watering_duration_sec INTEGER NOT NULL DEFAULT 30,
			watering_cooldown_min INTEGER NOT NULL DEFAULT 10,
			pump_paused BOOLEAN NOT NULL DEFAULT FALSE,
			sampling_interval_min INTEGER NOT NULL DEFAULT 1,
			pump_flow_rate_lpm DOUBLE PRECISION NOT NULL DEFAULT 0,
			schedules JSONB NOT NULL DEFAULT '[]',
			webhooks JSONB NOT NULL DEFAULT '[]',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`

	_, err := r.db.GetDB().Exec(query)
	if err != nil {
		return errors.NewDatabaseError("failed to initialize farm_settings schema", err)
	}
	return nil
}

func (r *SettingsRepo) Get(ctx context.Context, farmID string) (*models.FarmSetting, error) {
	setting := &models.FarmSetting{}
	query := `SELECT * FROM farm_settings WHERE farm_id = $1`

	err := r.db.GetDB().GetContext(ctx, setting, query, farmID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("farm settings not found", err)
		}
		return nil, errors.NewDatabaseError("failed to get farm settings", err)
	}
	return setting, nil
}

func (r *SettingsRepo) Upsert(ctx context.Context, setting *models.FarmSetting) error {
	query := `
		INSERT INTO farm_settings (
			farm_id, device_key, auto_soil_enabled, auto_soil_start_at,
			watering_duration_sec, watering_cooldown_min, pump_paused,
			sampling_interval_min, pump_flow_rate_lpm, schedules, webhooks, updated_at
		) VALUES (
			:farm_id, :device_key, :auto_soil_enabled, :auto_soil_start_at,
			:watering_duration_sec, :watering_cooldown_min, :pump_paused,
			:sampling_interval_min, :pump_flow_rate_lpm, :schedules, :webhooks, :updated_at
		)
		ON CONFLICT (farm_id) DO UPDATE SET
			device_key = EXCLUDED.device_key,
			auto_soil_enabled = EXCLUDED.auto_soil_enabled,
			auto_soil_start_at = EXCLUDED.auto_soil_start_at,
			watering_duration_sec = EXCLUDED.watering_duration_sec,
			watering_cooldown_min = EXCLUDED.watering_cooldown_min,
			pump_paused = EXCLUDED.pump_paused,
			sampling_interval_min = EXCLUDED.sampling_interval_min,
			pump_flow_rate_lpm = EXCLUDED.pump_flow_rate_lpm,
			schedules = EXCLUDED.schedules,
			webhooks = EXCLUDED.webhooks,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.GetDB().NamedExecContext(ctx, query, setting)
	if err != nil {
		return errors.NewDatabaseError("failed to upsert farm settings", err)
	}
	return nil
}

// ClaimDeviceKey is conditional so that two devices racing on first contact
// cannot both claim the farm: only the update that still sees a blank key
// wins.
func (r *SettingsRepo) ClaimDeviceKey(ctx context.Context, farmID, key string) (bool, error) {
	query := `UPDATE farm_settings SET device_key = $1, updated_at = $2
		WHERE farm_id = $3 AND device_key = ''`

	result, err := r.db.GetDB().ExecContext(ctx, query, key, time.Now(), farmID)
	if err != nil {
		return false, errors.NewDatabaseError("failed to claim device key", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewDatabaseError("failed to get rows affected", err)
	}
	return rows > 0, nil
}

func (r *SettingsRepo) ListScheduled(ctx context.Context) ([]*models.FarmSetting, error) {
	settings := []*models.FarmSetting{}
	query := `SELECT * FROM farm_settings WHERE schedules != '[]'::jsonb ORDER BY farm_id`

	err := r.db.GetDB().SelectContext(ctx, &settings, query)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list scheduled farm settings", err)
	}
	return settings, nil
}
