// FilePath: internal/repository/postgres/postgres.devicestatus.go
package postgres

import (
	"context"

	"github.com/kasetlab/farmhub/internal/database"
	"github.com/kasetlab/farmhub/internal/errors"
	"github.com/kasetlab/farmhub/internal/models"
)

type DeviceStatusRepo struct {
	PostgresBaseRepo
}

func NewDeviceStatusRepository(db database.DB) (*DeviceStatusRepo, error) {
	repo := &DeviceStatusRepo{PostgresBaseRepo: PostgresBaseRepo{db: db}}
	if err := repo.initializeSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *DeviceStatusRepo) initializeSchema() error {
	query := `
		CREATE TABLE IF NOT EXISTS device_statuses (
			farm_id TEXT NOT NULL,
			device_key TEXT NOT NULL,
			ip TEXT NOT NULL DEFAULT '',
			wifi_rssi INTEGER NULL,
			fw_version TEXT NOT NULL DEFAULT '',
			pump_state TEXT NOT NULL DEFAULT 'OFF',
			uptime_sec BIGINT NULL,
			dht_ok BOOLEAN NOT NULL DEFAULT TRUE,
			soil_ok BOOLEAN NOT NULL DEFAULT TRUE,
			light_ok BOOLEAN NOT NULL DEFAULT TRUE,
			light_raw_adc DOUBLE PRECISION NULL,
			light_percent DOUBLE PRECISION NULL,
			last_seen_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (farm_id, device_key)
		)`

	_, err := r.db.GetDB().Exec(query)
	if err != nil {
		return errors.NewDatabaseError("failed to initialize device_statuses schema", err)
	}
	return nil
}

func (r *DeviceStatusRepo) Upsert(ctx context.Context, status *models.DeviceStatus) error {
	query := `
		INSERT INTO device_statuses (
			farm_id, device_key, ip, wifi_rssi, fw_version, pump_state,
			uptime_sec, dht_ok, soil_ok, light_ok, light_raw_adc,
			light_percent, last_seen_at
		) VALUES (
			:farm_id, :device_key, :ip, :wifi_rssi, :fw_version, :pump_state,
			:uptime_sec, :dht_ok, :soil_ok, :light_ok, :light_raw_adc,
			:light_percent, :last_seen_at
		)
		ON CONFLICT (farm_id, device_key) DO UPDATE SET
			ip = EXCLUDED.ip,
			wifi_rssi = EXCLUDED.wifi_rssi,
			fw_version = EXCLUDED.fw_version,
			pump_state = EXCLUDED.pump_state,
			uptime_sec = EXCLUDED.uptime_sec,
			dht_ok = EXCLUDED.dht_ok,
			soil_ok = EXCLUDED.soil_ok,
			light_ok = EXCLUDED.light_ok,
			light_raw_adc = EXCLUDED.light_raw_adc,
			light_percent = EXCLUDED.light_percent,
			last_seen_at = EXCLUDED.last_seen_at`

	_, err := r.db.GetDB().NamedExecContext(ctx, query, status)
	if err != nil {
		return errors.NewDatabaseError("failed to upsert device status", err)
	}
	return nil
}

func (r *DeviceStatusRepo) ListByFarm(ctx context.Context, farmID string) ([]*models.DeviceStatus, error) {
	statuses := []*models.DeviceStatus{}
	query := `SELECT * FROM device_statuses WHERE farm_id = $1 ORDER BY last_seen_at DESC`

	err := r.db.GetDB().SelectContext(ctx, &statuses, query, farmID)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list device statuses", err)
	}
	return statuses, nil
}
