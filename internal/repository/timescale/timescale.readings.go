// FilePath: internal/repository/timescale/timescale.readings.go
package timescale

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kasetlab/farmhub/internal/database"
	"github.com/kasetlab/farmhub/internal/errors"
	"github.com/kasetlab/farmhub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

type ReadingRepo struct {
	db database.DB
}

func NewReadingRepository(db database.DB) (*ReadingRepo, error) {
	repo := &ReadingRepo{db: db}
	err := repo.initializeSchema()
	if err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *ReadingRepo) initializeSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS readings (
			id TEXT NOT NULL,
			farm_id TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			temperature DOUBLE PRECISION NOT NULL,
			humidity_air DOUBLE PRECISION NOT NULL,
			soil_moisture DOUBLE PRECISION NOT NULL,
			soil_raw_adc DOUBLE PRECISION NOT NULL DEFAULT 0,
			light_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
			light_raw_adc DOUBLE PRECISION NOT NULL DEFAULT 0,
			light_lux DOUBLE PRECISION NULL
		)`,
		`SELECT create_hypertable('readings', 'timestamp',
			chunk_time_interval => INTERVAL '1 day',
			if_not_exists => TRUE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_readings_farm_timestamp
			ON readings(farm_id, timestamp DESC)`,
		`CREATE TABLE IF NOT EXISTS derived_indices (
			farm_id TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			vpd DOUBLE PRECISION NOT NULL,
			gdd DOUBLE PRECISION NOT NULL,
			dew_point DOUBLE PRECISION NOT NULL,
			soil_drying_rate DOUBLE PRECISION NOT NULL,
			UNIQUE (farm_id, timestamp)
		)`,
		`SELECT create_hypertable('derived_indices', 'timestamp',
			chunk_time_interval => INTERVAL '1 day',
			if_not_exists => TRUE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_derived_indices_farm_timestamp
			ON derived_indices(farm_id, timestamp DESC)`,
	}

	for _, query := range queries {
		_, err := r.db.GetDB().Exec(query)
		if err != nil {
			return errors.NewDatabaseError("failed to initialize telemetry schema", err)
		}
	}

	r.setupRetentionPolicies()
	return nil
}

func (r *ReadingRepo) setupRetentionPolicies() {
	policies := []struct {
		table    string
		interval string
	}{
		{"readings", "13 months"},
		{"derived_indices", "13 months"},
	}

	for _, policy := range policies {
		query := fmt.Sprintf(`
			SELECT add_retention_policy('%s',
				INTERVAL '%s',
				if_not_exists => TRUE
			)`, policy.table, policy.interval)

		_, err := r.db.GetDB().Exec(query)
		if err != nil {
			nuts.L.Errorf("[TimescaleDB] Failed to set up retention policy for %s: %v", policy.table, err)
		}
	}
}

func (r *ReadingRepo) InsertReading(ctx context.Context, reading *models.Reading) error {
	query := `
		INSERT INTO readings (
			id, farm_id, timestamp, temperature, humidity_air, soil_moisture,
			soil_raw_adc, light_percent, light_raw_adc, light_lux
		) VALUES (
			:id, :farm_id, :timestamp, :temperature, :humidity_air, :soil_moisture,
			:soil_raw_adc, :light_percent, :light_raw_adc, :light_lux
		)`

	_, err := r.db.GetDB().NamedExecContext(ctx, query, reading)
	if err != nil {
		return errors.NewDatabaseError("failed to insert reading", err)
	}
	return nil
}

// InsertIndex skips duplicates: at most one derived row per (farm, timestamp)
func (r *ReadingRepo) InsertIndex(ctx context.Context, ix *models.DerivedIndex) error {
	query := `
		INSERT INTO derived_indices (
			farm_id, timestamp, vpd, gdd, dew_point, soil_drying_rate
		) VALUES (
			:farm_id, :timestamp, :vpd, :gdd, :dew_point, :soil_drying_rate
		)
		ON CONFLICT (farm_id, timestamp) DO NOTHING`

	_, err := r.db.GetDB().NamedExecContext(ctx, query, ix)
	if err != nil {
		return errors.NewDatabaseError("failed to insert derived index", err)
	}
	return nil
}

func (r *ReadingRepo) PreviousBefore(ctx context.Context, farmID string, ts time.Time) (*models.Reading, error) {
	reading := &models.Reading{}
	query := `SELECT * FROM readings
		WHERE farm_id = $1 AND timestamp < $2
		ORDER BY timestamp DESC LIMIT 1`

	err := r.db.GetDB().GetContext(ctx, reading, query, farmID, ts)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("no previous reading", err)
		}
		return nil, errors.NewDatabaseError("failed to get previous reading", err)
	}
	return reading, nil
}

func (r *ReadingRepo) Latest(ctx context.Context, farmID string) (*models.Reading, error) {
	reading := &models.Reading{}
	query := `SELECT * FROM readings WHERE farm_id = $1 ORDER BY timestamp DESC LIMIT 1`

	err := r.db.GetDB().GetContext(ctx, reading, query, farmID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("no readings for farm", err)
		}
		return nil, errors.NewDatabaseError("failed to get latest reading", err)
	}
	return reading, nil
}

// History returns the newest matching window, ordered oldest-first so the
// result plots directly as a time series.
func (r *ReadingRepo) History(ctx context.Context, farmID string, start, end time.Time, limit int) ([]*models.Reading, error) {
	readings := []*models.Reading{}
	query := `SELECT * FROM readings WHERE farm_id = $1`
	args := []interface{}{farmID}

	if !start.IsZero() {
		args = append(args, start)
		query += fmt.Sprintf(` AND timestamp >= $%d`, len(args))
	}
	if !end.IsZero() {
		args = append(args, end)
		query += fmt.Sprintf(` AND timestamp < $%d`, len(args))
	}
	args = append(args, limit)
	query = fmt.Sprintf(`SELECT * FROM (%s ORDER BY timestamp DESC LIMIT $%d) w
		ORDER BY timestamp ASC`, query, len(args))

	err := r.db.GetDB().SelectContext(ctx, &readings, query, args...)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to get reading history", err)
	}
	return readings, nil
}

func (r *ReadingRepo) LatestIndex(ctx context.Context, farmID string) (*models.DerivedIndex, error) {
	ix := &models.DerivedIndex{}
	query := `SELECT * FROM derived_indices WHERE farm_id = $1 ORDER BY timestamp DESC LIMIT 1`

	err := r.db.GetDB().GetContext(ctx, ix, query, farmID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("no derived indices for farm", err)
		}
		return nil, errors.NewDatabaseError("failed to get latest derived index", err)
	}
	return ix, nil
}

func (r *ReadingRepo) IndexHistory(ctx context.Context, farmID string, start, end time.Time, limit int) ([]*models.DerivedIndex, error) {
	indices := []*models.DerivedIndex{}
	query := `SELECT * FROM derived_indices WHERE farm_id = $1`
	args := []interface{}{farmID}

	if !start.IsZero() {
		args = append(args, start)
		query += fmt.Sprintf(` AND timestamp >= $%d`, len(args))
	}
	if !end.IsZero() {
		args = append(args, end)
		query += fmt.Sprintf(` AND timestamp < $%d`, len(args))
	}
	args = append(args, limit)
	query = fmt.Sprintf(`SELECT * FROM (%s ORDER BY timestamp DESC LIMIT $%d) w
		ORDER BY timestamp ASC`, query, len(args))

	err := r.db.GetDB().SelectContext(ctx, &indices, query, args...)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to get index history", err)
	}
	return indices, nil
}

// CountZero whitelists the column name; the metric comes from config-driven
// code, never from request input, but the guard keeps it that way.
func (r *ReadingRepo) CountZero(ctx context.Context, farmID string, field models.Metric, since time.Time) (int, error) {
	var column string
	switch field {
	case models.MetricTemperature:
		column = "temperature"
	case models.MetricHumidityAir:
		column = "humidity_air"
	case models.MetricSoilMoisture:
		column = "soil_moisture"
	default:
		return 0, errors.NewValidationError(fmt.Sprintf("metric %q has no zero-anomaly column", field), nil)
	}

	var count int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM readings
		WHERE farm_id = $1 AND timestamp >= $2 AND %s = 0`, column)

	err := r.db.GetDB().GetContext(ctx, &count, query, farmID, since)
	if err != nil {
		return 0, errors.NewDatabaseError("failed to count zero readings", err)
	}
	return count, nil
}
