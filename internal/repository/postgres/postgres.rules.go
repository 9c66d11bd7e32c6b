// FilePath: internal/repository/postgres/postgres.rules.go
package postgres

import (
	"context"
	"database/sql"

	"github.com/kasetlab/farmhub/internal/database"
	"github.com/kasetlab/farmhub/internal/errors"
	"github.com/kasetlab/farmhub/internal/models"
)

type RuleRepo struct {
	PostgresBaseRepo
}

func NewRuleRepository(db database.DB) (*RuleRepo, error) {
	repo := &RuleRepo{PostgresBaseRepo: PostgresBaseRepo{db: db}}
	if err := repo.initializeSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *RuleRepo) initializeSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS alert_rules (
			id TEXT PRIMARY KEY,
			farm_id TEXT NOT NULL,
			metric TEXT NOT NULL,
			operator TEXT NOT NULL,
			threshold DOUBLE PRECISION NOT NULL,
			message TEXT NOT NULL,
			enabled BOOLEAN NOT NULL DEFAULT TRUE,
			action TEXT NOT NULL DEFAULT 'none',
			duration_sec INTEGER NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alert_rules_farm_enabled
			ON alert_rules(farm_id, enabled)`,
	}

	for _, query := range queries {
		if _, err := r.db.GetDB().Exec(query); err != nil {
			return errors.NewDatabaseError("failed to initialize alert_rules schema", err)
		}
	}
	return nil
}

func (r *RuleRepo) Create(ctx context.Context, rule *models.AlertRule) error {
	query := `
		INSERT INTO alert_rules (
			id, farm_id, metric, operator, threshold, message, enabled,
			action, duration_sec, created_at, updated_at
		) VALUES (
			:id, :farm_id, :metric, :operator, :threshold, :message, :enabled,
			:action, :duration_sec, :created_at, :updated_at
		)`

	_, err := r.db.GetDB().NamedExecContext(ctx, query, rule)
	if err != nil {
		return errors.NewDatabaseError("failed to create alert rule", err)
	}
	return nil
}

func (r *RuleRepo) Get(ctx context.Context, farmID, id string) (*models.AlertRule, error) {
	rule := &models.AlertRule{}
	query := `SELECT * FROM alert_rules WHERE id = $1 AND farm_id = $2`

	err := r.db.GetDB().GetContext(ctx, rule, query, id, farmID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("alert rule not found", err)
		}
		return nil, errors.NewDatabaseError("failed to get alert rule", err)
	}
	return rule, nil
}

func (r *RuleRepo) Update(ctx context.Context, rule *models.AlertRule) error {
	query := `
		UPDATE alert_rules SET
			metric = :metric,
			operator = :operator,
			threshold = :threshold,
			message = :message,
			enabled = :enabled,
			action = :action,
			duration_sec = :duration_sec,
			updated_at = :updated_at
		WHERE id = :id AND farm_id = :farm_id`

	result, err := r.db.GetDB().NamedExecContext(ctx, query, rule)
	if err != nil {
		return errors.NewDatabaseError("failed to update alert rule", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		return errors.NewNotFoundError("alert rule not found", nil)
	}
	return nil
}

func (r *RuleRepo) Delete(ctx context.Context, farmID, id string) error {
	query := `DELETE FROM alert_rules WHERE id = $1 AND farm_id = $2`

	result, err := r.db.GetDB().ExecContext(ctx, query, id, farmID)
	if err != nil {
		return errors.NewDatabaseError("failed to delete alert rule", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		return errors.NewNotFoundError("alert rule not found", nil)
	}
	return nil
}

func (r *RuleRepo) ListByFarm(ctx context.Context, farmID string, onlyEnabled bool) ([]*models.AlertRule, error) {
	rules := []*models.AlertRule{}
	query := `SELECT * FROM alert_rules WHERE farm_id = $1`
	if onlyEnabled {
		query += ` AND enabled = TRUE`
	}
	query += ` ORDER BY created_at DESC`

	err := r.db.GetDB().SelectContext(ctx, &rules, query, farmID)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list alert rules", err)
	}
	return rules, nil
}
