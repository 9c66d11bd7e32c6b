// FilePath: internal/repository/postgres/postgres.notifications.go
package postgres

import (
	"context"
	"time"

	"github.com/kasetlab/farmhub/internal/database"
	"github.com/kasetlab/farmhub/internal/errors"
	"github.com/kasetlab/farmhub/internal/models"
)

type NotificationRepo struct {
	PostgresBaseRepo
}

func NewNotificationRepository(db database.DB) (*NotificationRepo, error) {
	repo := &NotificationRepo{PostgresBaseRepo: PostgresBaseRepo{db: db}}
	if err := repo.initializeSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *NotificationRepo) initializeSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS notifications (
			id TEXT PRIMARY KEY,
			farm_id TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			alert_type TEXT NOT NULL,
			details TEXT NOT NULL,
			severity TEXT NOT NULL DEFAULT 'low',
			is_read BOOLEAN NOT NULL DEFAULT FALSE,
			sent_to TEXT NOT NULL DEFAULT 'discord',
			sent_status TEXT NOT NULL DEFAULT 'success',
			rule_id TEXT NULL,
			recommended_action TEXT NOT NULL DEFAULT '',
			recommended_duration_sec INTEGER NULL
		)`,
		// Supports the dedup window lookup on every evaluation
		`CREATE INDEX IF NOT EXISTS idx_notifications_farm_type_ts
			ON notifications(farm_id, alert_type, timestamp DESC)`,
	}

	for _, query := range queries {
		if _, err := r.db.GetDB().Exec(query); err != nil {
			return errors.NewDatabaseError("failed to initialize notifications schema", err)
		}
	}
	return nil
}

func (r *NotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (
			id, farm_id, timestamp, alert_type, details, severity, is_read,
			sent_to, sent_status, rule_id, recommended_action, recommended_duration_sec
		) VALUES (
			:id, :farm_id, :timestamp, :alert_type, :details, :severity, :is_read,
			:sent_to, :sent_status, :rule_id, :recommended_action, :recommended_duration_sec
		)`

	_, err := r.db.GetDB().NamedExecContext(ctx, query, n)
	if err != nil {
		return errors.NewDatabaseError("failed to create notification", err)
	}
	return nil
}

func (r *NotificationRepo) ExistsSince(ctx context.Context, farmID, alertType string, since time.Time) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM notifications
		WHERE farm_id = $1 AND alert_type = $2 AND timestamp >= $3)`

	err := r.db.GetDB().GetContext(ctx, &exists, query, farmID, alertType, since)
	if err != nil {
		return false, errors.NewDatabaseError("failed to check notification window", err)
	}
	return exists, nil
}

func (r *NotificationRepo) List(ctx context.Context, farmID string, limit int) ([]*models.Notification, error) {
	list := []*models.Notification{}
	query := `SELECT * FROM notifications WHERE farm_id = $1 ORDER BY timestamp DESC LIMIT $2`

	err := r.db.GetDB().SelectContext(ctx, &list, query, farmID, limit)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list notifications", err)
	}
	return list, nil
}

func (r *NotificationRepo) MarkRead(ctx context.Context, farmID, id string) error {
	query := `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND farm_id = $2`

	result, err := r.db.GetDB().ExecContext(ctx, query, id, farmID)
	if err != nil {
		return errors.NewDatabaseError("failed to mark notification read", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		return errors.NewNotFoundError("notification not found", nil)
	}
	return nil
}
