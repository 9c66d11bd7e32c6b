package farmservice

import (
	"context"
	"time"

	"github.com/kasetlab/farmhub/internal/errors"
	"github.com/kasetlab/farmhub/internal/models"
)

// TelemetrySnapshot pairs the newest reading with the newest derived index
type TelemetrySnapshot struct {
	Reading *models.Reading      `json:"reading"`
	Index   *models.DerivedIndex `json:"index,omitempty"`
}

// LatestTelemetry returns the farm's most recent sample. A missing derived
// index is tolerated (the first ever reading may not have one yet); a farm
// with no readings at all is a not-found.
func (s *FarmService) LatestTelemetry(ctx context.Context, farmID string) (*TelemetrySnapshot, error) {
	reading, err := s.Readings.Latest(ctx, farmID)
	if err != nil {
		return nil, err
	}

	snapshot := &TelemetrySnapshot{Reading: reading}
	ix, err := s.Readings.LatestIndex(ctx, farmID)
	if err == nil {
		snapshot.Index = ix
	} else if !errors.IsNotFound(err) {
		return nil, err
	}
	return snapshot, nil
}

func clampHistoryLimit(limit int) int {
	if limit <= 0 {
		return 500
	}
	if limit > 5000 {
		return 5000
	}
	return limit
}

// ReadingHistory returns the newest raw readings in ascending time order,
// optionally bounded by [start, end)
func (s *FarmService) ReadingHistory(ctx context.Context, farmID string, start, end time.Time, limit int) ([]*models.Reading, error) {
	if farmID == "" {
		return nil, errors.NewValidationError("farm_id is required", nil)
	}
	return s.Readings.History(ctx, farmID, start, end, clampHistoryLimit(limit))
}

// IndexHistory returns the newest derived indices in ascending time order,
// optionally bounded by [start, end)
func (s *FarmService) IndexHistory(ctx context.Context, farmID string, start, end time.Time, limit int) ([]*models.DerivedIndex, error) {
	if farmID == "" {
		return nil, errors.NewValidationError("farm_id is required", nil)
	}
	return s.Readings.IndexHistory(ctx, farmID, start, end, clampHistoryLimit(limit))
}

// ListNotifications returns the farm's newest notifications
func (s *FarmService) ListNotifications(ctx context.Context, farmID string, limit int) ([]*models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.Notifications.List(ctx, farmID, limit)
}

// MarkNotificationRead flags one notification as read
func (s *FarmService) MarkNotificationRead(ctx context.Context, farmID, id string) error {
	return s.Notifications.MarkRead(ctx, farmID, id)
}
