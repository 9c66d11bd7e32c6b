package farmservice

import (
	"context"

	"github.com/kasetlab/farmhub/internal/agronomy"
	"github.com/kasetlab/farmhub/internal/errors"
	"github.com/kasetlab/farmhub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

func (s *FarmService) validateRule(rule *models.AlertRule) error {
	if rule.FarmID == "" {
		return errors.NewValidationError("farm_id is required", nil)
	}
	if !models.ValidMetric(rule.Metric) {
		return errors.NewValidationError("unknown rule metric: "+string(rule.Metric), nil)
	}
	switch rule.Operator {
	case models.OperatorLessThan, models.OperatorGreaterThan:
	default:
		return errors.NewValidationError("operator must be lt or gt", nil)
	}
	if !agronomy.Finite(rule.Threshold) {
		return errors.NewValidationError("threshold must be a finite number", nil)
	}
	switch rule.Action {
	case models.ActionNone, models.ActionWater, models.ActionMist:
	default:
		return errors.NewValidationError("action must be none, water or mist", nil)
	}
	if rule.DurationSec != nil {
		clamped := s.clampDuration(*rule.DurationSec)
		rule.DurationSec = &clamped
	}
	return nil
}

// CreateAlertRule validates and stores a new threshold rule
func (s *FarmService) CreateAlertRule(ctx context.Context, rule *models.AlertRule) error {
	if rule.Action == "" {
		rule.Action = models.ActionNone
	}
	if err := s.validateRule(rule); err != nil {
		return err
	}

	if rule.ID == "" {
		rule.ID = nuts.NID("rul", 12)
	}
	now := s.now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	nuts.L.Infof("[Rules] Creating rule %s for farm %s: %s %s %.2f",
		rule.ID, rule.FarmID, rule.Metric, rule.Operator, rule.Threshold)
	return s.Rules.Create(ctx, rule)
}

// GetAlertRule returns one rule scoped to the farm
func (s *FarmService) GetAlertRule(ctx context.Context, farmID, id string) (*models.AlertRule, error) {
	return s.Rules.Get(ctx, farmID, id)
}

// UpdateAlertRule replaces an existing rule after validation
func (s *FarmService) UpdateAlertRule(ctx context.Context, rule *models.AlertRule) error {
	existing, err := s.Rules.Get(ctx, rule.FarmID, rule.ID)
	if err != nil {
		return err
	}
	if rule.Action == "" {
		rule.Action = models.ActionNone
	}
	if err := s.validateRule(rule); err != nil {
		return err
	}

	rule.CreatedAt = existing.CreatedAt
	rule.UpdatedAt = s.now().UTC()

	nuts.L.Infof("[Rules] Updating rule %s for farm %s", rule.ID, rule.FarmID)
	return s.Rules.Update(ctx, rule)
}

// DeleteAlertRule removes a rule
func (s *FarmService) DeleteAlertRule(ctx context.Context, farmID, id string) error {
	nuts.L.Infof("[Rules] Deleting rule %s for farm %s", id, farmID)
	return s.Rules.Delete(ctx, farmID, id)
}

// ListAlertRules returns every rule for the farm, enabled or not
func (s *FarmService) ListAlertRules(ctx context.Context, farmID string) ([]*models.AlertRule, error) {
	return s.Rules.ListByFarm(ctx, farmID, false)
}
