package farmservice

import (
	"context"
	"fmt"
	"time"

	"github.com/kasetlab/farmhub/internal/agronomy"
	"github.com/kasetlab/farmhub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// Zero-anomaly checks cover the raw fields where a hard zero means a
// disconnected or shorted sensor rather than a plausible measurement.
var zeroCheckedFields = []struct {
	metric models.Metric
	label  string
}{
	{models.MetricTemperature, "Temperature"},
	{models.MetricHumidityAir, "Air humidity"},
	{models.MetricSoilMoisture, "Soil moisture"},
}

// checkZeroAnomalies flags sensors that keep reporting exactly zero. More
// than the configured count inside the window raises one notification per
// affected field.
func (s *FarmService) checkZeroAnomalies(ctx context.Context, setting *models.FarmSetting, ts time.Time) error {
	since := ts.Add(-s.Alerting.ZeroWindow)

	var firstErr error
	for _, f := range zeroCheckedFields {
		count, err := s.Readings.CountZero(ctx, setting.FarmID, f.metric, since)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if count <= s.Alerting.ZeroCount {
			continue
		}

		n := &models.Notification{
			AlertType: "sensor_zero_" + string(f.metric),
			Details: fmt.Sprintf("%s read exactly zero %d times in the last %d minutes; the sensor is likely disconnected",
				f.label, count, int(s.Alerting.ZeroWindow.Minutes())),
			Severity: models.SeverityMedium,
		}
		if err := s.emitNotification(ctx, setting, n, true); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// evaluateRules runs every enabled alert rule for the farm against the new
// reading and its derived indices. Non-finite metric values are skipped, so
// a broken sensor never trips a threshold.
func (s *FarmService) evaluateRules(ctx context.Context, setting *models.FarmSetting, reading *models.Reading, ix *models.DerivedIndex) error {
	rules, err := s.Rules.ListByFarm(ctx, setting.FarmID, true)
	if err != nil {
		return err
	}

	var firstErr error
	for _, rule := range rules {
		value := models.MetricValue(rule.Metric, reading, ix)
		if !agronomy.Finite(value) {
			continue
		}

		hit := false
		switch rule.Operator {
		case models.OperatorLessThan:
			hit = value < rule.Threshold
		case models.OperatorGreaterThan:
			hit = value > rule.Threshold
		}
		if !hit {
			continue
		}

		ruleID := rule.ID
		n := &models.Notification{
			AlertType: "rule_" + rule.ID,
			Details:   ruleDetails(rule, value),
			Severity:  models.SeverityMedium,
			RuleID:    &ruleID,
		}
		// The rule action is advisory: it rides on the notification for the
		// dashboard, it never enqueues a command by itself.
		if rule.Action == models.ActionWater || rule.Action == models.ActionMist {
			n.RecommendedAction = string(rule.Action)
			requested := setting.WateringDurationSec
			if rule.DurationSec != nil {
				requested = *rule.DurationSec
			}
			duration := s.clampDuration(requested)
			n.RecommendedDurationSec = &duration
		}

		// Rule hits are advisory: they land in the notification feed for the
		// dashboard but are not pushed to the webhooks.
		if err := s.emitNotification(ctx, setting, n, false); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func ruleDetails(rule *models.AlertRule, value float64) string {
	if rule.Message != "" {
		return fmt.Sprintf("%s (%s = %.2f)", rule.Message, rule.Metric, value)
	}
	direction := "below"
	if rule.Operator == models.OperatorGreaterThan {
		direction = "above"
	}
	return fmt.Sprintf("%s is %s %.2f (current value %.2f)", rule.Metric, direction, rule.Threshold, value)
}

// autoSoilWater enqueues a pump command when soil moisture drops to the
// configured trigger. Idempotency comes from the cooldown bucket key: one
// command per farm per cooldown interval, enforced again by a unique index
// in the command store.
func (s *FarmService) autoSoilWater(ctx context.Context, setting *models.FarmSetting, reading *models.Reading) error {
	if !setting.AutoSoilEnabled || setting.PumpPaused {
		return nil
	}
	if reading.SoilMoisture > setting.AutoSoilStartAt {
		return nil
	}

	cooldownMin := setting.WateringCooldownMin
	if cooldownMin < 1 {
		cooldownMin = 1
	}
	if cooldownMin > 1440 {
		cooldownMin = 1440
	}
	bucket := s.now().UnixMilli() / (int64(cooldownMin) * 60_000)
	key := fmt.Sprintf("soil|%s|%d", setting.FarmID, bucket)

	if pending, err := s.Commands.HasPendingOn(ctx, setting.FarmID); err != nil {
		return err
	} else if pending {
		return nil
	}
	if exists, err := s.Commands.ScheduledKeyExists(ctx, setting.FarmID, key); err != nil {
		return err
	} else if exists {
		return nil
	}

	cmd := &models.DeviceCommand{
		ID:           nuts.NID("cmd", 12),
		FarmID:       setting.FarmID,
		DeviceID:     models.DevicePump,
		Command:      models.CommandOn,
		DurationSec:  s.clampDuration(setting.WateringDurationSec),
		Status:       models.CommandPending,
		Source:       models.SourceAuto,
		Timestamp:    s.now().UTC(),
		ScheduledKey: &key,
	}
	if err := s.Commands.Create(ctx, cmd); err != nil {
		return err
	}

	nuts.L.Infof("[AutoSoil] Farm %s soil at %.1f%% (trigger %.1f%%), watering %ds",
		setting.FarmID, reading.SoilMoisture, setting.AutoSoilStartAt, cmd.DurationSec)
	s.Monitor.RecordEvent("command.auto_soil", map[string]string{"farm_id": setting.FarmID})
	s.events.Emit("command.created", cmd.ID)
	return nil
}

// emitNotification applies the dedup window and persists the notification.
// With deliver set it is first pushed to the farm's enabled webhooks and the
// outcome recorded; without it the notification stays in-feed only. Inside
// the window for the same alert type it is a silent no-op.
func (s *FarmService) emitNotification(ctx context.Context, setting *models.FarmSetting, n *models.Notification, deliver bool) error {
	now := s.now().UTC()

	dup, err := s.Notifications.ExistsSince(ctx, setting.FarmID, n.AlertType, now.Add(-s.Alerting.DedupWindow))
	if err != nil {
		return err
	}
	if dup {
		return nil
	}

	n.ID = nuts.NID("ntf", 12)
	n.FarmID = setting.FarmID
	n.Timestamp = now
	if n.Severity == "" {
		n.Severity = models.SeverityLow
	}

	delivered, failed := 0, 0
	if deliver {
		for _, hook := range setting.Webhooks {
			if !hook.Enabled {
				continue
			}
			if err := s.Notifier.Send(ctx, hook.URL, n.Details); err != nil {
				failed++
				nuts.L.Warnf("[Alerting] Webhook delivery failed for farm %s: %v", setting.FarmID, err)
				continue
			}
			delivered++
		}
	}

	switch {
	case delivered > 0:
		n.SentTo = "discord"
		n.SentStatus = models.SentStatusSuccess
	case failed > 0:
		n.SentTo = "discord"
		n.SentStatus = models.SentStatusFailed
	default:
		// Advisory, or no delivery endpoints; it still lands in the feed
		n.SentTo = "system"
		n.SentStatus = models.SentStatusSuccess
	}

	if err := s.Notifications.Create(ctx, n); err != nil {
		return err
	}

	nuts.L.Infof("[Alerting] Notification %s (%s) created for farm %s", n.ID, n.AlertType, setting.FarmID)
	s.Monitor.RecordEvent("notification.created", map[string]string{
		"farm_id":    setting.FarmID,
		"alert_type": n.AlertType,
	})
	return nil
}
