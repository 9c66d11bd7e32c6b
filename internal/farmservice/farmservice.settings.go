package farmservice

import (
	"context"

	"github.com/itsatony/struccy"
	"github.com/kasetlab/farmhub/internal/errors"
	"github.com/kasetlab/farmhub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// defaultSettings mirrors the column defaults of the settings store, so a
// farm that was never configured behaves the same whether or not its row
// exists yet.
func defaultSettings(farmID string) *models.FarmSetting {
	return &models.FarmSetting{
		FarmID:              farmID,
		AutoSoilEnabled:     false,
		AutoSoilStartAt:     35,
		WateringDurationSec: 30,
		WateringCooldownMin: 10,
		SamplingIntervalMin: 1,
		Schedules:           models.ScheduleList{},
		Webhooks:            models.WebhookList{},
	}
}

func (s *FarmService) loadOrDefaultSettings(ctx context.Context, farmID string) (*models.FarmSetting, error) {
	setting, err := s.Settings.Get(ctx, farmID)
	if err != nil {
		if errors.IsNotFound(err) {
			return defaultSettings(farmID), nil
		}
		return nil, err
	}
	return setting, nil
}

// GetFarmSettings returns the farm's settings with role-based field
// filtering: the device key and webhook list are only visible to admin and
// system callers.
func (s *FarmService) GetFarmSettings(ctx context.Context, farmID string) (*models.FarmSetting, error) {
	if farmID == "" {
		return nil, errors.NewValidationError("farm_id is required", nil)
	}

	setting, err := s.loadOrDefaultSettings(ctx, farmID)
	if err != nil {
		return nil, err
	}

	roles := GetUserRoles(ctx)
	filteredMap, err := struccy.StructToMapFieldsWithReadXS(setting, roles)
	if err != nil {
		return nil, errors.NewInternalError("failed to filter settings fields", err)
	}
	filtered := &models.FarmSetting{}
	_, err = struccy.MergeMapStringFieldsToStruct(filtered, filteredMap, roles)
	if err != nil {
		return nil, errors.NewInternalError("failed to map filtered settings fields", err)
	}
	return filtered, nil
}

// UpdateFarmSettings applies a partial update: nil patch fields keep the
// stored value. Restricted fields (device key, webhooks) are silently
// dropped for callers without the admin or system role. Schedules are
// normalized before they are stored, so the ticker only ever sees canonical
// HH:mm times and weekday sets.
func (s *FarmService) UpdateFarmSettings(ctx context.Context, farmID string, patch *models.FarmSettingPatch) (*models.FarmSetting, error) {
	if farmID == "" {
		return nil, errors.NewValidationError("farm_id is required", nil)
	}
	if patch == nil {
		return nil, errors.NewValidationError("empty settings patch", nil)
	}

	setting, err := s.loadOrDefaultSettings(ctx, farmID)
	if err != nil {
		return nil, err
	}

	roles := GetUserRoles(ctx)
	privileged := hasRole(roles, "admin", "system")

	if patch.AutoSoilEnabled != nil {
		setting.AutoSoilEnabled = *patch.AutoSoilEnabled
	}
	if patch.AutoSoilStartAt != nil {
		v := *patch.AutoSoilStartAt
		if v < 0 {
			v = 0
		}
		if v > 100 {
			v = 100
		}
		setting.AutoSoilStartAt = v
	}
	if patch.WateringDurationSec != nil {
		setting.WateringDurationSec = s.clampDuration(*patch.WateringDurationSec)
	}
	if patch.WateringCooldownMin != nil {
		v := *patch.WateringCooldownMin
		if v < 1 {
			v = 1
		}
		if v > 1440 {
			v = 1440
		}
		setting.WateringCooldownMin = v
	}
	if patch.PumpPaused != nil {
		setting.PumpPaused = *patch.PumpPaused
	}
	if patch.SamplingIntervalMin != nil {
		v := *patch.SamplingIntervalMin
		if v < 1 {
			v = 1
		}
		if v > 1440 {
			v = 1440
		}
		setting.SamplingIntervalMin = v
	}
	if patch.PumpFlowRateLPM != nil && *patch.PumpFlowRateLPM >= 0 {
		setting.PumpFlowRateLPM = *patch.PumpFlowRateLPM
	}
	if patch.Schedules != nil {
		schedules := make(models.ScheduleList, len(*patch.Schedules))
		copy(schedules, *patch.Schedules)
		for i := range schedules {
			schedules[i].Normalize(s.Watering.MinDurationSec, s.Watering.MaxDurationSec)
		}
		setting.Schedules = schedules
	}
	if patch.DeviceKey != nil {
		if privileged {
			setting.DeviceKey = *patch.DeviceKey
		} else {
			nuts.L.Warnf("[Settings] Dropping device_key update for farm %s: caller lacks admin role", farmID)
		}
	}
	if patch.Webhooks != nil {
		if privileged {
			webhooks := make(models.WebhookList, len(*patch.Webhooks))
			copy(webhooks, *patch.Webhooks)
			setting.Webhooks = webhooks
		} else {
			nuts.L.Warnf("[Settings] Dropping webhooks update for farm %s: caller lacks admin role", farmID)
		}
	}

	setting.UpdatedAt = s.now().UTC()
	if err := s.Settings.Upsert(ctx, setting); err != nil {
		return nil, err
	}
	if s.Cache != nil {
		s.Cache.Invalidate(ctx, farmID)
	}

	nuts.L.Infof("[Settings] Updated settings for farm %s", farmID)
	return setting, nil
}
