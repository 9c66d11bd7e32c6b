package farmservice

import (
	"context"

	"github.com/kasetlab/farmhub/internal/agronomy"
	"github.com/kasetlab/farmhub/internal/errors"
	"github.com/kasetlab/farmhub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// StatusReport is the device's heartbeat payload. Health flags are optional;
// a flag the firmware does not report counts as healthy.
type StatusReport struct {
	FarmID       string   `json:"farm_id"`
	DeviceKey    string   `json:"device_key"`
	IP           string   `json:"ip"`
	WifiRSSI     *int     `json:"wifi_rssi,omitempty"`
	FWVersion    string   `json:"fw_version"`
	PumpState    string   `json:"pump_state"`
	UptimeSec    *int64   `json:"uptime_sec,omitempty"`
	DHTOk        *bool    `json:"dht_ok,omitempty"`
	SoilOk       *bool    `json:"soil_ok,omitempty"`
	LightOk      *bool    `json:"light_ok,omitempty"`
	LightRawADC  *float64 `json:"light_raw_adc,omitempty"`
	LightPercent *float64 `json:"light_percent,omitempty"`
}

// ReportDeviceStatus authenticates the device (same key and claim semantics
// as sensor ingest) and overwrites its heartbeat row.
func (s *FarmService) ReportDeviceStatus(ctx context.Context, report *StatusReport) (*models.DeviceStatus, error) {
	setting, err := s.authenticateDevice(ctx, report.FarmID, report.DeviceKey)
	if err != nil {
		return nil, err
	}

	status := &models.DeviceStatus{
		FarmID:     setting.FarmID,
		DeviceKey:  report.DeviceKey,
		IP:         report.IP,
		WifiRSSI:   report.WifiRSSI,
		FWVersion:  report.FWVersion,
		PumpState:  models.CommandOff,
		UptimeSec:  report.UptimeSec,
		DHTOk:      report.DHTOk == nil || *report.DHTOk,
		SoilOk:     report.SoilOk == nil || *report.SoilOk,
		LightOk:    report.LightOk == nil || *report.LightOk,
		LastSeenAt: s.now().UTC(),
	}
	if report.PumpState == string(models.CommandOn) {
		status.PumpState = models.CommandOn
	}
	if report.LightRawADC != nil && agronomy.Finite(*report.LightRawADC) {
		v := *report.LightRawADC
		status.LightRawADC = &v
	}
	if report.LightPercent != nil && agronomy.Finite(*report.LightPercent) {
		v := *report.LightPercent
		status.LightPercent = &v
	}

	if err := s.Statuses.Upsert(ctx, status); err != nil {
		return nil, err
	}

	nuts.L.Infof("[DeviceStatus] Farm %s heartbeat (pump %s, fw %s)",
		setting.FarmID, status.PumpState, status.FWVersion)
	s.Monitor.RecordEvent("device.status", map[string]string{"farm_id": setting.FarmID})
	return status, nil
}

// ListDeviceStatus returns the farm's device heartbeats, most recently seen
// first
func (s *FarmService) ListDeviceStatus(ctx context.Context, farmID string) ([]*models.DeviceStatus, error) {
	if farmID == "" {
		return nil, errors.NewValidationError("farm_id is required", nil)
	}
	return s.Statuses.ListByFarm(ctx, farmID)
}
