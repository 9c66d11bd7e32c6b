package farmservice

import (
	"context"
	"time"

	"github.com/kasetlab/farmhub/internal/agronomy"
	"github.com/kasetlab/farmhub/internal/errors"
	"github.com/kasetlab/farmhub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// SensorReport is one telemetry sample as posted by the field device
type SensorReport struct {
	FarmID       string     `json:"farm_id"`
	DeviceKey    string     `json:"device_key"`
	Timestamp    *time.Time `json:"timestamp,omitempty"`
	Temperature  float64    `json:"temperature"`
	HumidityAir  float64    `json:"humidity_air"`
	SoilMoisture float64    `json:"soil_moisture"`
	SoilRawADC   float64    `json:"soil_raw_adc"`
	LightPercent float64    `json:"light_percent"`
	LightRawADC  float64    `json:"light_raw_adc"`
	LightLux     *float64   `json:"light_lux,omitempty"`
}

// IngestResult is what the device gets back after a successful report
type IngestResult struct {
	Reading *models.Reading      `json:"reading"`
	Index   *models.DerivedIndex `json:"index"`
}

// IngestReading authenticates the reporting device, persists the raw sample
// and its derived indices, then runs the evaluation steps. The evaluation
// steps are isolated from each other: a failure in one is logged and the
// remaining steps still run, and none of them fail the ingest itself.
func (s *FarmService) IngestReading(ctx context.Context, report *SensorReport) (*IngestResult, error) {
	setting, err := s.authenticateDevice(ctx, report.FarmID, report.DeviceKey)
	if err != nil {
		return nil, err
	}

	ts := s.now().UTC()
	if report.Timestamp != nil && !report.Timestamp.IsZero() {
		ts = report.Timestamp.UTC()
	}

	reading := &models.Reading{
		ID:           nuts.NID("rdg", 12),
		FarmID:       setting.FarmID,
		Timestamp:    ts,
		Temperature:  agronomy.FiniteOrZero(report.Temperature),
		HumidityAir:  agronomy.FiniteOrZero(report.HumidityAir),
		SoilMoisture: agronomy.FiniteOrZero(report.SoilMoisture),
		SoilRawADC:   agronomy.FiniteOrZero(report.SoilRawADC),
		LightPercent: agronomy.FiniteOrZero(report.LightPercent),
		LightRawADC:  agronomy.FiniteOrZero(report.LightRawADC),
	}
	if report.LightLux != nil && agronomy.Finite(*report.LightLux) {
		lux := *report.LightLux
		reading.LightLux = &lux
	}

	if err := s.Readings.InsertReading(ctx, reading); err != nil {
		return nil, err
	}

	// Rules are evaluated against the raw derived values so that a
	// non-finite index skips its rules instead of comparing as zero; only
	// the stored copy is sanitized.
	ix := s.deriveIndex(ctx, reading)
	stored := sanitizeIndex(ix)
	if err := s.Readings.InsertIndex(ctx, stored); err != nil {
		nuts.L.Errorf("[Ingest] Failed to store derived index for farm %s: %v", setting.FarmID, err)
	}

	if err := s.checkZeroAnomalies(ctx, setting, ts); err != nil {
		nuts.L.Errorf("[Ingest] Zero anomaly check failed for farm %s: %v", setting.FarmID, err)
	}
	if err := s.evaluateRules(ctx, setting, reading, ix); err != nil {
		nuts.L.Errorf("[Ingest] Rule evaluation failed for farm %s: %v", setting.FarmID, err)
	}
	if err := s.autoSoilWater(ctx, setting, reading); err != nil {
		nuts.L.Errorf("[Ingest] Auto soil watering failed for farm %s: %v", setting.FarmID, err)
	}

	return &IngestResult{Reading: reading, Index: stored}, nil
}

// deriveIndex computes the agronomic indices for a stored reading. Values
// may be non-finite here; storage goes through sanitizeIndex. The soil
// drying rate needs the previous sample; without one it stays zero.
func (s *FarmService) deriveIndex(ctx context.Context, r *models.Reading) *models.DerivedIndex {
	ix := &models.DerivedIndex{
		FarmID:    r.FarmID,
		Timestamp: r.Timestamp,
		VPD:       agronomy.VPD(r.Temperature, r.HumidityAir),
		GDD:       agronomy.GDD(r.Temperature, agronomy.DefaultGDDBase),
		DewPoint:  agronomy.DewPoint(r.Temperature, r.HumidityAir),
	}

	prev, err := s.Readings.PreviousBefore(ctx, r.FarmID, r.Timestamp)
	if err != nil {
		if !errors.IsNotFound(err) {
			nuts.L.Warnf("[Ingest] Previous reading lookup failed for farm %s: %v", r.FarmID, err)
		}
		return ix
	}

	dtMinutes := r.Timestamp.Sub(prev.Timestamp).Minutes()
	ix.SoilDryingRate = agronomy.SoilDryingRate(prev.SoilMoisture, r.SoilMoisture, dtMinutes)
	return ix
}

func sanitizeIndex(ix *models.DerivedIndex) *models.DerivedIndex {
	out := *ix
	out.VPD = agronomy.FiniteOrZero(ix.VPD)
	out.GDD = agronomy.FiniteOrZero(ix.GDD)
	out.DewPoint = agronomy.FiniteOrZero(ix.DewPoint)
	out.SoilDryingRate = agronomy.FiniteOrZero(ix.SoilDryingRate)
	return &out
}

// authenticateDevice resolves the farm settings and checks the presented
// device key against the stored one. A blank stored key is claimed by the
// first device that presents one; the claim is a conditional update, so two
// racing devices cannot both win.
func (s *FarmService) authenticateDevice(ctx context.Context, farmID, deviceKey string) (*models.FarmSetting, error) {
	if farmID == "" {
		return nil, errors.NewValidationError("farm_id is required", nil)
	}
	if deviceKey == "" {
		return nil, errors.NewAuthError("device key is required", nil)
	}

	if s.Cache != nil {
		if cached := s.Cache.Get(ctx, farmID); cached != nil && cached.DeviceKey == deviceKey {
			return cached, nil
		}
	}

	// Cache miss or mismatch: the database decides. A mismatch against a
	// stale cached key (rotation) resolves here.
	setting, err := s.Settings.Get(ctx, farmID)
	if err != nil {
		return nil, err
	}

	if setting.DeviceKey == deviceKey {
		if s.Cache != nil {
			s.Cache.Set(ctx, setting)
		}
		return setting, nil
	}

	if setting.DeviceKey == "" {
		claimed, err := s.Settings.ClaimDeviceKey(ctx, farmID, deviceKey)
		if err != nil {
			return nil, err
		}
		if claimed {
			setting.DeviceKey = deviceKey
			if s.Cache != nil {
				s.Cache.Set(ctx, setting)
			}
			nuts.L.Infof("[DeviceAuth] Farm %s claimed by its first device", farmID)
			return setting, nil
		}
		// Lost the claim race; the winner's key is now stored
		fresh, err := s.Settings.Get(ctx, farmID)
		if err != nil {
			return nil, err
		}
		if fresh.DeviceKey == deviceKey {
			return fresh, nil
		}
	}

	return nil, errors.NewAuthorizationError("device key mismatch", nil)
}
