// FilePath: internal/models/models.reading.go
package models

import "time"

// Reading represents a single sensor sample reported by a field device
type Reading struct {
	ID           string    `json:"id" db:"id"`
	FarmID       string    `json:"farm_id" db:"farm_id"`
	Timestamp    time.Time `json:"timestamp" db:"timestamp"`
	Temperature  float64   `json:"temperature" db:"temperature"`
	HumidityAir  float64   `json:"humidity_air" db:"humidity_air"`
	SoilMoisture float64   `json:"soil_moisture" db:"soil_moisture"`
	SoilRawADC   float64   `json:"soil_raw_adc" db:"soil_raw_adc"`
	LightPercent float64   `json:"light_percent" db:"light_percent"`
	LightRawADC  float64   `json:"light_raw_adc" db:"light_raw_adc"`
	LightLux     *float64  `json:"light_lux,omitempty" db:"light_lux"`
}

// DerivedIndex holds the agronomic indices computed for one reading.
// At most one row exists per (farm_id, timestamp).
type DerivedIndex struct {
	FarmID         string    `json:"farm_id" db:"farm_id"`
	Timestamp      time.Time `json:"timestamp" db:"timestamp"`
	VPD            float64   `json:"vpd" db:"vpd"`
	GDD            float64   `json:"gdd" db:"gdd"`
	DewPoint       float64   `json:"dew_point" db:"dew_point"`
	SoilDryingRate float64   `json:"soil_drying_rate" db:"soil_drying_rate"`
}

// Metric names usable in alert rules. Raw reading fields plus derived indices.
type Metric string

const (
	MetricTemperature    Metric = "temperature"
	MetricHumidityAir    Metric = "humidity_air"
	MetricSoilMoisture   Metric = "soil_moisture"
	MetricVPD            Metric = "vpd"
	MetricGDD            Metric = "gdd"
	MetricDewPoint       Metric = "dew_point"
	MetricSoilDryingRate Metric = "soil_drying_rate"
)

// ValidMetric reports whether m names a known rule metric
func ValidMetric(m Metric) bool {
	switch m {
	case MetricTemperature, MetricHumidityAir, MetricSoilMoisture,
		MetricVPD, MetricGDD, MetricDewPoint, MetricSoilDryingRate:
		return true
	}
	return false
}

// MetricValue extracts the named metric from a reading/index pair
func MetricValue(m Metric, r *Reading, ix *DerivedIndex) float64 {
	switch m {
	case MetricTemperature:
		return r.Temperature
	case MetricHumidityAir:
		return r.HumidityAir
	case MetricSoilMoisture:
		return r.SoilMoisture
	case MetricVPD:
		return ix.VPD
	case MetricGDD:
		return ix.GDD
	case MetricDewPoint:
		return ix.DewPoint
	case MetricSoilDryingRate:
		return ix.SoilDryingRate
	}
	return 0
}
