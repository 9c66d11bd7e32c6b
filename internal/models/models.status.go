// FilePath: internal/models/models.status.go
package models

import "time"

// DeviceStatus is the field controller's heartbeat: network details,
// firmware version, actuator state and sensor health. One row per
// (farm, device key), overwritten on every report.
type DeviceStatus struct {
	FarmID       string        `json:"farm_id" db:"farm_id"`
	DeviceKey    string        `json:"device_key" db:"device_key"`
	IP           string        `json:"ip" db:"ip"`
	WifiRSSI     *int          `json:"wifi_rssi" db:"wifi_rssi"`
	FWVersion    string        `json:"fw_version" db:"fw_version"`
	PumpState    CommandAction `json:"pump_state" db:"pump_state"`
	UptimeSec    *int64        `json:"uptime_sec" db:"uptime_sec"`
	DHTOk        bool          `json:"dht_ok" db:"dht_ok"`
	SoilOk       bool          `json:"soil_ok" db:"soil_ok"`
	LightOk      bool          `json:"light_ok" db:"light_ok"`
	LightRawADC  *float64      `json:"light_raw_adc" db:"light_raw_adc"`
	LightPercent *float64      `json:"light_percent" db:"light_percent"`
	LastSeenAt   time.Time     `json:"last_seen_at" db:"last_seen_at"`
}
