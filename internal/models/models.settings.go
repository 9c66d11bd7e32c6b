// FilePath: internal/models/models.settings.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"time"
)

// Schedule is one time-of-day watering slot. Time is "HH:mm" evaluated in
// the hub's configured farm timezone; an empty Days set means every day.
type Schedule struct {
	Enabled     bool   `json:"enabled"`
	Time        string `json:"time"`
	Days        []int  `json:"days"`
	DurationSec int    `json:"duration_sec"`
}

// ScheduleList stores the watering schedules as a JSONB column
type ScheduleList []Schedule

func (l ScheduleList) Value() (driver.Value, error) {
	if l == nil {
		l = ScheduleList{}
	}
	return json.Marshal(l)
}

func (l *ScheduleList) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, l)
}

// Webhook is one notification delivery endpoint owned by the farm
type Webhook struct {
	URL     string `json:"url"`
	Enabled bool   `json:"enabled"`
}

// WebhookList stores delivery endpoints as a JSONB column
type WebhookList []Webhook

func (l WebhookList) Value() (driver.Value, error) {
	if l == nil {
		l = WebhookList{}
	}
	return json.Marshal(l)
}

func (l *WebhookList) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, l)
}

// FarmSetting is the per-farm configuration singleton consumed by the
// control loop. DeviceKey is the shared secret the field device presents on
// every request; a blank key is claimable by the first device that contacts
// the farm.
type FarmSetting struct {
	FarmID              string       `json:"farm_id" db:"farm_id"`
	DeviceKey           string       `json:"device_key" db:"device_key" readxs:"admin,system" writexs:"admin,system"`
	AutoSoilEnabled     bool         `json:"auto_soil_enabled" db:"auto_soil_enabled"`
	AutoSoilStartAt     float64      `json:"auto_soil_start_at" db:"auto_soil_start_at"`
	WateringDurationSec int          `json:"watering_duration_sec" db:"watering_duration_sec"`
	WateringCooldownMin int          `json:"watering_cooldown_min" db:"watering_cooldown_min"`
	PumpPaused          bool         `json:"pump_paused" db:"pump_paused"`
	SamplingIntervalMin int          `json:"sampling_interval_min" db:"sampling_interval_min"`
	PumpFlowRateLPM     float64      `json:"pump_flow_rate_lpm" db:"pump_flow_rate_lpm"`
	Schedules           ScheduleList `json:"schedules" db:"schedules"`
	Webhooks            WebhookList  `json:"webhooks" db:"webhooks" readxs:"admin,system" writexs:"admin,system"`
	UpdatedAt           time.Time    `json:"updated_at" db:"updated_at"`
}

// FarmSettingPatch is a partial settings update. Nil fields keep the stored
// value; non-nil fields replace it.
type FarmSettingPatch struct {
	DeviceKey           *string       `json:"device_key,omitempty"`
	AutoSoilEnabled     *bool         `json:"auto_soil_enabled,omitempty"`
	AutoSoilStartAt     *float64      `json:"auto_soil_start_at,omitempty"`
	WateringDurationSec *int          `json:"watering_duration_sec,omitempty"`
	WateringCooldownMin *int          `json:"watering_cooldown_min,omitempty"`
	PumpPaused          *bool         `json:"pump_paused,omitempty"`
	SamplingIntervalMin *int          `json:"sampling_interval_min,omitempty"`
	PumpFlowRateLPM     *float64      `json:"pump_flow_rate_lpm,omitempty"`
	Schedules           *ScheduleList `json:"schedules,omitempty"`
	Webhooks            *WebhookList  `json:"webhooks,omitempty"`
}

var hhmmPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// NormalizeTimeHHMM coerces a schedule time into zero-padded "HH:mm",
// falling back to 06:00 for anything unparseable
func NormalizeTimeHHMM(t string) string {
	m := hhmmPattern.FindStringSubmatch(t)
	if m == nil {
		return "06:00"
	}
	var hh, mm int
	fmt.Sscanf(m[1], "%d", &hh)
	fmt.Sscanf(m[2], "%d", &mm)
	if hh < 0 {
		hh = 0
	}
	if hh > 23 {
		hh = 23
	}
	if mm < 0 {
		mm = 0
	}
	if mm > 59 {
		mm = 59
	}
	return fmt.Sprintf("%02d:%02d", hh, mm)
}

// NormalizeDays deduplicates and sorts weekday numbers, dropping anything
// outside 0..6 (Sunday..Saturday)
func NormalizeDays(days []int) []int {
	seen := map[int]bool{}
	out := []int{}
	for _, d := range days {
		if d < 0 || d > 6 || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Ints(out)
	return out
}

// Normalize canonicalizes a schedule in place
func (s *Schedule) Normalize(minDuration, maxDuration int) {
	s.Time = NormalizeTimeHHMM(s.Time)
	s.Days = NormalizeDays(s.Days)
	if s.DurationSec == 0 {
		s.DurationSec = 30
	}
	if s.DurationSec < minDuration {
		s.DurationSec = minDuration
	}
	if s.DurationSec > maxDuration {
		s.DurationSec = maxDuration
	}
}

// MatchesDay reports whether the schedule fires on the given weekday.
// An empty day set fires every day.
func (s *Schedule) MatchesDay(weekday int) bool {
	if len(s.Days) == 0 {
		return true
	}
	for _, d := range s.Days {
		if d == weekday {
			return true
		}
	}
	return false
}
