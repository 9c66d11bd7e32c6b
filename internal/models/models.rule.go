// FilePath: internal/models/models.rule.go
package models

import "time"

type RuleOperator string

const (
	OperatorLessThan    RuleOperator = "lt"
	OperatorGreaterThan RuleOperator = "gt"
)

type RuleAction string

const (
	ActionNone  RuleAction = "none"
	ActionWater RuleAction = "water"
	ActionMist  RuleAction = "mist"
)

// AlertRule is a user-configured threshold on one metric of a farm's
// telemetry stream. Only enabled rules are evaluated.
type AlertRule struct {
	ID          string       `json:"id" db:"id"`
	FarmID      string       `json:"farm_id" db:"farm_id"`
	Metric      Metric       `json:"metric" db:"metric"`
	Operator    RuleOperator `json:"operator" db:"operator"`
	Threshold   float64      `json:"threshold" db:"threshold"`
	Message     string       `json:"message" db:"message"`
	Enabled     bool         `json:"enabled" db:"enabled"`
	Action      RuleAction   `json:"action" db:"action"`
	DurationSec *int         `json:"duration_sec,omitempty" db:"duration_sec"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
}

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Delivery outcomes recorded on a notification
const (
	SentStatusSuccess = "success"
	SentStatusFailed  = "failed"
)

// Notification is an emitted alert event. AlertType is the dedup key: for a
// given (farm, alert_type) at most one row is created per dedup window.
type Notification struct {
	ID         string    `json:"id" db:"id"`
	FarmID     string    `json:"farm_id" db:"farm_id"`
	Timestamp  time.Time `json:"timestamp" db:"timestamp"`
	AlertType  string    `json:"alert_type" db:"alert_type"`
	Details    string    `json:"details" db:"details"`
	Severity   Severity  `json:"severity" db:"severity"`
	IsRead     bool      `json:"is_read" db:"is_read"`
	SentTo     string    `json:"sent_to" db:"sent_to"`
	SentStatus string    `json:"sent_status" db:"sent_status"`
	RuleID     *string   `json:"rule_id,omitempty" db:"rule_id"`
	// Advisory action suggested by the matching rule. Never enqueues a
	// command by itself; the dashboard surfaces it for review.
	RecommendedAction      string `json:"recommended_action,omitempty" db:"recommended_action"`
	RecommendedDurationSec *int   `json:"recommended_duration_sec,omitempty" db:"recommended_duration_sec"`
}
