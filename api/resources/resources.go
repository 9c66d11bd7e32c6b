// FilePath: api/resources/resources.go
package resources

import (
	"net/http"

	"github.com/kasetlab/farmhub/internal/farmservice"
	"github.com/kasetlab/farmhub/internal/scheduler"
)

// Resources holds all HTTP resource handlers
type Resources struct {
	Device        *DeviceHandlers
	Commands      *CommandHandlers
	Rules         *RuleHandlers
	Settings      *SettingsHandlers
	Telemetry     *TelemetryHandlers
	Notifications *NotificationHandlers
	Cron          *CronHandlers
	HealthCheck   func(w http.ResponseWriter, r *http.Request)
	Metrics       func(w http.ResponseWriter, r *http.Request)
}

// NewResources creates a new Resources instance
func NewResources(svc *farmservice.FarmService, ticker *scheduler.Ticker) *Resources {
	return &Resources{
		Device:        &DeviceHandlers{farmservice: svc},
		Commands:      &CommandHandlers{farmservice: svc},
		Rules:         &RuleHandlers{farmservice: svc},
		Settings:      &SettingsHandlers{farmservice: svc},
		Telemetry:     &TelemetryHandlers{farmservice: svc},
		Notifications: &NotificationHandlers{farmservice: svc},
		Cron:          &CronHandlers{ticker: ticker},
	}
}

// SetHealthCheck sets the health check handler
func (r *Resources) SetHealthCheck(h func(w http.ResponseWriter, r *http.Request)) {
	r.HealthCheck = h
}

// SetMetrics sets the metrics handler
func (r *Resources) SetMetrics(h func(w http.ResponseWriter, r *http.Request)) {
	r.Metrics = h
}
