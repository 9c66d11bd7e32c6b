package farmservice

import (
	"context"
	"time"

	"github.com/kasetlab/farmhub/internal/config"
	"github.com/kasetlab/farmhub/internal/errors"
	"github.com/kasetlab/farmhub/internal/models"
	"github.com/kasetlab/farmhub/internal/monitoring"
	"github.com/kasetlab/farmhub/internal/notifier"
	"github.com/kasetlab/farmhub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

// SettingsCache is the read-through cache consumed on the device hot path.
// A nil cache is valid; every lookup then goes to the settings repository.
type SettingsCache interface {
	Get(ctx context.Context, farmID string) *models.FarmSetting
	Set(ctx context.Context, setting *models.FarmSetting)
	Invalidate(ctx context.Context, farmID string)
}

// FarmService contains all repositories and service-wide dependencies
type FarmService struct {
	Settings      repository.SettingsRepository
	Commands      repository.CommandRepository
	Rules         repository.RuleRepository
	Notifications repository.NotificationRepository
	Readings      repository.ReadingRepository
	Statuses      repository.DeviceStatusRepository
	Notifier      notifier.Sink
	Cache         SettingsCache
	Monitor       *monitoring.Service

	Alerting config.AlertingConfig
	Watering config.WateringConfig

	events *nuts.EventEmitter
	now    func() time.Time
}

// New creates a new FarmService instance
func New(
	settings repository.SettingsRepository,
	commands repository.CommandRepository,
	rules repository.RuleRepository,
	notifications repository.NotificationRepository,
	readings repository.ReadingRepository,
	statuses repository.DeviceStatusRepository,
	sink notifier.Sink,
	settingsCache SettingsCache,
	monitor *monitoring.Service,
	alerting config.AlertingConfig,
	watering config.WateringConfig,
) *FarmService {
	return &FarmService{
		Settings:      settings,
		Commands:      commands,
		Rules:         rules,
		Notifications: notifications,
		Readings:      readings,
		Statuses:      statuses,
		Notifier:      sink,
		Cache:         settingsCache,
		Monitor:       monitor,
		Alerting:      alerting,
		Watering:      watering,
		events:        nuts.NewEventEmitter(),
		now:           time.Now,
	}
}

// Validate checks if all required dependencies are initialized
func (s *FarmService) Validate() error {
	if s.Settings == nil {
		return ErrMissingDependency("settings")
	}
	if s.Commands == nil {
		return ErrMissingDependency("commands")
	}
	if s.Rules == nil {
		return ErrMissingDependency("rules")
	}
	if s.Notifications == nil {
		return ErrMissingDependency("notifications")
	}
	if s.Readings == nil {
		return ErrMissingDependency("readings")
	}
	if s.Statuses == nil {
		return ErrMissingDependency("statuses")
	}
	if s.Notifier == nil {
		return ErrMissingDependency("notifier")
	}
	if s.Monitor == nil {
		return ErrMissingDependency("monitor")
	}
	return nil
}

func ErrMissingDependency(name string) error {
	return errors.NewInternalError("missing dependency: "+name, nil)
}

// OnCommand registers a callback for command lifecycle events
// ("command.created", "command.canceled")
func (s *FarmService) OnCommand(event string, handler func(id string)) {
	s.events.On(event, "command_handler", func(args ...interface{}) {
		if len(args) > 0 {
			if id, ok := args[0].(string); ok {
				handler(id)
			}
		}
	})
}

// clampDuration bounds an actuation duration to the configured range.
// Zero or negative requests fall back to 30 seconds.
func (s *FarmService) clampDuration(sec int) int {
	if sec <= 0 {
		sec = 30
	}
	if sec < s.Watering.MinDurationSec {
		sec = s.Watering.MinDurationSec
	}
	if sec > s.Watering.MaxDurationSec {
		sec = s.Watering.MaxDurationSec
	}
	return sec
}

// GetUserRoles retrieves user roles from context
func GetUserRoles(ctx context.Context) []string {
	if roles := ctx.Value("user_roles"); roles != nil {
		if r, ok := roles.([]string); ok {
			return r
		}
	}
	return []string{"guest"}
}

func hasRole(roles []string, wanted ...string) bool {
	for _, r := range roles {
		for _, w := range wanted {
			if r == w {
				return true
			}
		}
	}
	return false
}
