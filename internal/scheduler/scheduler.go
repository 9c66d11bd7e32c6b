// Package scheduler fires configured watering slots. A background worker
// ticks faster than the minute boundary and enqueues one pump command per
// matching farm and minute; the scheduled key makes the minute idempotent
// across ticks and across replicas.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/kasetlab/farmhub/internal/config"
	"github.com/kasetlab/farmhub/internal/models"
	"github.com/kasetlab/farmhub/internal/monitoring"
	"github.com/kasetlab/farmhub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

// Clock abstracts wall time so ticks are testable
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Ticker evaluates watering schedules in the configured farm timezone
type Ticker struct {
	settings repository.SettingsRepository
	commands repository.CommandRepository
	monitor  *monitoring.Service
	watering config.WateringConfig

	location *time.Location
	interval time.Duration
	clock    Clock
	done     chan bool
}

func New(
	settings repository.SettingsRepository,
	commands repository.CommandRepository,
	monitor *monitoring.Service,
	schedCfg config.SchedulerConfig,
	watering config.WateringConfig,
) (*Ticker, error) {
	loc, err := time.LoadLocation(schedCfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler timezone %q: %w", schedCfg.Timezone, err)
	}

	return &Ticker{
		settings: settings,
		commands: commands,
		monitor:  monitor,
		watering: watering,
		location: loc,
		interval: schedCfg.TickInterval,
		clock:    systemClock{},
		done:     make(chan bool),
	}, nil
}

func (t *Ticker) Start() {
	nuts.L.Infof("[Scheduler] Starting ticker (every %s, timezone %s)", t.interval, t.location)
	go t.backgroundWorker()
}

func (t *Ticker) Stop() {
	t.done <- true
}

func (t *Ticker) backgroundWorker() {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			if _, err := t.RunTick(context.Background()); err != nil {
				nuts.L.Errorf("[Scheduler] Tick failed: %v", err)
			}
		}
	}
}

// RunTick evaluates every farm with schedules against the current minute
// and returns how many commands it enqueued. Running it twice inside the
// same minute is safe: the scheduled key dedupes the second pass.
func (t *Ticker) RunTick(ctx context.Context) (int, error) {
	now := t.clock.Now().In(t.location)
	date := now.Format("2006-01-02")
	minute := now.Format("15:04")
	weekday := int(now.Weekday())

	settings, err := t.settings.ListScheduled(ctx)
	if err != nil {
		return 0, err
	}

	fired := 0
	for _, setting := range settings {
		if setting.PumpPaused {
			continue
		}

		for _, sched := range setting.Schedules {
			if !sched.Enabled || sched.Time != minute || !sched.MatchesDay(weekday) {
				continue
			}

			// One command per farm per minute, even if several slots collide
			key := fmt.Sprintf("%s|%s|%s", setting.FarmID, date, minute)
			exists, err := t.commands.ScheduledKeyExists(ctx, setting.FarmID, key)
			if err != nil {
				nuts.L.Errorf("[Scheduler] Key lookup failed for farm %s: %v", setting.FarmID, err)
				break
			}
			if exists {
				break
			}

			cmd := &models.DeviceCommand{
				ID:           nuts.NID("cmd", 12),
				FarmID:       setting.FarmID,
				DeviceID:     models.DevicePump,
				Command:      models.CommandOn,
				DurationSec:  t.clampDuration(sched.DurationSec),
				Status:       models.CommandPending,
				Source:       models.SourceAuto,
				Timestamp:    t.clock.Now().UTC(),
				ScheduledKey: &key,
			}
			if err := t.commands.Create(ctx, cmd); err != nil {
				nuts.L.Errorf("[Scheduler] Failed to enqueue command for farm %s: %v", setting.FarmID, err)
				break
			}

			fired++
			nuts.L.Infof("[Scheduler] Farm %s watering at %s %s for %ds",
				setting.FarmID, date, minute, cmd.DurationSec)
			t.monitor.RecordEvent("command.scheduled", map[string]string{"farm_id": setting.FarmID})
			break
		}
	}

	return fired, nil
}

func (t *Ticker) clampDuration(sec int) int {
	if sec <= 0 {
		sec = 30
	}
	if sec < t.watering.MinDurationSec {
		sec = t.watering.MinDurationSec
	}
	if sec > t.watering.MaxDurationSec {
		sec = t.watering.MaxDurationSec
	}
	return sec
}
