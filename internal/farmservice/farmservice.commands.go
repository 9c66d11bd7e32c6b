package farmservice

import (
	"context"

	"github.com/kasetlab/farmhub/internal/errors"
	"github.com/kasetlab/farmhub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// EnqueueRequest is a manual actuation request from the dashboard
type EnqueueRequest struct {
	DeviceID    string               `json:"device_id"`
	Command     models.CommandAction `json:"command"`
	DurationSec int                  `json:"duration_sec"`
	Source      models.CommandSource `json:"source"`
}

// CancelResult reports what a cancel sweep did: how many pending commands
// were failed and which OFF commands were queued to stop running actuators.
type CancelResult struct {
	Canceled    int64                   `json:"canceled"`
	OffCommands []*models.DeviceCommand `json:"off_commands"`
}

// EnqueueCommand creates a pending command from a manual request. ON
// durations are clamped to the configured range; OFF carries no duration.
func (s *FarmService) EnqueueCommand(ctx context.Context, farmID string, req *EnqueueRequest) (*models.DeviceCommand, error) {
	if farmID == "" {
		return nil, errors.NewValidationError("farm_id is required", nil)
	}
	if !models.ValidDevice(req.DeviceID) {
		return nil, errors.NewValidationError("device_id must be pump or mist", nil)
	}
	switch req.Command {
	case models.CommandOn, models.CommandOff:
	default:
		return nil, errors.NewValidationError("command must be ON or OFF", nil)
	}

	source := req.Source
	if source == "" {
		source = models.SourceUser
	}
	switch source {
	case models.SourceUser, models.SourceAdmin:
	default:
		return nil, errors.NewValidationError("source must be user or admin", nil)
	}

	duration := 0
	if req.Command == models.CommandOn {
		duration = s.clampDuration(req.DurationSec)
	}

	cmd := &models.DeviceCommand{
		ID:          nuts.NID("cmd", 12),
		FarmID:      farmID,
		DeviceID:    req.DeviceID,
		Command:     req.Command,
		DurationSec: duration,
		Status:      models.CommandPending,
		Source:      source,
		Timestamp:   s.now().UTC(),
	}
	if err := s.Commands.Create(ctx, cmd); err != nil {
		return nil, err
	}

	nuts.L.Infof("[Commands] Enqueued %s %s for farm %s (%ds, source %s)",
		cmd.DeviceID, cmd.Command, farmID, cmd.DurationSec, cmd.Source)
	s.events.Emit("command.created", cmd.ID)
	return cmd, nil
}

// PollCommand returns the newest pending command for the authenticated
// device, or nil when the queue is empty. Send bookkeeping is debounced:
// within the debounce window repeated polls still see the command, but
// last_sent_at and send_count move at most once.
func (s *FarmService) PollCommand(ctx context.Context, farmID, deviceKey string) (*models.DeviceCommand, error) {
	setting, err := s.authenticateDevice(ctx, farmID, deviceKey)
	if err != nil {
		return nil, err
	}

	cmd, err := s.Commands.LatestPending(ctx, setting.FarmID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	sentAt := s.now().UTC()
	stamped, err := s.Commands.MarkSent(ctx, cmd.ID, sentAt, s.Watering.PollDebounce)
	if err != nil {
		nuts.L.Warnf("[Commands] Send bookkeeping failed for command %s: %v", cmd.ID, err)
		return cmd, nil
	}
	if stamped {
		cmd.SendCount++
		cmd.LastSentAt = &sentAt
	}
	return cmd, nil
}

// AcknowledgeCommand moves a pending command to done or failed. Only an
// explicit failure report counts as failed; an omitted or unknown status
// means the device ran the command, so it lands as done. Terminal commands
// are left untouched: re-acknowledging is an idempotent no-op that returns
// the stored row.
func (s *FarmService) AcknowledgeCommand(ctx context.Context, farmID, deviceKey, commandID string, status models.CommandStatus, actualDurationSec int) (*models.DeviceCommand, error) {
	setting, err := s.authenticateDevice(ctx, farmID, deviceKey)
	if err != nil {
		return nil, err
	}
	if status != models.CommandFailed {
		status = models.CommandDone
	}
	if actualDurationSec < 0 {
		actualDurationSec = 0
	}

	completedAt := s.now().UTC()
	applied, err := s.Commands.Acknowledge(ctx, setting.FarmID, commandID, status, completedAt, actualDurationSec)
	if err != nil {
		return nil, err
	}

	cmd, err := s.Commands.Get(ctx, setting.FarmID, commandID)
	if err != nil {
		return nil, err
	}

	if applied {
		nuts.L.Infof("[Commands] Command %s acknowledged as %s by farm %s (ran %ds)",
			commandID, status, setting.FarmID, actualDurationSec)
		s.Monitor.RecordEvent("command.acknowledged", map[string]string{
			"farm_id": setting.FarmID,
			"status":  string(status),
		})
	}
	return cmd, nil
}

// GetCommand returns one command scoped to the farm
func (s *FarmService) GetCommand(ctx context.Context, farmID, id string) (*models.DeviceCommand, error) {
	return s.Commands.Get(ctx, farmID, id)
}

// ListCommands returns the farm's newest commands
func (s *FarmService) ListCommands(ctx context.Context, farmID string, limit int) ([]*models.DeviceCommand, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}
	return s.Commands.List(ctx, farmID, limit)
}

// CancelCommands fails every pending command for the farm (optionally only
// for one device) and queues OFF commands so anything already running stops.
// An empty deviceID cancels across all actuators.
func (s *FarmService) CancelCommands(ctx context.Context, farmID, deviceID string) (*CancelResult, error) {
	if farmID == "" {
		return nil, errors.NewValidationError("farm_id is required", nil)
	}
	if deviceID != "" && !models.ValidDevice(deviceID) {
		return nil, errors.NewValidationError("device_id must be pump or mist", nil)
	}

	now := s.now().UTC()
	canceled, err := s.Commands.FailPending(ctx, farmID, deviceID, now)
	if err != nil {
		return nil, err
	}

	devices := []string{models.DevicePump, models.DeviceMist}
	if deviceID != "" {
		devices = []string{deviceID}
	}

	result := &CancelResult{Canceled: canceled}
	for _, dev := range devices {
		off := &models.DeviceCommand{
			ID:        nuts.NID("cmd", 12),
			FarmID:    farmID,
			DeviceID:  dev,
			Command:   models.CommandOff,
			Status:    models.CommandPending,
			Source:    models.SourceAdmin,
			Timestamp: now,
		}
		if err := s.Commands.Create(ctx, off); err != nil {
			return result, err
		}
		result.OffCommands = append(result.OffCommands, off)
	}

	nuts.L.Infof("[Commands] Canceled %d pending command(s) for farm %s, queued %d OFF command(s)",
		canceled, farmID, len(result.OffCommands))
	s.Monitor.RecordEvent("command.canceled", map[string]string{"farm_id": farmID})
	s.events.Emit("command.canceled", farmID)
	return result, nil
}
