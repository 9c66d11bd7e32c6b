package farmservice

import (
	"context"
	"testing"
	"time"

	"github.com/kasetlab/farmhub/internal/errors"
	"github.com/kasetlab/farmhub/internal/models"
	"github.com/matryer/is"
)

func pendingCommand(id string) *models.DeviceCommand {
	return &models.DeviceCommand{
		ID:          id,
		FarmID:      "farm-1",
		DeviceID:    models.DevicePump,
		Command:     models.CommandOn,
		DurationSec: 30,
		Status:      models.CommandPending,
		Source:      models.SourceUser,
		Timestamp:   testNow.Add(-time.Minute),
	}
}

func TestEnqueueCommandClampsDuration(t *testing.T) {
	is := is.New(t)
	f := newTestFixture()

	var created *models.DeviceCommand
	f.commands.CreateFunc = func(ctx context.Context, cmd *models.DeviceCommand) error {
		created = cmd
		return nil
	}

	cmd, err := f.svc.EnqueueCommand(context.Background(), "farm-1", &EnqueueRequest{
		DeviceID:    models.DeviceMist,
		Command:     models.CommandOn,
		DurationSec: 7200,
	})
	is.NoErr(err)
	is.Equal(cmd, created)
	is.Equal(cmd.DurationSec, 3600)
	is.Equal(cmd.Source, models.SourceUser) // defaulted
	is.Equal(cmd.Status, models.CommandPending)
}

func TestEnqueueCommandValidation(t *testing.T) {
	is := is.New(t)
	f := newTestFixture()

	f.commands.CreateFunc = func(ctx context.Context, cmd *models.DeviceCommand) error {
		t.Fatalf("unexpected command enqueue: %+v", cmd)
		return nil
	}

	_, err := f.svc.EnqueueCommand(context.Background(), "farm-1", &EnqueueRequest{
		DeviceID: "valve",
		Command:  models.CommandOn,
	})
	is.True(errors.IsValidation(err))

	_, err = f.svc.EnqueueCommand(context.Background(), "farm-1", &EnqueueRequest{
		DeviceID: models.DevicePump,
		Command:  "START",
	})
	is.True(errors.IsValidation(err))

	// Reserved sources cannot be spoofed through the API
	_, err = f.svc.EnqueueCommand(context.Background(), "farm-1", &EnqueueRequest{
		DeviceID: models.DevicePump,
		Command:  models.CommandOn,
		Source:   models.SourceAuto,
	})
	is.True(errors.IsValidation(err))
}

func TestPollReturnsCommandAndStampsOnce(t *testing.T) {
	is := is.New(t)
	f := newTestFixture()

	f.commands.LatestPendingFunc = func(ctx context.Context, farmID string) (*models.DeviceCommand, error) {
		return pendingCommand("cmd-1"), nil
	}

	markCalls := 0
	f.commands.MarkSentFunc = func(ctx context.Context, id string, sentAt time.Time, debounce time.Duration) (bool, error) {
		markCalls++
		is.Equal(id, "cmd-1")
		is.Equal(debounce, 3*time.Second)
		// First poll stamps, second is inside the debounce window
		return markCalls == 1, nil
	}

	first, err := f.svc.PollCommand(context.Background(), "farm-1", "key-1")
	is.NoErr(err)
	is.True(first != nil)
	is.Equal(first.SendCount, 1)
	is.True(first.LastSentAt != nil)

	second, err := f.svc.PollCommand(context.Background(), "farm-1", "key-1")
	is.NoErr(err)
	is.True(second != nil)
	is.Equal(second.ID, "cmd-1")
	// The repeated poll still sees the command, but bookkeeping did not move
	is.Equal(second.SendCount, 0)
	is.Equal(markCalls, 2)
}

func TestPollEmptyQueueReturnsNil(t *testing.T) {
	is := is.New(t)
	f := newTestFixture()

	f.commands.LatestPendingFunc = func(ctx context.Context, farmID string) (*models.DeviceCommand, error) {
		return nil, errors.NewNotFoundError("no pending command", nil)
	}

	cmd, err := f.svc.PollCommand(context.Background(), "farm-1", "key-1")
	is.NoErr(err)
	is.True(cmd == nil)
}

func TestAcknowledgeTransitionsPendingCommand(t *testing.T) {
	is := is.New(t)
	f := newTestFixture()

	f.commands.AcknowledgeFunc = func(ctx context.Context, farmID, id string, status models.CommandStatus, completedAt time.Time, actualDurationSec int) (bool, error) {
		is.Equal(status, models.CommandDone)
		is.Equal(completedAt, testNow)
		is.Equal(actualDurationSec, 28)
		return true, nil
	}
	f.commands.GetFunc = func(ctx context.Context, farmID, id string) (*models.DeviceCommand, error) {
		cmd := pendingCommand(id)
		cmd.Status = models.CommandDone
		cmd.ActualDurationSec = 28
		return cmd, nil
	}

	cmd, err := f.svc.AcknowledgeCommand(context.Background(), "farm-1", "key-1", "cmd-1", models.CommandDone, 28)
	is.NoErr(err)
	is.Equal(cmd.Status, models.CommandDone)
}

func TestAcknowledgeTerminalCommandIsNoOp(t *testing.T) {
	is := is.New(t)
	f := newTestFixture()

	f.commands.AcknowledgeFunc = func(ctx context.Context, farmID, id string, status models.CommandStatus, completedAt time.Time, actualDurationSec int) (bool, error) {
		return false, nil
	}
	f.commands.GetFunc = func(ctx context.Context, farmID, id string) (*models.DeviceCommand, error) {
		cmd := pendingCommand(id)
		cmd.Status = models.CommandDone
		return cmd, nil
	}

	// Re-acknowledging as failed must not flip the stored done state
	cmd, err := f.svc.AcknowledgeCommand(context.Background(), "farm-1", "key-1", "cmd-1", models.CommandFailed, 0)
	is.NoErr(err)
	is.Equal(cmd.Status, models.CommandDone)
}

func TestAcknowledgeOmittedStatusDefaultsToDone(t *testing.T) {
	is := is.New(t)
	f := newTestFixture()

	// The firmware only sets status on failure; the normal success ack
	// carries none and must land as done.
	var acked models.CommandStatus
	f.commands.AcknowledgeFunc = func(ctx context.Context, farmID, id string, status models.CommandStatus, completedAt time.Time, actualDurationSec int) (bool, error) {
		acked = status
		return true, nil
	}
	f.commands.GetFunc = func(ctx context.Context, farmID, id string) (*models.DeviceCommand, error) {
		cmd := pendingCommand(id)
		cmd.Status = models.CommandDone
		return cmd, nil
	}

	cmd, err := f.svc.AcknowledgeCommand(context.Background(), "farm-1", "key-1", "cmd-1", "", 0)
	is.NoErr(err)
	is.Equal(acked, models.CommandDone)
	is.Equal(cmd.Status, models.CommandDone)

	// Anything other than an explicit failure also counts as success
	_, err = f.svc.AcknowledgeCommand(context.Background(), "farm-1", "key-1", "cmd-1", "ok", 0)
	is.NoErr(err)
	is.Equal(acked, models.CommandDone)
}

func TestListCommandsClampsLimit(t *testing.T) {
	is := is.New(t)
	f := newTestFixture()

	var gotLimit int
	f.commands.ListFunc = func(ctx context.Context, farmID string, limit int) ([]*models.DeviceCommand, error) {
		gotLimit = limit
		return nil, nil
	}

	_, err := f.svc.ListCommands(context.Background(), "farm-1", 0)
	is.NoErr(err)
	is.Equal(gotLimit, 50) // default

	_, err = f.svc.ListCommands(context.Background(), "farm-1", 200)
	is.NoErr(err)
	is.Equal(gotLimit, 200)

	_, err = f.svc.ListCommands(context.Background(), "farm-1", 5000)
	is.NoErr(err)
	is.Equal(gotLimit, 1000) // capped
}

func TestCancelAllFailsPendingAndQueuesOffForBothDevices(t *testing.T) {
	is := is.New(t)
	f := newTestFixture()

	f.commands.FailPendingFunc = func(ctx context.Context, farmID, deviceID string, completedAt time.Time) (int64, error) {
		is.Equal(deviceID, "")
		return 2, nil
	}
	var offDevices []string
	f.commands.CreateFunc = func(ctx context.Context, cmd *models.DeviceCommand) error {
		is.Equal(cmd.Command, models.CommandOff)
		is.Equal(cmd.Source, models.SourceAdmin)
		offDevices = append(offDevices, cmd.DeviceID)
		return nil
	}

	result, err := f.svc.CancelCommands(context.Background(), "farm-1", "")
	is.NoErr(err)
	is.Equal(result.Canceled, int64(2))
	is.Equal(offDevices, []string{models.DevicePump, models.DeviceMist})
}

func TestCancelSingleDeviceQueuesOneOff(t *testing.T) {
	is := is.New(t)
	f := newTestFixture()

	f.commands.FailPendingFunc = func(ctx context.Context, farmID, deviceID string, completedAt time.Time) (int64, error) {
		is.Equal(deviceID, models.DeviceMist)
		return 1, nil
	}
	var offDevices []string
	f.commands.CreateFunc = func(ctx context.Context, cmd *models.DeviceCommand) error {
		offDevices = append(offDevices, cmd.DeviceID)
		return nil
	}

	result, err := f.svc.CancelCommands(context.Background(), "farm-1", models.DeviceMist)
	is.NoErr(err)
	is.Equal(result.Canceled, int64(1))
	is.Equal(offDevices, []string{models.DeviceMist})
}

func TestCancelRejectsUnknownDevice(t *testing.T) {
	is := is.New(t)
	f := newTestFixture()

	_, err := f.svc.CancelCommands(context.Background(), "farm-1", "valve")
	is.True(errors.IsValidation(err))
}
