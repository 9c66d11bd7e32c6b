package farmservice

import (
	"context"
	"time"

	"github.com/kasetlab/farmhub/internal/config"
	"github.com/kasetlab/farmhub/internal/database"
	"github.com/kasetlab/farmhub/internal/errors"
	"github.com/kasetlab/farmhub/internal/models"
	"github.com/kasetlab/farmhub/internal/monitoring"
)

// Hand-rolled function-field mocks. Tests override only the calls they care
// about; anything else panics loudly instead of passing silently.

type settingsRepoMock struct {
	GetFunc            func(ctx context.Context, farmID string) (*models.FarmSetting, error)
	UpsertFunc         func(ctx context.Context, setting *models.FarmSetting) error
	ClaimDeviceKeyFunc func(ctx context.Context, farmID, key string) (bool, error)
	ListScheduledFunc  func(ctx context.Context) ([]*models.FarmSetting, error)
}

func (m *settingsRepoMock) BeginTx(ctx context.Context) (database.Transaction, error) {
	return nil, nil
}
func (m *settingsRepoMock) Get(ctx context.Context, farmID string) (*models.FarmSetting, error) {
	return m.GetFunc(ctx, farmID)
}
func (m *settingsRepoMock) Upsert(ctx context.Context, setting *models.FarmSetting) error {
	return m.UpsertFunc(ctx, setting)
}
func (m *settingsRepoMock) ClaimDeviceKey(ctx context.Context, farmID, key string) (bool, error) {
	return m.ClaimDeviceKeyFunc(ctx, farmID, key)
}
func (m *settingsRepoMock) ListScheduled(ctx context.Context) ([]*models.FarmSetting, error) {
	return m.ListScheduledFunc(ctx)
}

type commandRepoMock struct {
	CreateFunc             func(ctx context.Context, cmd *models.DeviceCommand) error
	GetFunc                func(ctx context.Context, farmID, id string) (*models.DeviceCommand, error)
	ListFunc               func(ctx context.Context, farmID string, limit int) ([]*models.DeviceCommand, error)
	LatestPendingFunc      func(ctx context.Context, farmID string) (*models.DeviceCommand, error)
	MarkSentFunc           func(ctx context.Context, id string, sentAt time.Time, debounce time.Duration) (bool, error)
	AcknowledgeFunc        func(ctx context.Context, farmID, id string, status models.CommandStatus, completedAt time.Time, actualDurationSec int) (bool, error)
	HasPendingOnFunc       func(ctx context.Context, farmID string) (bool, error)
	ScheduledKeyExistsFunc func(ctx context.Context, farmID, key string) (bool, error)
	FailPendingFunc        func(ctx context.Context, farmID, deviceID string, completedAt time.Time) (int64, error)
}

func (m *commandRepoMock) BeginTx(ctx context.Context) (database.Transaction, error) {
	return nil, nil
}
func (m *commandRepoMock) Create(ctx context.Context, cmd *models.DeviceCommand) error {
	return m.CreateFunc(ctx, cmd)
}
func (m *commandRepoMock) Get(ctx context.Context, farmID, id string) (*models.DeviceCommand, error) {
	return m.GetFunc(ctx, farmID, id)
}
func (m *commandRepoMock) List(ctx context.Context, farmID string, limit int) ([]*models.DeviceCommand, error) {
	return m.ListFunc(ctx, farmID, limit)
}
func (m *commandRepoMock) LatestPending(ctx context.Context, farmID string) (*models.DeviceCommand, error) {
	return m.LatestPendingFunc(ctx, farmID)
}
func (m *commandRepoMock) MarkSent(ctx context.Context, id string, sentAt time.Time, debounce time.Duration) (bool, error) {
	return m.MarkSentFunc(ctx, id, sentAt, debounce)
}
func (m *commandRepoMock) Acknowledge(ctx context.Context, farmID, id string, status models.CommandStatus, completedAt time.Time, actualDurationSec int) (bool, error) {
	return m.AcknowledgeFunc(ctx, farmID, id, status, completedAt, actualDurationSec)
}
func (m *commandRepoMock) HasPendingOn(ctx context.Context, farmID string) (bool, error) {
	return m.HasPendingOnFunc(ctx, farmID)
}
func (m *commandRepoMock) ScheduledKeyExists(ctx context.Context, farmID, key string) (bool, error) {
	return m.ScheduledKeyExistsFunc(ctx, farmID, key)
}
func (m *commandRepoMock) FailPending(ctx context.Context, farmID, deviceID string, completedAt time.Time) (int64, error) {
	return m.FailPendingFunc(ctx, farmID, deviceID, completedAt)
}

type ruleRepoMock struct {
	CreateFunc     func(ctx context.Context, rule *models.AlertRule) error
	GetFunc        func(ctx context.Context, farmID, id string) (*models.AlertRule, error)
	UpdateFunc     func(ctx context.Context, rule *models.AlertRule) error
	DeleteFunc     func(ctx context.Context, farmID, id string) error
	ListByFarmFunc func(ctx context.Context, farmID string, onlyEnabled bool) ([]*models.AlertRule, error)
}

func (m *ruleRepoMock) BeginTx(ctx context.Context) (database.Transaction, error) {
	return nil, nil
}
func (m *ruleRepoMock) Create(ctx context.Context, rule *models.AlertRule) error {
	return m.CreateFunc(ctx, rule)
}
func (m *ruleRepoMock) Get(ctx context.Context, farmID, id string) (*models.AlertRule, error) {
	return m.GetFunc(ctx, farmID, id)
}
func (m *ruleRepoMock) Update(ctx context.Context, rule *models.AlertRule) error {
	return m.UpdateFunc(ctx, rule)
}
func (m *ruleRepoMock) Delete(ctx context.Context, farmID, id string) error {
	return m.DeleteFunc(ctx, farmID, id)
}
func (m *ruleRepoMock) ListByFarm(ctx context.Context, farmID string, onlyEnabled bool) ([]*models.AlertRule, error) {
	return m.ListByFarmFunc(ctx, farmID, onlyEnabled)
}

type notificationRepoMock struct {
	CreateFunc      func(ctx context.Context, n *models.Notification) error
	ExistsSinceFunc func(ctx context.Context, farmID, alertType string, since time.Time) (bool, error)
	ListFunc        func(ctx context.Context, farmID string, limit int) ([]*models.Notification, error)
	MarkReadFunc    func(ctx context.Context, farmID, id string) error
}

func (m *notificationRepoMock) BeginTx(ctx context.Context) (database.Transaction, error) {
	return nil, nil
}
func (m *notificationRepoMock) Create(ctx context.Context, n *models.Notification) error {
	return m.CreateFunc(ctx, n)
}
func (m *notificationRepoMock) ExistsSince(ctx context.Context, farmID, alertType string, since time.Time) (bool, error) {
	return m.ExistsSinceFunc(ctx, farmID, alertType, since)
}
func (m *notificationRepoMock) List(ctx context.Context, farmID string, limit int) ([]*models.Notification, error) {
	return m.ListFunc(ctx, farmID, limit)
}
func (m *notificationRepoMock) MarkRead(ctx context.Context, farmID, id string) error {
	return m.MarkReadFunc(ctx, farmID, id)
}

type readingRepoMock struct {
	InsertReadingFunc  func(ctx context.Context, r *models.Reading) error
	InsertIndexFunc    func(ctx context.Context, ix *models.DerivedIndex) error
	PreviousBeforeFunc func(ctx context.Context, farmID string, ts time.Time) (*models.Reading, error)
	LatestFunc         func(ctx context.Context, farmID string) (*models.Reading, error)
	HistoryFunc        func(ctx context.Context, farmID string, start, end time.Time, limit int) ([]*models.Reading, error)
	LatestIndexFunc    func(ctx context.Context, farmID string) (*models.DerivedIndex, error)
	IndexHistoryFunc   func(ctx context.Context, farmID string, start, end time.Time, limit int) ([]*models.DerivedIndex, error)
	CountZeroFunc      func(ctx context.Context, farmID string, field models.Metric, since time.Time) (int, error)
}

func (m *readingRepoMock) InsertReading(ctx context.Context, r *models.Reading) error {
	return m.InsertReadingFunc(ctx, r)
}
func (m *readingRepoMock) InsertIndex(ctx context.Context, ix *models.DerivedIndex) error {
	return m.InsertIndexFunc(ctx, ix)
}
func (m *readingRepoMock) PreviousBefore(ctx context.Context, farmID string, ts time.Time) (*models.Reading, error) {
	return m.PreviousBeforeFunc(ctx, farmID, ts)
}
func (m *readingRepoMock) Latest(ctx context.Context, farmID string) (*models.Reading, error) {
	return m.LatestFunc(ctx, farmID)
}
func (m *readingRepoMock) History(ctx context.Context, farmID string, start, end time.Time, limit int) ([]*models.Reading, error) {
	return m.HistoryFunc(ctx, farmID, start, end, limit)
}
func (m *readingRepoMock) LatestIndex(ctx context.Context, farmID string) (*models.DerivedIndex, error) {
	return m.LatestIndexFunc(ctx, farmID)
}
func (m *readingRepoMock) IndexHistory(ctx context.Context, farmID string, start, end time.Time, limit int) ([]*models.DerivedIndex, error) {
	return m.IndexHistoryFunc(ctx, farmID, start, end, limit)
}
func (m *readingRepoMock) CountZero(ctx context.Context, farmID string, field models.Metric, since time.Time) (int, error) {
	return m.CountZeroFunc(ctx, farmID, field, since)
}

type statusRepoMock struct {
	UpsertFunc     func(ctx context.Context, status *models.DeviceStatus) error
	ListByFarmFunc func(ctx context.Context, farmID string) ([]*models.DeviceStatus, error)
}

func (m *statusRepoMock) BeginTx(ctx context.Context) (database.Transaction, error) {
	return nil, nil
}
func (m *statusRepoMock) Upsert(ctx context.Context, status *models.DeviceStatus) error {
	return m.UpsertFunc(ctx, status)
}
func (m *statusRepoMock) ListByFarm(ctx context.Context, farmID string) ([]*models.DeviceStatus, error) {
	return m.ListByFarmFunc(ctx, farmID)
}

type cacheMock struct {
	GetFunc        func(ctx context.Context, farmID string) *models.FarmSetting
	SetFunc        func(ctx context.Context, setting *models.FarmSetting)
	InvalidateFunc func(ctx context.Context, farmID string)
}

func (m *cacheMock) Get(ctx context.Context, farmID string) *models.FarmSetting {
	return m.GetFunc(ctx, farmID)
}
func (m *cacheMock) Set(ctx context.Context, setting *models.FarmSetting) {
	m.SetFunc(ctx, setting)
}
func (m *cacheMock) Invalidate(ctx context.Context, farmID string) {
	m.InvalidateFunc(ctx, farmID)
}

type sinkMock struct {
	SendFunc func(ctx context.Context, webhookURL, content string) error
}

func (m *sinkMock) Send(ctx context.Context, webhookURL, content string) error {
	return m.SendFunc(ctx, webhookURL, content)
}

// testFixture bundles the service under test with its mocks
type testFixture struct {
	svc           *FarmService
	settings      *settingsRepoMock
	commands      *commandRepoMock
	rules         *ruleRepoMock
	notifications *notificationRepoMock
	readings      *readingRepoMock
	statuses      *statusRepoMock
	sink          *sinkMock
}

var testNow = time.Date(2025, 6, 15, 9, 30, 0, 0, time.UTC)

func testSetting(farmID string) *models.FarmSetting {
	return &models.FarmSetting{
		FarmID:              farmID,
		DeviceKey:           "key-1",
		AutoSoilStartAt:     35,
		WateringDurationSec: 30,
		WateringCooldownMin: 10,
		SamplingIntervalMin: 1,
		Schedules:           models.ScheduleList{},
		Webhooks:            models.WebhookList{},
	}
}

// newTestFixture wires a service against benign mock defaults: one farm
// ("farm-1", device key "key-1"), no rules, no pending commands, no prior
// notifications.
func newTestFixture() *testFixture {
	f := &testFixture{
		settings: &settingsRepoMock{
			GetFunc: func(ctx context.Context, farmID string) (*models.FarmSetting, error) {
				if farmID != "farm-1" {
					return nil, errors.NewNotFoundError("farm settings not found", nil)
				}
				return testSetting(farmID), nil
			},
			UpsertFunc: func(ctx context.Context, setting *models.FarmSetting) error { return nil },
			ClaimDeviceKeyFunc: func(ctx context.Context, farmID, key string) (bool, error) {
				return false, nil
			},
		},
		commands: &commandRepoMock{
			CreateFunc:             func(ctx context.Context, cmd *models.DeviceCommand) error { return nil },
			HasPendingOnFunc:       func(ctx context.Context, farmID string) (bool, error) { return false, nil },
			ScheduledKeyExistsFunc: func(ctx context.Context, farmID, key string) (bool, error) { return false, nil },
		},
		rules: &ruleRepoMock{
			ListByFarmFunc: func(ctx context.Context, farmID string, onlyEnabled bool) ([]*models.AlertRule, error) {
				return nil, nil
			},
		},
		notifications: &notificationRepoMock{
			CreateFunc: func(ctx context.Context, n *models.Notification) error { return nil },
			ExistsSinceFunc: func(ctx context.Context, farmID, alertType string, since time.Time) (bool, error) {
				return false, nil
			},
		},
		readings: &readingRepoMock{
			InsertReadingFunc: func(ctx context.Context, r *models.Reading) error { return nil },
			InsertIndexFunc:   func(ctx context.Context, ix *models.DerivedIndex) error { return nil },
			PreviousBeforeFunc: func(ctx context.Context, farmID string, ts time.Time) (*models.Reading, error) {
				return nil, errors.NewNotFoundError("no previous reading", nil)
			},
			CountZeroFunc: func(ctx context.Context, farmID string, field models.Metric, since time.Time) (int, error) {
				return 0, nil
			},
		},
		statuses: &statusRepoMock{
			UpsertFunc: func(ctx context.Context, status *models.DeviceStatus) error { return nil },
			ListByFarmFunc: func(ctx context.Context, farmID string) ([]*models.DeviceStatus, error) {
				return nil, nil
			},
		},
		sink: &sinkMock{
			SendFunc: func(ctx context.Context, webhookURL, content string) error { return nil },
		},
	}

	f.svc = New(f.settings, f.commands, f.rules, f.notifications, f.readings,
		f.statuses, f.sink, nil, monitoring.NewService(),
		config.AlertingConfig{
			DedupWindow: 30 * time.Minute,
			ZeroWindow:  30 * time.Minute,
			ZeroCount:   5,
		},
		config.WateringConfig{
			MinDurationSec: 1,
			MaxDurationSec: 3600,
			PollDebounce:   3 * time.Second,
		})
	f.svc.now = func() time.Time { return testNow }
	return f
}
