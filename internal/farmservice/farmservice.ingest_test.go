package farmservice

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/kasetlab/farmhub/internal/agronomy"
	"github.com/kasetlab/farmhub/internal/errors"
	"github.com/kasetlab/farmhub/internal/models"
	"github.com/matryer/is"
)

func TestIngestStoresReadingAndDerivedIndex(t *testing.T) {
	is := is.New(t)
	f := newTestFixture()

	var storedReading *models.Reading
	var storedIndex *models.DerivedIndex
	f.readings.InsertReadingFunc = func(ctx context.Context, r *models.Reading) error {
		storedReading = r
		return nil
	}
	f.readings.InsertIndexFunc = func(ctx context.Context, ix *models.DerivedIndex) error {
		storedIndex = ix
		return nil
	}

	result, err := f.svc.IngestReading(context.Background(), &SensorReport{
		FarmID:       "farm-1",
		DeviceKey:    "key-1",
		Temperature:  25,
		HumidityAir:  50,
		SoilMoisture: 40,
	})
	is.NoErr(err)

	is.True(storedReading != nil)
	is.Equal(storedReading.FarmID, "farm-1")
	is.Equal(storedReading.Temperature, 25.0)
	is.Equal(storedReading.Timestamp, testNow)

	is.True(storedIndex != nil)
	is.Equal(storedIndex.VPD, agronomy.VPD(25, 50))
	is.Equal(storedIndex.DewPoint, agronomy.DewPoint(25, 50))
	is.Equal(storedIndex.GDD, 15.0)
	is.Equal(storedIndex.SoilDryingRate, 0.0) // no previous reading

	is.Equal(result.Reading, storedReading)
	is.Equal(result.Index, storedIndex)
}

func TestIngestComputesSoilDryingRateFromPreviousReading(t *testing.T) {
	is := is.New(t)
	f := newTestFixture()

	f.readings.PreviousBeforeFunc = func(ctx context.Context, farmID string, ts time.Time) (*models.Reading, error) {
		return &models.Reading{
			FarmID:       farmID,
			Timestamp:    ts.Add(-10 * time.Minute),
			SoilMoisture: 50,
		}, nil
	}

	result, err := f.svc.IngestReading(context.Background(), &SensorReport{
		FarmID:       "farm-1",
		DeviceKey:    "key-1",
		Temperature:  25,
		HumidityAir:  50,
		SoilMoisture: 40,
	})
	is.NoErr(err)

	// 10 points lost over 10 minutes
	is.Equal(result.Index.SoilDryingRate, 1.0)
}

func TestIngestSanitizesNonFiniteValues(t *testing.T) {
	is := is.New(t)
	f := newTestFixture()

	result, err := f.svc.IngestReading(context.Background(), &SensorReport{
		FarmID:       "farm-1",
		DeviceKey:    "key-1",
		Temperature:  math.NaN(),
		HumidityAir:  math.Inf(1),
		SoilMoisture: 40,
	})
	is.NoErr(err)

	is.Equal(result.Reading.Temperature, 0.0)
	is.Equal(result.Reading.HumidityAir, 0.0)
	is.Equal(result.Reading.SoilMoisture, 40.0)
}

func TestIngestRejectsWrongDeviceKey(t *testing.T) {
	is := is.New(t)
	f := newTestFixture()

	inserted := false
	f.readings.InsertReadingFunc = func(ctx context.Context, r *models.Reading) error {
		inserted = true
		return nil
	}

	_, err := f.svc.IngestReading(context.Background(), &SensorReport{
		FarmID:    "farm-1",
		DeviceKey: "wrong-key",
	})
	is.True(err != nil)
	is.True(errors.IsAuthorization(err))
	is.True(!inserted)
}

func TestBlankDeviceKeyIsClaimedByFirstDevice(t *testing.T) {
	is := is.New(t)
	f := newTestFixture()

	f.settings.GetFunc = func(ctx context.Context, farmID string) (*models.FarmSetting, error) {
		setting := testSetting(farmID)
		setting.DeviceKey = ""
		return setting, nil
	}
	var claimedKey string
	f.settings.ClaimDeviceKeyFunc = func(ctx context.Context, farmID, key string) (bool, error) {
		claimedKey = key
		return true, nil
	}

	_, err := f.svc.IngestReading(context.Background(), &SensorReport{
		FarmID:    "farm-1",
		DeviceKey: "fresh-key",
	})
	is.NoErr(err)
	is.Equal(claimedKey, "fresh-key")
}

func TestLostClaimRaceFallsBackToStoredKey(t *testing.T) {
	is := is.New(t)
	f := newTestFixture()

	calls := 0
	f.settings.GetFunc = func(ctx context.Context, farmID string) (*models.FarmSetting, error) {
		calls++
		setting := testSetting(farmID)
		if calls == 1 {
			// First read still sees the blank key
			setting.DeviceKey = ""
		} else {
			setting.DeviceKey = "winner-key"
		}
		return setting, nil
	}
	f.settings.ClaimDeviceKeyFunc = func(ctx context.Context, farmID, key string) (bool, error) {
		return false, nil
	}

	_, err := f.svc.IngestReading(context.Background(), &SensorReport{
		FarmID:    "farm-1",
		DeviceKey: "loser-key",
	})
	is.True(errors.IsAuthorization(err))
}

func TestIngestAutoSoilWateringEnqueuesBucketedCommand(t *testing.T) {
	is := is.New(t)
	f := newTestFixture()

	f.settings.GetFunc = func(ctx context.Context, farmID string) (*models.FarmSetting, error) {
		setting := testSetting(farmID)
		setting.AutoSoilEnabled = true
		return setting, nil
	}

	var created *models.DeviceCommand
	f.commands.CreateFunc = func(ctx context.Context, cmd *models.DeviceCommand) error {
		created = cmd
		return nil
	}

	_, err := f.svc.IngestReading(context.Background(), &SensorReport{
		FarmID:       "farm-1",
		DeviceKey:    "key-1",
		Temperature:  25,
		HumidityAir:  50,
		SoilMoisture: 30, // below the 35 trigger
	})
	is.NoErr(err)

	is.True(created != nil)
	is.Equal(created.DeviceID, models.DevicePump)
	is.Equal(created.Command, models.CommandOn)
	is.Equal(created.DurationSec, 30)
	is.Equal(created.Source, models.SourceAuto)
	is.Equal(created.Status, models.CommandPending)

	bucket := testNow.UnixMilli() / (10 * 60_000)
	is.True(created.ScheduledKey != nil)
	is.Equal(*created.ScheduledKey, fmt.Sprintf("soil|farm-1|%d", bucket))
}

func TestAutoSoilSkipsInsideCooldownBucket(t *testing.T) {
	is := is.New(t)
	f := newTestFixture()

	f.settings.GetFunc = func(ctx context.Context, farmID string) (*models.FarmSetting, error) {
		setting := testSetting(farmID)
		setting.AutoSoilEnabled = true
		return setting, nil
	}
	f.commands.ScheduledKeyExistsFunc = func(ctx context.Context, farmID, key string) (bool, error) {
		return true, nil
	}
	f.commands.CreateFunc = func(ctx context.Context, cmd *models.DeviceCommand) error {
		t.Fatalf("unexpected command enqueue: %+v", cmd)
		return nil
	}

	_, err := f.svc.IngestReading(context.Background(), &SensorReport{
		FarmID:       "farm-1",
		DeviceKey:    "key-1",
		SoilMoisture: 30,
	})
	is.NoErr(err)
}

func TestAutoSoilSkipsWhenPumpPausedOrPendingOn(t *testing.T) {
	is := is.New(t)

	cases := []struct {
		name    string
		paused  bool
		pending bool
	}{
		{"paused", true, false},
		{"pending ON in queue", false, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newTestFixture()
			f.settings.GetFunc = func(ctx context.Context, farmID string) (*models.FarmSetting, error) {
				setting := testSetting(farmID)
				setting.AutoSoilEnabled = true
				setting.PumpPaused = tc.paused
				return setting, nil
			}
			f.commands.HasPendingOnFunc = func(ctx context.Context, farmID string) (bool, error) {
				return tc.pending, nil
			}
			f.commands.CreateFunc = func(ctx context.Context, cmd *models.DeviceCommand) error {
				t.Fatalf("unexpected command enqueue: %+v", cmd)
				return nil
			}

			_, err := f.svc.IngestReading(context.Background(), &SensorReport{
				FarmID:       "farm-1",
				DeviceKey:    "key-1",
				SoilMoisture: 10,
			})
			is.NoErr(err)
		})
	}
}

func TestZeroAnomalyRaisesNotificationAboveThreshold(t *testing.T) {
	is := is.New(t)
	f := newTestFixture()

	f.readings.CountZeroFunc = func(ctx context.Context, farmID string, field models.Metric, since time.Time) (int, error) {
		if field == models.MetricTemperature {
			return 6, nil
		}
		return 0, nil
	}

	var created *models.Notification
	f.notifications.CreateFunc = func(ctx context.Context, n *models.Notification) error {
		created = n
		return nil
	}

	_, err := f.svc.IngestReading(context.Background(), &SensorReport{
		FarmID:    "farm-1",
		DeviceKey: "key-1",
	})
	is.NoErr(err)

	is.True(created != nil)
	is.Equal(created.AlertType, "sensor_zero_temperature")
	is.Equal(created.Severity, models.SeverityMedium)
}

func TestZeroAnomalyIgnoresCountAtThreshold(t *testing.T) {
	is := is.New(t)
	f := newTestFixture()

	// Exactly the threshold must not fire; the check is strictly greater
	f.readings.CountZeroFunc = func(ctx context.Context, farmID string, field models.Metric, since time.Time) (int, error) {
		return 5, nil
	}
	f.notifications.CreateFunc = func(ctx context.Context, n *models.Notification) error {
		t.Fatalf("unexpected notification: %+v", n)
		return nil
	}

	_, err := f.svc.IngestReading(context.Background(), &SensorReport{
		FarmID:    "farm-1",
		DeviceKey: "key-1",
	})
	is.NoErr(err)
}

func TestRuleEvaluationFiresAdvisoryWithoutDelivery(t *testing.T) {
	is := is.New(t)
	f := newTestFixture()

	f.settings.GetFunc = func(ctx context.Context, farmID string) (*models.FarmSetting, error) {
		setting := testSetting(farmID)
		setting.Webhooks = models.WebhookList{
			{URL: "https://discord.com/api/webhooks/1/aa", Enabled: true},
		}
		return setting, nil
	}

	duration := 7200 // beyond the max, must be clamped
	f.rules.ListByFarmFunc = func(ctx context.Context, farmID string, onlyEnabled bool) ([]*models.AlertRule, error) {
		is.True(onlyEnabled)
		return []*models.AlertRule{{
			ID:          "r1",
			FarmID:      farmID,
			Metric:      models.MetricTemperature,
			Operator:    models.OperatorGreaterThan,
			Threshold:   20,
			Enabled:     true,
			Action:      models.ActionWater,
			DurationSec: &duration,
		}}, nil
	}

	// Rule hits stay in the feed; they never go out to the webhooks
	f.sink.SendFunc = func(ctx context.Context, webhookURL, content string) error {
		t.Fatalf("unexpected webhook delivery to %s", webhookURL)
		return nil
	}
	var created *models.Notification
	f.notifications.CreateFunc = func(ctx context.Context, n *models.Notification) error {
		created = n
		return nil
	}

	_, err := f.svc.IngestReading(context.Background(), &SensorReport{
		FarmID:      "farm-1",
		DeviceKey:   "key-1",
		Temperature: 25,
		HumidityAir: 50,
	})
	is.NoErr(err)

	is.True(created != nil)
	is.Equal(created.AlertType, "rule_r1")
	is.True(created.RuleID != nil)
	is.Equal(*created.RuleID, "r1")
	is.Equal(created.RecommendedAction, "water")
	is.True(created.RecommendedDurationSec != nil)
	is.Equal(*created.RecommendedDurationSec, 3600)
	is.Equal(created.SentTo, "system")
	is.Equal(created.SentStatus, models.SentStatusSuccess)
}

func TestZeroAnomalyDeliversToEnabledWebhooks(t *testing.T) {
	is := is.New(t)
	f := newTestFixture()

	f.settings.GetFunc = func(ctx context.Context, farmID string) (*models.FarmSetting, error) {
		setting := testSetting(farmID)
		setting.Webhooks = models.WebhookList{
			{URL: "https://discord.com/api/webhooks/1/aa", Enabled: true},
			{URL: "https://discord.com/api/webhooks/2/bb", Enabled: false},
		}
		return setting, nil
	}
	f.readings.CountZeroFunc = func(ctx context.Context, farmID string, field models.Metric, since time.Time) (int, error) {
		if field == models.MetricSoilMoisture {
			return 6, nil
		}
		return 0, nil
	}

	var sentTo []string
	f.sink.SendFunc = func(ctx context.Context, webhookURL, content string) error {
		sentTo = append(sentTo, webhookURL)
		return nil
	}
	var created *models.Notification
	f.notifications.CreateFunc = func(ctx context.Context, n *models.Notification) error {
		created = n
		return nil
	}

	_, err := f.svc.IngestReading(context.Background(), &SensorReport{
		FarmID:    "farm-1",
		DeviceKey: "key-1",
	})
	is.NoErr(err)

	// Only the enabled webhook receives the alert
	is.Equal(len(sentTo), 1)
	is.Equal(sentTo[0], "https://discord.com/api/webhooks/1/aa")

	is.True(created != nil)
	is.Equal(created.AlertType, "sensor_zero_soil_moisture")
	is.Equal(created.SentTo, "discord")
	is.Equal(created.SentStatus, models.SentStatusSuccess)
}

func TestRuleEvaluationDedupsInsideWindow(t *testing.T) {
	is := is.New(t)
	f := newTestFixture()

	f.rules.ListByFarmFunc = func(ctx context.Context, farmID string, onlyEnabled bool) ([]*models.AlertRule, error) {
		return []*models.AlertRule{{
			ID:        "r1",
			FarmID:    farmID,
			Metric:    models.MetricTemperature,
			Operator:  models.OperatorGreaterThan,
			Threshold: 20,
			Enabled:   true,
		}}, nil
	}
	var checkedSince time.Time
	f.notifications.ExistsSinceFunc = func(ctx context.Context, farmID, alertType string, since time.Time) (bool, error) {
		checkedSince = since
		return true, nil
	}
	f.notifications.CreateFunc = func(ctx context.Context, n *models.Notification) error {
		t.Fatalf("unexpected notification: %+v", n)
		return nil
	}

	_, err := f.svc.IngestReading(context.Background(), &SensorReport{
		FarmID:      "farm-1",
		DeviceKey:   "key-1",
		Temperature: 25,
		HumidityAir: 50,
	})
	is.NoErr(err)
	is.Equal(checkedSince, testNow.Add(-30*time.Minute))
}

func TestRuleEvaluationSkipsNonFiniteMetric(t *testing.T) {
	is := is.New(t)
	f := newTestFixture()

	f.rules.ListByFarmFunc = func(ctx context.Context, farmID string, onlyEnabled bool) ([]*models.AlertRule, error) {
		return []*models.AlertRule{{
			ID:       "r1",
			FarmID:   farmID,
			Metric:   models.MetricDewPoint,
			Operator: models.OperatorLessThan,
			// Everything is below a huge threshold, but the dew point of a
			// zero-humidity sample is not a number
			Threshold: 1000,
			Enabled:   true,
		}}, nil
	}
	f.notifications.CreateFunc = func(ctx context.Context, n *models.Notification) error {
		t.Fatalf("unexpected notification: %+v", n)
		return nil
	}
	_, err := f.svc.IngestReading(context.Background(), &SensorReport{
		FarmID:      "farm-1",
		DeviceKey:   "key-1",
		Temperature: 25,
		HumidityAir: 0,
	})
	is.NoErr(err)
}
