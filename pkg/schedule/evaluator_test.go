package schedule

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Walkerb10/meop/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEvaluator() *Evaluator {
	return NewEvaluator(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// at builds a wall-clock time in the reference timezone.
func at(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, ReferenceLocation())
}

func scheduledAutomation(triggerConfig map[string]any) *models.Automation {
	return &models.Automation{
		ID:            "automation-1",
		Name:          "Daily digest",
		IsActive:      true,
		TriggerType:   models.TriggerTypeScheduled,
		TriggerConfig: triggerConfig,
	}
}

func TestShouldRunNow_InactiveAutomation(t *testing.T) {
	evaluator := newTestEvaluator()

	automation := scheduledAutomation(map[string]any{
		"scheduled_time": "09:00",
		"frequency":      "daily",
	})
	automation.IsActive = false

	assert.False(t, evaluator.ShouldRunNow(automation, at(2026, time.March, 6, 9, 0)))
}

func TestShouldRunNow_NonScheduledTrigger(t *testing.T) {
	evaluator := newTestEvaluator()

	for _, triggerType := range []models.TriggerType{
		models.TriggerTypeManual,
		models.TriggerTypeWebhook,
		models.TriggerTypeVoice,
	} {
		automation := scheduledAutomation(map[string]any{
			"scheduled_time": "09:00",
			"frequency":      "daily",
		})
		automation.TriggerType = triggerType

		assert.False(t, evaluator.ShouldRunNow(automation, at(2026, time.March, 6, 9, 0)),
			"trigger type %s must never fire on schedule", triggerType)
	}
}

func TestShouldRunNow_Daily(t *testing.T) {
	evaluator := newTestEvaluator()

	automation := scheduledAutomation(map[string]any{
		"scheduled_time": "09:00",
		"frequency":      "daily",
	})

	testCases := []struct {
		name     string
		now      time.Time
		expected bool
	}{
		{"exact minute", at(2026, time.March, 6, 9, 0), true},
		{"one minute late", at(2026, time.March, 6, 9, 1), false},
		{"one minute early", at(2026, time.March, 6, 8, 59), false},
		{"same minute next day", at(2026, time.March, 7, 9, 0), true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, evaluator.ShouldRunNow(automation, tc.now))
		})
	}
}

func TestShouldRunNow_Weekly(t *testing.T) {
	evaluator := newTestEvaluator()

	automation := scheduledAutomation(map[string]any{
		"scheduled_time": "14:30",
		"frequency":      "weekly",
		"day_of_week":    []any{"monday", "friday"},
	})

	// 2026-03-06 is a Friday, 2026-03-03 a Tuesday.
	assert.True(t, evaluator.ShouldRunNow(automation, at(2026, time.March, 6, 14, 30)))
	assert.False(t, evaluator.ShouldRunNow(automation, at(2026, time.March, 3, 14, 30)))
	assert.False(t, evaluator.ShouldRunNow(automation, at(2026, time.March, 6, 14, 31)))
}

func TestShouldRunNow_Weekly_SingleDayString(t *testing.T) {
	evaluator := newTestEvaluator()

	// A bare string day and mixed casing are both accepted.
	automation := scheduledAutomation(map[string]any{
		"scheduled_time": "14:30",
		"frequency":      "weekly",
		"days":           "Friday",
	})

	assert.True(t, evaluator.ShouldRunNow(automation, at(2026, time.March, 6, 14, 30)))
	assert.False(t, evaluator.ShouldRunNow(automation, at(2026, time.March, 5, 14, 30)))
}

func TestShouldRunNow_Monthly(t *testing.T) {
	evaluator := newTestEvaluator()

	automation := scheduledAutomation(map[string]any{
		"scheduled_time": "08:15",
		"frequency":      "monthly",
		"day_of_month":   15,
	})

	assert.True(t, evaluator.ShouldRunNow(automation, at(2026, time.March, 15, 8, 15)))
	assert.False(t, evaluator.ShouldRunNow(automation, at(2026, time.March, 14, 8, 15)))
	assert.False(t, evaluator.ShouldRunNow(automation, at(2026, time.March, 16, 8, 15)))
}

func TestShouldRunNow_OneTime(t *testing.T) {
	evaluator := newTestEvaluator()

	automation := scheduledAutomation(map[string]any{
		"scheduled_time": "10:00",
		"frequency":      "one_time",
		"custom_date":    "2026-03-06",
	})

	assert.True(t, evaluator.ShouldRunNow(automation, at(2026, time.March, 6, 10, 0)))
	assert.False(t, evaluator.ShouldRunNow(automation, at(2026, time.March, 7, 10, 0)))
	assert.False(t, evaluator.ShouldRunNow(automation, at(2027, time.March, 6, 10, 0)))
}

func TestShouldRunNow_OneTime_FullTimestampDate(t *testing.T) {
	evaluator := newTestEvaluator()

	automation := scheduledAutomation(map[string]any{
		"scheduled_time": "10:00",
		"frequency":      "one_time",
		"custom_date":    "2026-03-06T00:00:00Z",
	})

	assert.True(t, evaluator.ShouldRunNow(automation, at(2026, time.March, 6, 10, 0)))
}

func TestShouldRunNow_EveryXDays(t *testing.T) {
	evaluator := newTestEvaluator()

	now := at(2026, time.March, 6, 7, 0)

	testCases := []struct {
		name      string
		lastRunAt *time.Time
		expected  bool
	}{
		{"never ran", nil, true},
		{"three days ago", timePtr(now.Add(-72 * time.Hour)), true},
		{"four days ago", timePtr(now.Add(-96 * time.Hour)), true},
		{"one day ago", timePtr(now.Add(-24 * time.Hour)), false},
		{"just under three days", timePtr(now.Add(-72*time.Hour + time.Minute)), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			automation := scheduledAutomation(map[string]any{
				"scheduled_time": "07:00",
				"frequency":      "every_x_days",
				"every_x_days":   3,
			})
			automation.LastRunAt = tc.lastRunAt

			assert.Equal(t, tc.expected, evaluator.ShouldRunNow(automation, now))
		})
	}
}

func TestShouldRunNow_EveryXDays_InvalidInterval(t *testing.T) {
	evaluator := newTestEvaluator()

	automation := scheduledAutomation(map[string]any{
		"scheduled_time": "07:00",
		"frequency":      "every_x_days",
		"every_x_days":   0,
	})

	assert.False(t, evaluator.ShouldRunNow(automation, at(2026, time.March, 6, 7, 0)))
}

func TestShouldRunNow_LegacyFieldNames(t *testing.T) {
	evaluator := newTestEvaluator()

	// camelCase legacy keys still evaluate.
	automation := scheduledAutomation(map[string]any{
		"scheduledTime": "09:00",
		"frequency":     "weekly",
		"dayOfWeek":     []any{"friday"},
	})

	assert.True(t, evaluator.ShouldRunNow(automation, at(2026, time.March, 6, 9, 0)))
}

func TestShouldRunNow_SnakeCaseTakesPrecedence(t *testing.T) {
	evaluator := newTestEvaluator()

	automation := scheduledAutomation(map[string]any{
		"scheduled_time": "09:00",
		"scheduledTime":  "17:00",
		"frequency":      "daily",
	})

	assert.True(t, evaluator.ShouldRunNow(automation, at(2026, time.March, 6, 9, 0)))
	assert.False(t, evaluator.ShouldRunNow(automation, at(2026, time.March, 6, 17, 0)))
}

func TestShouldRunNow_MalformedConfig(t *testing.T) {
	evaluator := newTestEvaluator()

	testCases := []struct {
		name          string
		triggerConfig map[string]any
	}{
		{"empty config", map[string]any{}},
		{"missing time", map[string]any{"frequency": "daily"}},
		{"time without colon", map[string]any{"scheduled_time": "0900", "frequency": "daily"}},
		{"hour out of range", map[string]any{"scheduled_time": "24:00", "frequency": "daily"}},
		{"minute out of range", map[string]any{"scheduled_time": "09:60", "frequency": "daily"}},
		{"non-numeric time", map[string]any{"scheduled_time": "nine:00", "frequency": "daily"}},
		{"unknown frequency", map[string]any{"scheduled_time": "09:00", "frequency": "hourly"}},
		{"missing frequency", map[string]any{"scheduled_time": "09:00"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			automation := scheduledAutomation(tc.triggerConfig)

			// Malformed schedules are a false result, never a panic.
			assert.False(t, evaluator.ShouldRunNow(automation, at(2026, time.March, 6, 9, 0)))
		})
	}
}

func TestParseClock(t *testing.T) {
	testCases := []struct {
		clock  string
		hour   int
		minute int
		ok     bool
	}{
		{"09:00", 9, 0, true},
		{"00:00", 0, 0, true},
		{"23:59", 23, 59, true},
		{"9:30", 9, 30, true},
		{" 9 : 30 ", 9, 30, true},
		{"24:00", 0, 0, false},
		{"12:60", 0, 0, false},
		{"-1:00", 0, 0, false},
		{"1200", 0, 0, false},
		{"", 0, 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.clock, func(t *testing.T) {
			hour, minute, ok := parseClock(tc.clock)

			require.Equal(t, tc.ok, ok)

			if tc.ok {
				assert.Equal(t, tc.hour, hour)
				assert.Equal(t, tc.minute, minute)
			}
		})
	}
}

func TestReferenceLocation(t *testing.T) {
	location := ReferenceLocation()

	require.NotNil(t, location)
	assert.Equal(t, "America/New_York", location.String())
	assert.Equal(t, location, Now().Location())
}

func timePtr(t time.Time) *time.Time {
	return &t
}
