// Package schedule decides whether a scheduled automation is due to fire.
//
// The evaluator is a pure predicate over an automation and a wall-clock time
// rendered in the organization's reference timezone. It is invoked once per
// minute by an external tick; it never performs side effects itself.
// Recording last_run_at and dispatching execution belong to the caller.
package schedule

import (
	"log/slog"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/Walkerb10/meop/pkg/models"
)

// Frequency is the recurrence kind of a scheduled automation.
type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyOneTime   Frequency = "one_time"
	FrequencyEveryXDay Frequency = "every_x_days"
)

// All scheduling is evaluated in one organizational timezone, not per-user.
const referenceTimezone = "America/New_York"

var referenceLocation = mustLoadLocation(referenceTimezone)

func mustLoadLocation(name string) *time.Location {
	location, err := time.LoadLocation(name)
	if err != nil {
		panic("failed to load reference timezone " + name + ": " + err.Error())
	}

	return location
}

// ReferenceLocation returns the fixed timezone all schedules are evaluated in.
func ReferenceLocation() *time.Location {
	return referenceLocation
}

// Now returns the current wall-clock time in the reference timezone.
func Now() time.Time {
	return time.Now().In(referenceLocation)
}

// Evaluator answers "is this automation due this minute". A false result is
// never an error: the next tick re-evaluates from scratch, with no catch-up
// for missed minutes.
type Evaluator struct {
	logger *slog.Logger
}

// NewEvaluator creates an evaluator that logs misconfigured schedules.
func NewEvaluator(logger *slog.Logger) *Evaluator {
	return &Evaluator{
		logger: logger.With("module", "schedule_evaluator"),
	}
}

// ShouldRunNow reports whether the automation is due at the given time. The
// time must already be rendered in the reference timezone (see Now).
func (e *Evaluator) ShouldRunNow(automation *models.Automation, now time.Time) bool {
	if !automation.IsScheduled() {
		return false
	}

	trigger := models.ScheduleTriggerConfigFromBag(automation.TriggerConfig)

	hour, minute, ok := parseClock(trigger.Time)
	if !ok {
		e.logger.Warn("Scheduled automation has no usable scheduled time",
			"automation_id", automation.ID,
			"scheduled_time", trigger.Time)

		return false
	}

	// Exact minute match; the once-per-minute tick cadence is the caller's
	// responsibility.
	if now.Hour() != hour || now.Minute() != minute {
		return false
	}

	switch Frequency(trigger.Frequency) {
	case FrequencyDaily:
		return true
	case FrequencyWeekly:
		return matchesWeekday(trigger.Days, now.Weekday())
	case FrequencyMonthly:
		return trigger.DayOfMonth == now.Day()
	case FrequencyOneTime:
		return matchesDate(trigger.CustomDate, now)
	case FrequencyEveryXDay:
		return e.intervalElapsed(automation, trigger.EveryXDays, now)
	default:
		e.logger.Warn("Scheduled automation has unrecognized frequency",
			"automation_id", automation.ID,
			"frequency", trigger.Frequency)

		return false
	}
}

// parseClock parses an HH:MM time-of-day string.
func parseClock(clock string) (int, int, bool) {
	hourPart, minutePart, found := strings.Cut(clock, ":")
	if !found {
		return 0, 0, false
	}

	hour, err := strconv.Atoi(strings.TrimSpace(hourPart))
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, false
	}

	minute, err := strconv.Atoi(strings.TrimSpace(minutePart))
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, false
	}

	return hour, minute, true
}

func matchesWeekday(days []string, weekday time.Weekday) bool {
	name := strings.ToLower(weekday.String())

	for _, day := range days {
		if strings.ToLower(strings.TrimSpace(day)) == name {
			return true
		}
	}

	return false
}

// matchesDate compares a configured ISO calendar date against now's
// year/month/day. Full timestamps are accepted by reading their date part.
func matchesDate(date string, now time.Time) bool {
	if len(date) > 10 {
		date = date[:10]
	}

	parsed, err := time.ParseInLocation("2006-01-02", date, now.Location())
	if err != nil {
		return false
	}

	return parsed.Year() == now.Year() &&
		parsed.Month() == now.Month() &&
		parsed.Day() == now.Day()
}

// intervalElapsed implements every_x_days: due when the automation never ran,
// or when the wall-clock difference floored to whole days reaches the
// interval. A calendar-day rollover alone does not count; each interval day
// needs a full 24 hours of elapsed time.
func (e *Evaluator) intervalElapsed(automation *models.Automation, interval int, now time.Time) bool {
	if interval <= 0 {
		e.logger.Warn("Scheduled automation has no usable interval",
			"automation_id", automation.ID,
			"every_x_days", interval)

		return false
	}

	if automation.LastRunAt == nil {
		return true
	}

	elapsedDays := int(now.Sub(*automation.LastRunAt).Hours() / 24)

	return elapsedDays >= interval
}
