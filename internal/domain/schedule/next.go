// Package schedule computes next-run timestamps for recurring agent jobs.
// All math is pure over an injected now so tests can supply fixed times.
package schedule

import (
	"time"

	"github.com/opsdeck/opsdeck/internal/domain/model"
)

// runHour is the wall-clock hour daily and weekly jobs fire at.
const runHour = 6

// NextRun computes the next run time for a schedule descriptor relative to now.
// Keywords hourly/daily/weekly get precise semantics; any other string is
// treated as a raw cron-like schedule and conservatively falls back to
// tomorrow at the current time, since full cron parsing is out of scope.
// The result is always strictly after now.
func NextRun(descriptor string, now time.Time) time.Time {
	switch descriptor {
	case model.ScheduleHourly:
		return now.Truncate(time.Hour).Add(time.Hour)
	case model.ScheduleDaily:
		next := now.AddDate(0, 0, 1)
		return atHour(next, runHour)
	case model.ScheduleWeekly:
		return nextMonday(now)
	default:
		return now.AddDate(0, 0, 1)
	}
}

// nextMonday returns 06:00 on the next Monday after now. When now is already
// a Monday the job advances a full week rather than firing again the same day.
func nextMonday(now time.Time) time.Time {
	daysAhead := (int(time.Monday) - int(now.Weekday()) + 7) % 7
	if daysAhead == 0 {
		daysAhead = 7
	}
	return atHour(now.AddDate(0, 0, daysAhead), runHour)
}

func atHour(t time.Time, hour int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, t.Location())
}
