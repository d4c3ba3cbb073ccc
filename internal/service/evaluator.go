package service

import (
	"fmt"
	"time"

	"smart_irrigation/internal/models"
)

// Evaluate is a pure function of the active preset's schedules, the current
// time and the pump state. It decides whether the pump should be running
// right now and, when it should, until when.
//
// An enabled schedule whose day matches the window's start day (or any-day)
// covers [start, start+duration). A window that crosses midnight still runs
// to its full end, so yesterday's start is considered too. When several windows
// overlap, the one with the latest start wins, ties broken by highest
// schedule id — a policy choice for misconfigured presets, not a correctness
// requirement.
//
// Manual runs are never touched: the controller ignores schedule_start while
// a manual run is in progress, and Evaluate only asks for a stop when the
// current run was started by a schedule.
func Evaluate(schedules []models.Schedule, now time.Time, st models.PumpState) models.RunIntent {
	var (
		best      models.Schedule
		bestStart time.Time
		bestEnd   time.Time
		found     bool
	)

	for _, s := range schedules {
		if !s.Enabled {
			continue
		}
		hh, mm, err := parseClock(s.StartTime)
		if err != nil {
			continue // a malformed row must never stall the tick
		}
		// Check today's window and yesterday's: a window that started before
		// midnight can still cover now.
		for _, daysBack := range []int{0, 1} {
			day := now.AddDate(0, 0, -daysBack)
			if s.DayOfWeek != models.AnyDay && s.DayOfWeek != int(day.Weekday()) {
				continue
			}
			start := time.Date(day.Year(), day.Month(), day.Day(), hh, mm, 0, 0, now.Location())
			end := start.Add(time.Duration(s.DurationSeconds) * time.Second)
			if now.Before(start) || !now.Before(end) {
				continue
			}
			if !found || laterWindow(s, start, best, bestStart) {
				best, bestStart, bestEnd = s, start, end
				found = true
			}
		}
	}

	if found {
		end := bestEnd
		return models.RunIntent{
			WantOn:     true,
			Reason:     models.ReasonScheduleStart,
			ScheduleID: best.ID,
			ExpiresAt:  &end,
		}
	}

	// No window covers now. Ask for a stop only if a schedule started the
	// current run; otherwise this is an idempotent no-op.
	return models.RunIntent{WantOn: false, Reason: models.ReasonScheduleEnd}
}

// laterWindow implements the overlap tie-break: latest start_time wins,
// then highest id.
func laterWindow(a models.Schedule, aStart time.Time, b models.Schedule, bStart time.Time) bool {
	if !aStart.Equal(bStart) {
		return aStart.After(bStart)
	}
	return a.ID > b.ID
}

// parseClock parses "HH:MM" (24h).
func parseClock(s string) (hh, mm int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}
