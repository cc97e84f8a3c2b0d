// -----------------------------------------------------------------------
// Scheduler - next trigger instant in a civil timezone
// -----------------------------------------------------------------------

package scheduler

import (
	"fmt"
	"time"
)

// maxSearchDays bounds the civil-calendar search. A year plus slack covers
// any DST gap where a wall-clock time does not exist on a given day.
const maxSearchDays = 370

// nextRunTime returns the next instant strictly after now whose wall-clock
// time in tz equals hour:minute. It walks civil calendar days rather than
// adding a fixed UTC delta, because the zone's offset at "now" and at the
// next occurrence can differ.
func nextRunTime(now time.Time, hour, minute int, tz string) (time.Time, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}

	local := now.In(loc)
	year, month, day := local.Date()

	for i := 0; i < maxSearchDays; i++ {
		candidate := time.Date(year, month, day+i, hour, minute, 0, 0, loc)
		// A DST spring-forward gap can normalize the candidate onto a
		// different wall-clock time; such a day has no valid occurrence.
		if candidate.Hour() != hour || candidate.Minute() != minute {
			continue
		}
		if candidate.After(now) {
			return candidate, nil
		}
	}
	return time.Time{}, fmt.Errorf("no future occurrence of %02d:%02d found in %s within %d days", hour, minute, tz, maxSearchDays)
}
