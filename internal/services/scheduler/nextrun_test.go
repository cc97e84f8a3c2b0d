package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestNextRunTimeSameDay(t *testing.T) {
	kolkata := mustLoc(t, "Asia/Kolkata")
	now := time.Date(2026, 9, 1, 8, 29, 0, 0, kolkata)

	next, err := nextRunTime(now, 8, 30, "Asia/Kolkata")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 9, 1, 8, 30, 0, 0, kolkata), next)
}

func TestNextRunTimeRollsToTomorrow(t *testing.T) {
	// Schedule 08:30 Asia/Kolkata, now 08:31 same day: next run is 08:30
	// the following day.
	kolkata := mustLoc(t, "Asia/Kolkata")
	now := time.Date(2026, 9, 1, 8, 31, 0, 0, kolkata)

	next, err := nextRunTime(now, 8, 30, "Asia/Kolkata")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 9, 2, 8, 30, 0, 0, kolkata), next)
	assert.True(t, next.After(now))
}

func TestNextRunTimeExactInstantRolls(t *testing.T) {
	// The result must be strictly future: an occurrence at exactly "now"
	// does not count.
	kolkata := mustLoc(t, "Asia/Kolkata")
	now := time.Date(2026, 9, 1, 8, 30, 0, 0, kolkata)

	next, err := nextRunTime(now, 8, 30, "Asia/Kolkata")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 2, 8, 30, 0, 0, kolkata), next)
}

func TestNextRunTimeFromOtherZone(t *testing.T) {
	// "now" expressed in UTC, schedule in Kolkata (+05:30).
	now := time.Date(2026, 9, 1, 3, 30, 0, 0, time.UTC) // 09:00 Kolkata
	next, err := nextRunTime(now, 8, 30, "Asia/Kolkata")
	require.NoError(t, err)

	kolkata := mustLoc(t, "Asia/Kolkata")
	assert.Equal(t, time.Date(2026, 9, 2, 8, 30, 0, 0, kolkata).Unix(), next.Unix())
}

func TestNextRunTimeAcrossDSTTransition(t *testing.T) {
	ny := mustLoc(t, "America/New_York")

	// 2026-03-08 is the US spring-forward date: 02:00 EST jumps to 03:00
	// EDT. A 02:30 schedule has no occurrence that day.
	now := time.Date(2026, 3, 7, 3, 0, 0, 0, ny)
	next, err := nextRunTime(now, 2, 30, "America/New_York")
	require.NoError(t, err)

	assert.Equal(t, 2, next.Hour())
	assert.Equal(t, 30, next.Minute())
	assert.Equal(t, 9, next.Day(), "the gap day is skipped")
}

func TestNextRunTimeDSTOffsetChange(t *testing.T) {
	ny := mustLoc(t, "America/New_York")

	// Crossing spring-forward: civil wall-clock stays 08:30 even though
	// the UTC offset changes from -05:00 to -04:00.
	now := time.Date(2026, 3, 7, 9, 0, 0, 0, ny)
	next, err := nextRunTime(now, 8, 30, "America/New_York")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 3, 8, 8, 30, 0, 0, ny), next)
	_, offset := next.Zone()
	assert.Equal(t, -4*3600, offset)
}

func TestNextRunTimeInvalidTimezone(t *testing.T) {
	_, err := nextRunTime(time.Now(), 8, 30, "Mars/Olympus_Mons")
	require.Error(t, err)
}

func TestValidateScheduleTime(t *testing.T) {
	assert.NoError(t, validateScheduleTime(0, 0))
	assert.NoError(t, validateScheduleTime(23, 59))
	assert.Error(t, validateScheduleTime(24, 0))
	assert.Error(t, validateScheduleTime(-1, 0))
	assert.Error(t, validateScheduleTime(8, 60))
	assert.Error(t, validateScheduleTime(8, -5))
}

func TestCronExpr(t *testing.T) {
	assert.Equal(t, "CRON_TZ=Asia/Kolkata 30 8 * * *", cronExpr(8, 30, "Asia/Kolkata"))
}
