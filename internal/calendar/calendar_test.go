package calendar

import (
	"testing"
	"time"

	"github.com/golang-sql/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(t *testing.T, s string) civil.Date {
	t.Helper()
	d, err := civil.ParseDate(s)
	require.NoError(t, err)
	return d
}

func zone(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestDateAfterDays(t *testing.T) {
	t.Parallel()

	// 20:00 UTC on new year's eve is already 01:30 on Jan 1 in Kolkata.
	now := time.Date(2026, 12, 31, 20, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		loc  *time.Location
		n    int
		want string
	}{
		{"utc tomorrow rolls year", time.UTC, 1, "2027-01-01"},
		{"kolkata uses local calendar", zone(t, "Asia/Kolkata"), 1, "2027-01-02"},
		{"los angeles behind utc", zone(t, "America/Los_Angeles"), 1, "2027-01-01"},
		{"zero days is today", zone(t, "Asia/Kolkata"), 0, "2027-01-01"},
		{"month rollover", time.UTC, 31, "2027-01-31"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, date(t, tt.want), DateAfterDays(now, tt.loc, tt.n))
		})
	}

	leap := time.Date(2024, 2, 28, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, date(t, "2024-02-29"), DateAfterDays(leap, time.UTC, 1))
}

func TestToday(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 14, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, date(t, "2026-10-14"), Today(now, time.UTC))
	assert.Equal(t, date(t, "2026-10-15"), Today(now, zone(t, "Asia/Kolkata")))
}

func TestIsWeekend(t *testing.T) {
	t.Parallel()

	loc := zone(t, "Asia/Kolkata")
	assert.False(t, IsWeekend(date(t, "2026-10-16"), loc)) // Fri
	assert.True(t, IsWeekend(date(t, "2026-10-17"), loc))  // Sat
	assert.True(t, IsWeekend(date(t, "2026-10-18"), loc))  // Sun
	assert.False(t, IsWeekend(date(t, "2026-10-19"), loc)) // Mon
}

func TestShiftToPrecedingBusinessDay(t *testing.T) {
	t.Parallel()

	loc := zone(t, "America/New_York")
	friday := date(t, "2026-10-16")

	assert.Equal(t, friday, ShiftToPrecedingBusinessDay(date(t, "2026-10-17"), loc), "saturday shifts one day")
	assert.Equal(t, friday, ShiftToPrecedingBusinessDay(date(t, "2026-10-18"), loc), "sunday shifts two days")

	for _, s := range []string{"2026-10-12", "2026-10-13", "2026-10-14", "2026-10-15", "2026-10-16"} {
		d := date(t, s)
		assert.Equal(t, d, ShiftToPrecedingBusinessDay(d, loc), "business day %s is unchanged", s)
	}
}

func TestSendDate(t *testing.T) {
	t.Parallel()

	loc := zone(t, "Asia/Kolkata")
	tests := []struct {
		due, want string
	}{
		{"2026-10-15", "2026-10-14"}, // Thu -> Wed
		{"2026-10-17", "2026-10-16"}, // Sat -> Fri
		{"2026-10-18", "2026-10-16"}, // Sun -> Sat -> Fri
		{"2026-10-19", "2026-10-16"}, // Mon -> Sun -> Fri
		{"2026-10-20", "2026-10-19"}, // Tue -> Mon
		{"2027-01-01", "2026-12-31"}, // year rollover
	}
	for _, tt := range tests {
		t.Run(tt.due, func(t *testing.T) {
			assert.Equal(t, date(t, tt.want), SendDate(date(t, tt.due), loc))
		})
	}
}

func TestSendDate_DSTTransition(t *testing.T) {
	t.Parallel()

	// US clocks spring forward on Sunday 2026-03-08.
	loc := zone(t, "America/New_York")
	assert.Equal(t, date(t, "2026-03-06"), SendDate(date(t, "2026-03-09"), loc))
	assert.Equal(t, date(t, "2026-03-09"), SendDate(date(t, "2026-03-10"), loc))

	// and fall back on Sunday 2026-11-01.
	assert.Equal(t, date(t, "2026-10-30"), SendDate(date(t, "2026-11-02"), loc))
}

func TestSendDate_NeverWeekend(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"UTC", "Asia/Kolkata", "America/New_York", "Pacific/Auckland"} {
		loc := zone(t, name)
		due := date(t, "2026-01-01")
		for i := 0; i < 400; i++ {
			d := due.AddDays(i)
			sd := SendDate(d, loc)
			require.False(t, IsWeekend(sd, loc), "%s: send date %s for due %s is a weekend", name, sd, d)
			gap := d.DaysSince(sd)
			require.True(t, gap >= 1 && gap <= 3, "%s: send date %s is %d days before %s", name, sd, gap, d)
		}
	}
}
