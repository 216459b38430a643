// Package calendar holds the timezone-local date arithmetic used to decide
// when a reminder is sent. Everything here is pure.
package calendar

import (
	"time"

	"github.com/golang-sql/civil"
)

// anchorHour is the local hour a calendar date is pinned to when it has to
// become an instant. Must not be midnight (DST switches skip or repeat it).
const anchorHour = 9

// At returns the instant of d at 09:00 in loc.
func At(d civil.Date, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, anchorHour, 0, 0, 0, loc)
}

// Today is the local calendar date of now in loc.
func Today(now time.Time, loc *time.Location) civil.Date {
	return civil.DateOf(now.In(loc))
}

// DateAfterDays returns the local calendar date n days after now in loc.
func DateAfterDays(now time.Time, loc *time.Location, n int) civil.Date {
	return Today(now, loc).AddDays(n)
}

// IsWeekend reports whether d, read at 09:00 local, is a Saturday or Sunday.
func IsWeekend(d civil.Date, loc *time.Location) bool {
	switch At(d, loc).Weekday() {
	case time.Saturday, time.Sunday:
		return true
	}
	return false
}

// ShiftToPrecedingBusinessDay moves Saturday back one day and Sunday back two,
// both landing on the Friday before. Business days are returned unchanged.
func ShiftToPrecedingBusinessDay(d civil.Date, loc *time.Location) civil.Date {
	switch At(d, loc).Weekday() {
	case time.Saturday:
		return addLocalDays(d, loc, -1)
	case time.Sunday:
		return addLocalDays(d, loc, -2)
	}
	return d
}

// SendDate is the day a reminder for due must go out: the day before, pulled
// back to Friday when that falls on a weekend.
func SendDate(due civil.Date, loc *time.Location) civil.Date {
	d := addLocalDays(due, loc, -1)
	if IsWeekend(d, loc) {
		d = ShiftToPrecedingBusinessDay(d, loc)
	}
	return d
}

func addLocalDays(d civil.Date, loc *time.Location, n int) civil.Date {
	return civil.DateOf(At(d, loc).AddDate(0, 0, n))
}
