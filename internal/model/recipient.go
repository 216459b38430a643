package model

import "github.com/golang-sql/civil"

// Recipient is an account that may receive reminders.
type Recipient struct {
	ID       string
	Timezone string   // IANA zone name; empty => default zone
	Tokens   []string // device tokens
	Muted    bool
	Events   []TrackedEvent
}

// TrackedEvent is a dated item attached to a recipient.
type TrackedEvent struct {
	ID               string
	DueDate          civil.Date
	Label            string
	Category         string
	LastNotifiedDate *civil.Date // nil => never notified
}

// AlreadyNotified reports whether the event was handled for the given due date.
// Only exact equality counts; an older or newer mark does not.
func (e TrackedEvent) AlreadyNotified(target civil.Date) bool {
	return e.LastNotifiedDate != nil && *e.LastNotifiedDate == target
}

// DueOn reports whether the event is a candidate for the given target date.
func (e TrackedEvent) DueOn(target civil.Date) bool {
	return e.DueDate == target && !e.AlreadyNotified(target)
}
