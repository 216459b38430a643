package model

import (
	"testing"

	"github.com/golang-sql/civil"
	"github.com/stretchr/testify/assert"
)

func TestTrackedEvent_DueOn(t *testing.T) {
	t.Parallel()

	target := civil.Date{Year: 2026, Month: 10, Day: 15}
	older := civil.Date{Year: 2026, Month: 4, Day: 15}
	newer := civil.Date{Year: 2027, Month: 1, Day: 1}

	tests := []struct {
		name string
		ev   TrackedEvent
		want bool
	}{
		{"due never notified", TrackedEvent{DueDate: target}, true},
		{"due notified for older date", TrackedEvent{DueDate: target, LastNotifiedDate: &older}, true},
		{"due notified for newer date", TrackedEvent{DueDate: target, LastNotifiedDate: &newer}, true},
		{"due already notified", TrackedEvent{DueDate: target, LastNotifiedDate: &target}, false},
		{"not due", TrackedEvent{DueDate: newer}, false},
		{"no due date", TrackedEvent{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ev.DueOn(target))
		})
	}
}
