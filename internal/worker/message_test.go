package worker

import (
	"testing"

	"github.com/golang-sql/civil"
	"github.com/jmehdipour/reminder-dispatch/internal/model"
	"github.com/jmehdipour/reminder-dispatch/internal/push"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeBody(t *testing.T) {
	t.Parallel()

	body := ComposeBody([]model.TrackedEvent{
		{Label: "Asha", Category: "MMR"},
		{Label: "", Category: " "},
	})
	assert.Equal(t, "Reminder: MMR (Asha), vaccine (your child) are due tomorrow. Please enquire or book an appointment.", body)
}

func TestBuildMessage(t *testing.T) {
	t.Parallel()

	msg := BuildMessage([]string{"a"}, "body", civil.Date{Year: 2026, Month: 1, Day: 5})
	assert.Equal(t, push.Message{
		Title:  "Vaccine reminder",
		Body:   "body",
		Tokens: []string{"a"},
		Data:   map[string]string{"type": "vaccine_reminder", "date": "2026-01-05"},
	}, msg)
}

func TestParsePolicy(t *testing.T) {
	t.Parallel()

	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.True(t, p(push.BatchResult{}))

	p, err = ParsePolicy("REQUIRE_SUCCESS")
	require.NoError(t, err)
	assert.False(t, p(push.BatchResult{FailureCount: 3}))
	assert.True(t, p(push.BatchResult{SuccessCount: 1, FailureCount: 3}))

	_, err = ParsePolicy("sometimes")
	require.Error(t, err)
}
