package worker

import (
	"fmt"
	"strings"

	"github.com/golang-sql/civil"
	"github.com/jmehdipour/reminder-dispatch/internal/model"
	"github.com/jmehdipour/reminder-dispatch/internal/push"
)

const (
	Title       = "Vaccine reminder"
	PayloadType = "vaccine_reminder"

	bodyFormat       = "Reminder: %s are due tomorrow. Please enquire or book an appointment."
	fragmentSep      = ", "
	fallbackCategory = "vaccine"
	fallbackLabel    = "your child"
)

// ComposeBody renders the single aggregated reminder sentence.
func ComposeBody(events []model.TrackedEvent) string {
	parts := make([]string, 0, len(events))
	for _, ev := range events {
		category := strings.TrimSpace(ev.Category)
		if category == "" {
			category = fallbackCategory
		}
		label := strings.TrimSpace(ev.Label)
		if label == "" {
			label = fallbackLabel
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", category, label))
	}
	return fmt.Sprintf(bodyFormat, strings.Join(parts, fragmentSep))
}

// BuildMessage assembles the multicast for one recipient.
func BuildMessage(tokens []string, body string, target civil.Date) push.Message {
	return push.Message{
		Title:  Title,
		Body:   body,
		Tokens: tokens,
		Data: map[string]string{
			"type": PayloadType,
			"date": target.String(),
		},
	}
}
