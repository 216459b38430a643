package model

import "time"

// OutcomeEnvelope is the payload published to the outcomes topic and the
// ClickHouse notification log.
type OutcomeEnvelope struct {
	ID           string    `json:"id"` // ULID
	RunID        string    `json:"run_id"`
	Outcome      Outcome   `json:"outcome"`
	RecipientID  string    `json:"recipient_id"`
	EventID      string    `json:"event_id"`
	TargetDate   string    `json:"target_date"`
	Body         string    `json:"body,omitempty"`
	SuccessCount int       `json:"success_count"`
	FailureCount int       `json:"failure_count"`
	Error        string    `json:"error,omitempty"`
	At           time.Time `json:"at"`
}

// SuccessEnvelope converts a success record.
func SuccessEnvelope(id string, r AuditRecord) OutcomeEnvelope {
	return OutcomeEnvelope{
		ID:           id,
		RunID:        r.RunID,
		Outcome:      OutcomeSent,
		RecipientID:  r.RecipientID,
		EventID:      r.EventID,
		TargetDate:   r.TargetDate.String(),
		Body:         r.Body,
		SuccessCount: r.Counts.SuccessCount,
		FailureCount: r.Counts.FailureCount,
		At:           r.SentAt,
	}
}

// FailureEnvelope converts a failure record.
func FailureEnvelope(id string, r FailureRecord) OutcomeEnvelope {
	return OutcomeEnvelope{
		ID:          id,
		RunID:       r.RunID,
		Outcome:     OutcomeFailed,
		RecipientID: r.RecipientID,
		EventID:     r.EventID,
		TargetDate:  r.TargetDate.String(),
		Error:       r.Error,
		At:          r.FailedAt,
	}
}
