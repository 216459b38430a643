package model

import (
	"time"

	"github.com/golang-sql/civil"
)

type Outcome string

const (
	OutcomeSent   Outcome = "sent"
	OutcomeFailed Outcome = "failed"
)

func (o Outcome) String() string { return string(o) }

// DeliveryCounts is the per-token result of one multicast.
type DeliveryCounts struct {
	SuccessCount int `json:"successCount" db:"success_count"`
	FailureCount int `json:"failureCount" db:"failure_count"`
}

// AuditRecord is the write-once success record keyed by (recipient, event, target date).
type AuditRecord struct {
	RunID       string
	RecipientID string
	EventID     string
	TargetDate  civil.Date
	SentAt      time.Time
	Body        string
	Counts      DeliveryCounts
}

// FailureRecord lives in the failure namespace; it never marks an event notified.
type FailureRecord struct {
	RunID       string
	RecipientID string
	EventID     string
	TargetDate  civil.Date
	FailedAt    time.Time
	Error       string
}
