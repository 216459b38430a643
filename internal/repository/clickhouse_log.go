package repository

import (
	"context"
	"fmt"

	"github.com/jmehdipour/reminder-dispatch/internal/model"
	"github.com/jmehdipour/reminder-dispatch/internal/util"
	"github.com/jmoiron/sqlx"
)

// NotificationLogRepository appends outcomes to the ClickHouse
// notification_log table. Rows are never updated.
type NotificationLogRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewNotificationLogRepository(ch *sqlx.DB) *NotificationLogRepository {
	return &NotificationLogRepository{ch: ch}
}

func (r *NotificationLogRepository) RecordSuccess(ctx context.Context, rec model.AuditRecord) error {
	return r.Append(ctx, model.SuccessEnvelope(util.NewIDAt(rec.SentAt), rec))
}

func (r *NotificationLogRepository) RecordFailure(ctx context.Context, rec model.FailureRecord) error {
	return r.Append(ctx, model.FailureEnvelope(util.NewIDAt(rec.FailedAt), rec))
}

func (r *NotificationLogRepository) Append(ctx context.Context, env model.OutcomeEnvelope) error {
	_, err := r.ch.ExecContext(ctx, `
		INSERT INTO reminders.notification_log
		    (id, run_id, outcome, recipient_id, event_id, target_date, body, success_count, failure_count, error, at)
		VALUES
		    (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, env.ID, env.RunID, env.Outcome.String(), env.RecipientID, env.EventID, env.TargetDate,
		env.Body, env.SuccessCount, env.FailureCount, env.Error, env.At.UTC())
	if err != nil {
		return fmt.Errorf("append notification log %s: %w", env.ID, err)
	}
	return nil
}
