package repository

import (
	"context"
	"fmt"

	"github.com/jmehdipour/reminder-dispatch/internal/model"
	"github.com/jmoiron/sqlx"
)

// AuditRepository writes outcome records to MySQL. Success rows are
// first-write-wins; failure rows keep the latest attempt per key.
type AuditRepository struct {
	db *sqlx.DB
}

func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) RecordSuccess(ctx context.Context, rec model.AuditRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications
		    (recipient_id, event_id, target_date, run_id, sent_at, body, success_count, failure_count)
		VALUES
		    (?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE recipient_id = recipient_id
	`, rec.RecipientID, rec.EventID, rec.TargetDate.String(), rec.RunID, rec.SentAt.UTC(),
		rec.Body, rec.Counts.SuccessCount, rec.Counts.FailureCount)
	if err != nil {
		return fmt.Errorf("insert notification %s/%s: %w", rec.RecipientID, rec.EventID, err)
	}
	return nil
}

func (r *AuditRepository) RecordFailure(ctx context.Context, rec model.FailureRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notification_failures
		    (recipient_id, event_id, target_date, run_id, failed_at, error)
		VALUES
		    (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
		    run_id    = VALUES(run_id),
		    failed_at = VALUES(failed_at),
		    error     = VALUES(error)
	`, rec.RecipientID, rec.EventID, rec.TargetDate.String(), rec.RunID, rec.FailedAt.UTC(), rec.Error)
	if err != nil {
		return fmt.Errorf("insert notification failure %s/%s: %w", rec.RecipientID, rec.EventID, err)
	}
	return nil
}
