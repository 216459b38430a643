package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/golang-sql/civil"
	"github.com/jmehdipour/reminder-dispatch/internal/model"
	"github.com/jmoiron/sqlx"
)

// RecipientsRepository is the MySQL recipient store.
type RecipientsRepository struct {
	db *sqlx.DB
}

func NewRecipientsRepository(db *sqlx.DB) *RecipientsRepository {
	return &RecipientsRepository{db: db}
}

type recipientRow struct {
	ID       string         `db:"id"`
	Timezone sql.NullString `db:"timezone"`
	Muted    bool           `db:"mute_reminders"`
}

type deviceRow struct {
	RecipientID string `db:"recipient_id"`
	Token       string `db:"token"`
}

type eventRow struct {
	RecipientID      string         `db:"recipient_id"`
	ID               string         `db:"id"`
	Label            string         `db:"label"`
	Category         string         `db:"category"`
	DueDate          sql.NullString `db:"due_date"`
	LastNotifiedDate sql.NullString `db:"last_notified_date"`
}

// GetAllRecipients loads every recipient with devices and events from one
// read-only snapshot, ordered by recipient id.
func (r *RecipientsRepository) GetAllRecipients(ctx context.Context) ([]model.Recipient, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var recs []recipientRow
	if err := tx.SelectContext(ctx, &recs, `
		SELECT id, timezone, mute_reminders
		  FROM recipients
		 ORDER BY id
	`); err != nil {
		return nil, fmt.Errorf("select recipients: %w", err)
	}

	var devices []deviceRow
	if err := tx.SelectContext(ctx, &devices, `
		SELECT recipient_id, token
		  FROM recipient_devices
		 ORDER BY recipient_id, token
	`); err != nil {
		return nil, fmt.Errorf("select devices: %w", err)
	}

	var events []eventRow
	if err := tx.SelectContext(ctx, &events, `
		SELECT recipient_id, id, label, category,
		       DATE_FORMAT(due_date, '%Y-%m-%d')           AS due_date,
		       DATE_FORMAT(last_notified_date, '%Y-%m-%d') AS last_notified_date
		  FROM tracked_events
		 ORDER BY recipient_id, id
	`); err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	tokens := make(map[string][]string, len(recs))
	for _, d := range devices {
		tokens[d.RecipientID] = append(tokens[d.RecipientID], d.Token)
	}
	evs := make(map[string][]model.TrackedEvent, len(recs))
	for _, e := range events {
		ev := model.TrackedEvent{ID: e.ID, Label: e.Label, Category: e.Category}
		if due, ok := nullDate(e.DueDate); ok {
			ev.DueDate = due
		}
		if last, ok := nullDate(e.LastNotifiedDate); ok {
			ev.LastNotifiedDate = &last
		}
		evs[e.RecipientID] = append(evs[e.RecipientID], ev)
	}

	out := make([]model.Recipient, 0, len(recs))
	for _, rr := range recs {
		out = append(out, model.Recipient{
			ID:       rr.ID,
			Timezone: rr.Timezone.String,
			Muted:    rr.Muted,
			Tokens:   tokens[rr.ID],
			Events:   evs[rr.ID],
		})
	}
	return out, nil
}

// UpdateLastNotified stamps every listed event of one recipient with date.
func (r *RecipientsRepository) UpdateLastNotified(ctx context.Context, recipientID string, eventIDs []string, date civil.Date) error {
	if len(eventIDs) == 0 {
		return nil
	}
	const base = `UPDATE tracked_events SET last_notified_date = ?, updated_at = NOW() WHERE recipient_id = ? AND id IN (?)`
	query, args, err := sqlx.In(base, date.String(), recipientID, eventIDs)
	if err != nil {
		return fmt.Errorf("update last notified %s: %w", recipientID, err)
	}
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("update last notified %s: %w", recipientID, err)
	}
	return nil
}

// Upsert writes a recipient, replacing its device set and upserting its events.
// Existing last_notified_date values are kept unless the input carries one.
func (r *RecipientsRepository) Upsert(ctx context.Context, rec model.Recipient) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO recipients (id, timezone, mute_reminders, created_at, updated_at)
		VALUES (?, NULLIF(?, ''), ?, NOW(), NOW())
		ON DUPLICATE KEY UPDATE
		    timezone       = VALUES(timezone),
		    mute_reminders = VALUES(mute_reminders),
		    updated_at     = VALUES(updated_at)
	`, rec.ID, rec.Timezone, rec.Muted); err != nil {
		return fmt.Errorf("upsert recipient %q: %w", rec.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM recipient_devices WHERE recipient_id = ?`, rec.ID); err != nil {
		return fmt.Errorf("clear devices %q: %w", rec.ID, err)
	}
	for _, tok := range rec.Tokens {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO recipient_devices (recipient_id, token, created_at)
			VALUES (?, ?, NOW())
			ON DUPLICATE KEY UPDATE token = token
		`, rec.ID, tok); err != nil {
			return fmt.Errorf("insert device %q: %w", rec.ID, err)
		}
	}

	for _, ev := range rec.Events {
		var last any
		if ev.LastNotifiedDate != nil {
			last = ev.LastNotifiedDate.String()
		}
		var due any
		if ev.DueDate.IsValid() {
			due = ev.DueDate.String()
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tracked_events
			    (recipient_id, id, label, category, due_date, last_notified_date, created_at, updated_at)
			VALUES
			    (?, ?, ?, ?, ?, ?, NOW(), NOW())
			ON DUPLICATE KEY UPDATE
			    label              = VALUES(label),
			    category           = VALUES(category),
			    due_date           = VALUES(due_date),
			    last_notified_date = COALESCE(VALUES(last_notified_date), last_notified_date),
			    updated_at         = VALUES(updated_at)
		`, rec.ID, ev.ID, ev.Label, ev.Category, due, last); err != nil {
			return fmt.Errorf("upsert event %q/%q: %w", rec.ID, ev.ID, err)
		}
	}

	return tx.Commit()
}
