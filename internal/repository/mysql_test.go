package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-sql/civil"
	"github.com/jmehdipour/reminder-dispatch/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	return sqlx.NewDb(raw, "mysql"), mock
}

func TestRecipientsRepository_GetAllRecipients(t *testing.T) {
	t.Parallel()

	dbx, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, timezone, mute_reminders")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "timezone", "mute_reminders"}).
			AddRow("p1", nil, false).
			AddRow("p2", "Europe/London", true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT recipient_id, token")).
		WillReturnRows(sqlmock.NewRows([]string{"recipient_id", "token"}).
			AddRow("p1", "tok-a").
			AddRow("p1", "tok-b"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT recipient_id, id, label, category")).
		WillReturnRows(sqlmock.NewRows([]string{"recipient_id", "id", "label", "category", "due_date", "last_notified_date"}).
			AddRow("p1", "c1", "Asha", "MMR", "2026-10-15", nil).
			AddRow("p1", "c2", "Ravi", "DTaP", "2026-10-15", "2026-10-15"))
	mock.ExpectCommit()

	recs, err := NewRecipientsRepository(dbx).GetAllRecipients(context.Background())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, recs, 2)
	due := civil.Date{Year: 2026, Month: 10, Day: 15}
	assert.Equal(t, model.Recipient{
		ID:     "p1",
		Tokens: []string{"tok-a", "tok-b"},
		Events: []model.TrackedEvent{
			{ID: "c1", Label: "Asha", Category: "MMR", DueDate: due},
			{ID: "c2", Label: "Ravi", Category: "DTaP", DueDate: due, LastNotifiedDate: &due},
		},
	}, recs[0])
	assert.Equal(t, model.Recipient{ID: "p2", Timezone: "Europe/London", Muted: true}, recs[1])
}

func TestRecipientsRepository_GetAllRecipients_QueryError(t *testing.T) {
	t.Parallel()

	dbx, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, timezone, mute_reminders")).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := NewRecipientsRepository(dbx).GetAllRecipients(context.Background())
	require.ErrorIs(t, err, assert.AnError)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipientsRepository_UpdateLastNotified(t *testing.T) {
	t.Parallel()

	dbx, mock := newMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE tracked_events SET last_notified_date = ?")).
		WithArgs("2026-10-15", "p1", "c1", "c2").
		WillReturnResult(sqlmock.NewResult(0, 2))

	repo := NewRecipientsRepository(dbx)
	date := civil.Date{Year: 2026, Month: 10, Day: 15}
	require.NoError(t, repo.UpdateLastNotified(context.Background(), "p1", []string{"c1", "c2"}, date))
	require.NoError(t, repo.UpdateLastNotified(context.Background(), "p1", nil, date))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipientsRepository_UpdateLastNotified_WrapsError(t *testing.T) {
	t.Parallel()

	dbx, mock := newMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE tracked_events SET last_notified_date = ?")).
		WillReturnError(assert.AnError)

	err := NewRecipientsRepository(dbx).UpdateLastNotified(context.Background(), "p1", []string{"c1"},
		civil.Date{Year: 2026, Month: 10, Day: 15})
	require.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "update last notified p1")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository_Records(t *testing.T) {
	t.Parallel()

	dbx, mock := newMockDB(t)
	at := time.Date(2026, 10, 14, 4, 30, 0, 0, time.UTC)
	date := civil.Date{Year: 2026, Month: 10, Day: 15}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notifications")).
		WithArgs("p1", "c1", "2026-10-15", "r1", at, "body", 2, 1).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notification_failures")).
		WithArgs("p1", "c2", "2026-10-15", "r1", at, "boom").
		WillReturnError(assert.AnError)

	repo := NewAuditRepository(dbx)
	require.NoError(t, repo.RecordSuccess(context.Background(), model.AuditRecord{
		RunID: "r1", RecipientID: "p1", EventID: "c1", TargetDate: date, SentAt: at,
		Body: "body", Counts: model.DeliveryCounts{SuccessCount: 2, FailureCount: 1},
	}))
	err := repo.RecordFailure(context.Background(), model.FailureRecord{
		RunID: "r1", RecipientID: "p1", EventID: "c2", TargetDate: date, FailedAt: at, Error: "boom",
	})
	require.ErrorIs(t, err, assert.AnError)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationLogRepository_Append(t *testing.T) {
	t.Parallel()

	dbx, mock := newMockDB(t)
	at := time.Date(2026, 10, 14, 4, 30, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reminders.notification_log")).
		WithArgs(sqlmock.AnyArg(), "r1", "failed", "p1", "c1", "2026-10-15", "", 0, 0, "boom", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := NewNotificationLogRepository(dbx).RecordFailure(context.Background(), model.FailureRecord{
		RunID: "r1", RecipientID: "p1", EventID: "c1",
		TargetDate: civil.Date{Year: 2026, Month: 10, Day: 15}, FailedAt: at, Error: "boom",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
