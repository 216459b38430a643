package repository

import (
	"context"
	"errors"

	"github.com/jmehdipour/reminder-dispatch/internal/model"
	"go.uber.org/zap"
)

var ErrUnknownBackend = errors.New("unknown store backend")

const (
	BackendMySQL    = "mysql"
	BackendFirebase = "firebase"
)

// Recorder persists dispatch outcomes.
type Recorder interface {
	RecordSuccess(ctx context.Context, rec model.AuditRecord) error
	RecordFailure(ctx context.Context, rec model.FailureRecord) error
}

// TeeRecorder writes to a primary recorder and copies every record to the
// mirrors. Only the primary's error is returned; mirror errors are logged.
type TeeRecorder struct {
	primary Recorder
	mirrors []Recorder
	log     *zap.Logger
}

func NewTeeRecorder(primary Recorder, log *zap.Logger, mirrors ...Recorder) *TeeRecorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &TeeRecorder{primary: primary, mirrors: mirrors, log: log}
}

func (t *TeeRecorder) RecordSuccess(ctx context.Context, rec model.AuditRecord) error {
	err := t.primary.RecordSuccess(ctx, rec)
	for _, m := range t.mirrors {
		if merr := m.RecordSuccess(ctx, rec); merr != nil {
			t.log.Warn("audit mirror write failed",
				zap.String("recipient_id", rec.RecipientID),
				zap.String("event_id", rec.EventID),
				zap.Error(merr),
			)
		}
	}
	return err
}

func (t *TeeRecorder) RecordFailure(ctx context.Context, rec model.FailureRecord) error {
	err := t.primary.RecordFailure(ctx, rec)
	for _, m := range t.mirrors {
		if merr := m.RecordFailure(ctx, rec); merr != nil {
			t.log.Warn("failure mirror write failed",
				zap.String("recipient_id", rec.RecipientID),
				zap.String("event_id", rec.EventID),
				zap.Error(merr),
			)
		}
	}
	return err
}
