package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmehdipour/reminder-dispatch/internal/model"
	"github.com/jmehdipour/reminder-dispatch/internal/util"
)

// Publisher is the producer side the outcome stream needs.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
}

// OutcomeStream publishes every outcome as a JSON envelope keyed by
// recipient, so one recipient's records stay on one partition.
type OutcomeStream struct {
	pub Publisher
}

func NewOutcomeStream(pub Publisher) *OutcomeStream {
	return &OutcomeStream{pub: pub}
}

func (s *OutcomeStream) RecordSuccess(ctx context.Context, rec model.AuditRecord) error {
	return s.publish(ctx, model.SuccessEnvelope(util.NewIDAt(rec.SentAt), rec))
}

func (s *OutcomeStream) RecordFailure(ctx context.Context, rec model.FailureRecord) error {
	return s.publish(ctx, model.FailureEnvelope(util.NewIDAt(rec.FailedAt), rec))
}

func (s *OutcomeStream) publish(ctx context.Context, env model.OutcomeEnvelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := s.pub.Publish(ctx, []byte(env.RecipientID), payload); err != nil {
		return fmt.Errorf("publish outcome %s: %w", env.ID, err)
	}
	return nil
}
