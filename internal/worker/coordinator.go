package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-sql/civil"
	"github.com/jmehdipour/reminder-dispatch/internal/eligibility"
	"github.com/jmehdipour/reminder-dispatch/internal/metrics"
	"github.com/jmehdipour/reminder-dispatch/internal/model"
	"github.com/jmehdipour/reminder-dispatch/internal/push"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Store is the write side of the recipient store.
type Store interface {
	// UpdateLastNotified sets last_notified_date=date on every listed event in
	// a single call. Atomicity across events is not guaranteed.
	UpdateLastNotified(ctx context.Context, recipientID string, eventIDs []string, date civil.Date) error
}

type Transport interface {
	SendMulticast(ctx context.Context, msg push.Message) (push.BatchResult, error)
}

type AuditRecorder interface {
	RecordSuccess(ctx context.Context, rec model.AuditRecord) error
	RecordFailure(ctx context.Context, rec model.FailureRecord) error
}

// Unit is one recipient's notification work for the current run.
type Unit struct {
	RecipientID string
	Events      []model.TrackedEvent
	Body        string

	Result   push.BatchResult
	Err      error // transport error or ErrNotDelivered
	Notified bool  // store update succeeded
	WriteErr error // store/audit write errors, logged only
}

func (u Unit) Sent() bool { return u.Err == nil }

// Coordinator sends one aggregated notification per eligible recipient and
// reconciles the outcome into the store and the audit log.
type Coordinator struct {
	Store       Store
	Transport   Transport
	Audit       AuditRecorder
	Policy      DeliveryPolicy
	Concurrency int // max units in flight
	Clock       clockwork.Clock
	Log         *zap.Logger
}

func NewCoordinator(store Store, transport Transport, audit AuditRecorder, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		Store:       store,
		Transport:   transport,
		Audit:       audit,
		Policy:      AnyAttempt,
		Concurrency: 32,
		Clock:       clockwork.NewRealClock(),
		Log:         log,
	}
}

// Dispatch runs one unit per eligible result and returns once every unit has
// settled. Unit failures never abort siblings. Results keep input order.
func (c *Coordinator) Dispatch(ctx context.Context, runID string, target civil.Date, eligible []eligibility.Result) []Unit {
	units := make([]Unit, len(eligible))
	if len(eligible) == 0 {
		return units
	}

	var g errgroup.Group
	if c.Concurrency > 0 {
		g.SetLimit(c.Concurrency)
	}
	for i, res := range eligible {
		g.Go(func() error {
			units[i] = c.safeProcess(ctx, runID, target, res)
			return nil
		})
	}
	_ = g.Wait()

	return units
}

func (c *Coordinator) safeProcess(ctx context.Context, runID string, target civil.Date, res eligibility.Result) (u Unit) {
	defer func() {
		if r := recover(); r != nil {
			c.Log.Error("dispatch unit panicked", zap.String("recipient_id", res.Recipient.ID), zap.Any("panic", r))
			u = Unit{RecipientID: res.Recipient.ID, Events: res.Events, Err: fmt.Errorf("unit panic: %v", r)}
			metrics.DispatchTotal.WithLabelValues(model.OutcomeFailed.String()).Inc()
		}
	}()
	return c.process(ctx, runID, target, res)
}

func (c *Coordinator) process(ctx context.Context, runID string, target civil.Date, res eligibility.Result) Unit {
	rid := res.Recipient.ID
	u := Unit{
		RecipientID: rid,
		Events:      res.Events,
		Body:        ComposeBody(res.Events),
	}
	log := c.Log.With(zap.String("run_id", runID), zap.String("recipient_id", rid))

	out, err := c.Transport.SendMulticast(ctx, BuildMessage(res.Recipient.Tokens, u.Body, target))
	u.Result = out

	// once the transport has answered, the outcome must be written even if
	// the run is being shut down
	wctx := context.WithoutCancel(ctx)
	if err == nil && !c.policy()(out) {
		err = ErrNotDelivered
	}
	if err != nil {
		u.Err = err
		log.Error("push send failed", zap.Error(err))
		metrics.DispatchTotal.WithLabelValues(model.OutcomeFailed.String()).Inc()
		u.WriteErr = c.recordFailures(wctx, runID, target, u)
		return u
	}

	log.Info("push sent",
		zap.Int("success", out.SuccessCount),
		zap.Int("failures", out.FailureCount),
		zap.Int("events", len(u.Events)),
	)
	metrics.DispatchTotal.WithLabelValues(model.OutcomeSent.String()).Inc()
	metrics.DeliveriesTotal.WithLabelValues("success").Add(float64(out.SuccessCount))
	metrics.DeliveriesTotal.WithLabelValues("failure").Add(float64(out.FailureCount))

	var errs []error
	if err := c.Store.UpdateLastNotified(wctx, rid, eventIDs(u.Events), target); err != nil {
		log.Error("mark notified failed", zap.Error(err))
		errs = append(errs, fmt.Errorf("update last notified: %w", err))
	} else {
		u.Notified = true
	}

	now := c.now()
	for _, ev := range u.Events {
		rec := model.AuditRecord{
			RunID:       runID,
			RecipientID: rid,
			EventID:     ev.ID,
			TargetDate:  target,
			SentAt:      now,
			Body:        u.Body,
			Counts:      model.DeliveryCounts{SuccessCount: out.SuccessCount, FailureCount: out.FailureCount},
		}
		if err := c.Audit.RecordSuccess(wctx, rec); err != nil {
			log.Error("audit write failed", zap.String("event_id", ev.ID), zap.Error(err))
			errs = append(errs, fmt.Errorf("record success %s: %w", ev.ID, err))
		}
	}
	u.WriteErr = errors.Join(errs...)
	return u
}

func (c *Coordinator) recordFailures(ctx context.Context, runID string, target civil.Date, u Unit) error {
	now := c.now()
	var errs []error
	for _, ev := range u.Events {
		rec := model.FailureRecord{
			RunID:       runID,
			RecipientID: u.RecipientID,
			EventID:     ev.ID,
			TargetDate:  target,
			FailedAt:    now,
			Error:       u.Err.Error(),
		}
		if err := c.Audit.RecordFailure(ctx, rec); err != nil {
			c.Log.Error("failure record write failed",
				zap.String("run_id", runID),
				zap.String("recipient_id", u.RecipientID),
				zap.String("event_id", ev.ID),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("record failure %s: %w", ev.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (c *Coordinator) policy() DeliveryPolicy {
	if c.Policy == nil {
		return AnyAttempt
	}
	return c.Policy
}

func (c *Coordinator) now() time.Time {
	if c.Clock == nil {
		return clockwork.NewRealClock().Now()
	}
	return c.Clock.Now()
}

func eventIDs(evs []model.TrackedEvent) []string {
	ids := make([]string, len(evs))
	for i, ev := range evs {
		ids[i] = ev.ID
	}
	return ids
}
