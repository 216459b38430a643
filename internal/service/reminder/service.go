// Package reminder runs one reminder batch: read every recipient once, decide
// who is due today, dispatch, and wait for every unit to settle.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-sql/civil"
	"github.com/jmehdipour/reminder-dispatch/internal/calendar"
	"github.com/jmehdipour/reminder-dispatch/internal/eligibility"
	"github.com/jmehdipour/reminder-dispatch/internal/lock"
	"github.com/jmehdipour/reminder-dispatch/internal/metrics"
	"github.com/jmehdipour/reminder-dispatch/internal/model"
	"github.com/jmehdipour/reminder-dispatch/internal/util"
	"github.com/jmehdipour/reminder-dispatch/internal/worker"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type State int

const (
	StateInit State = iota
	StateRunning
	StateDone
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	default:
		return "init"
	}
}

// Source is the read side of the recipient store.
type Source interface {
	GetAllRecipients(ctx context.Context) ([]model.Recipient, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, runID string, target civil.Date, eligible []eligibility.Result) []worker.Unit
}

// Locker guards against overlapping runs. Acquire returns lock.ErrHeld when
// another run owns the lock.
type Locker interface {
	Acquire(ctx context.Context, owner string) error
	Release(ctx context.Context, owner string) error
}

// Summary describes a finished run.
type Summary struct {
	RunID      string
	Target     civil.Date
	State      State
	Recipients int
	Eligible   int
	Sent       int
	Failed     int
	Skipped    map[eligibility.Reason]int
	LockHeld   bool // another run owned the lock; nothing was read or sent
	DryRun     bool
}

type Service struct {
	source     Source
	resolver   *eligibility.Resolver
	dispatcher Dispatcher
	zones      *calendar.Zones

	Lock   Locker // optional
	Clock  clockwork.Clock
	Log    *zap.Logger
	DryRun bool
}

func New(source Source, resolver *eligibility.Resolver, dispatcher Dispatcher, zones *calendar.Zones, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		source:     source,
		resolver:   resolver,
		dispatcher: dispatcher,
		zones:      zones,
		Clock:      clockwork.NewRealClock(),
		Log:        log,
	}
}

// Run executes one batch. The only errors returned are the ones that stop the
// run before anything is dispatched: the lock backend and the bulk read.
// Individual dispatch failures are recorded by the units and never surface here.
func (s *Service) Run(ctx context.Context) (Summary, error) {
	start := s.Clock.Now()
	sum := Summary{
		RunID:   util.NewIDAt(start),
		Target:  calendar.DateAfterDays(start, s.zones.Default(), 1),
		State:   StateInit,
		Skipped: map[eligibility.Reason]int{},
		DryRun:  s.DryRun,
	}
	log := s.Log.With(zap.String("run_id", sum.RunID), zap.String("target_date", sum.Target.String()))
	log.Info("target due date (due tomorrow)", zap.String("zone", s.zones.Default().String()))

	if s.Lock != nil {
		if err := s.Lock.Acquire(ctx, sum.RunID); err != nil {
			if errors.Is(err, lock.ErrHeld) {
				log.Warn("another run holds the lock, skipping")
				sum.LockHeld = true
				sum.State = StateDone
				return sum, nil
			}
			return sum, fmt.Errorf("run lock: %w", err)
		}
		defer func() {
			if err := s.Lock.Release(context.WithoutCancel(ctx), sum.RunID); err != nil {
				log.Warn("release run lock failed", zap.Error(err))
			}
		}()
	}

	recipients, err := s.source.GetAllRecipients(ctx)
	if err != nil {
		return sum, fmt.Errorf("load recipients: %w", err)
	}
	sum.Recipients = len(recipients)
	if len(recipients) == 0 {
		log.Info("no recipients found")
	}

	sum.State = StateRunning
	var eligible []eligibility.Result
	for _, rec := range recipients {
		res := s.resolver.Resolve(start, rec, sum.Target)
		metrics.RecipientsTotal.WithLabelValues(res.Reason.String()).Inc()
		if !res.Eligible() {
			sum.Skipped[res.Reason]++
			continue
		}
		eligible = append(eligible, res)
	}
	sum.Eligible = len(eligible)

	if s.DryRun {
		for _, res := range eligible {
			log.Info("would send",
				zap.String("recipient_id", res.Recipient.ID),
				zap.Int("events", len(res.Events)),
				zap.Int("tokens", len(res.Recipient.Tokens)),
				zap.String("body", worker.ComposeBody(res.Events)),
			)
		}
	} else {
		for _, u := range s.dispatcher.Dispatch(ctx, sum.RunID, sum.Target, eligible) {
			if u.Sent() {
				sum.Sent++
			} else {
				sum.Failed++
			}
		}
	}

	sum.State = StateDone
	end := s.Clock.Now()
	metrics.LastRunDuration.Set(end.Sub(start).Seconds())
	metrics.LastRunCompleted.Set(float64(end.Unix()))

	log.Info("All reminders processed.",
		zap.Int("recipients", sum.Recipients),
		zap.Int("eligible", sum.Eligible),
		zap.Int("sent", sum.Sent),
		zap.Int("failed", sum.Failed),
		zap.Bool("dry_run", sum.DryRun),
		zap.Duration("took", end.Sub(start).Round(time.Millisecond)),
	)
	return sum, nil
}
