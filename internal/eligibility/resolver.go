// Package eligibility decides, per recipient, which tracked events are due on
// the run's target date and whether today is the day to send for them.
package eligibility

import (
	"time"

	"github.com/golang-sql/civil"
	"github.com/jmehdipour/reminder-dispatch/internal/calendar"
	"github.com/jmehdipour/reminder-dispatch/internal/model"
	"github.com/jmehdipour/reminder-dispatch/internal/util"
	"go.uber.org/zap"
)

type Reason string

const (
	ReasonEligible    Reason = "eligible"
	ReasonMuted       Reason = "muted"
	ReasonNoDevices   Reason = "no_devices"
	ReasonNoDueEvents Reason = "no_due_events"
	ReasonNotSendDay  Reason = "not_send_day"
)

func (r Reason) String() string { return string(r) }

// Result is the outcome of evaluating one recipient.
type Result struct {
	Recipient model.Recipient // Tokens normalized
	Reason    Reason
	Events    []model.TrackedEvent // candidates, in recipient order
	Location  *time.Location
	SendDate  civil.Date
	Today     civil.Date
}

func (r Result) Eligible() bool { return r.Reason == ReasonEligible }

type Resolver struct {
	zones *calendar.Zones
	log   *zap.Logger
}

func NewResolver(zones *calendar.Zones, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{zones: zones, log: log}
}

// Resolve evaluates rec against target as of now.
func (r *Resolver) Resolve(now time.Time, rec model.Recipient, target civil.Date) Result {
	rec.Tokens = util.NormalizeTokens(rec.Tokens)
	res := Result{Recipient: rec}

	if rec.Muted {
		res.Reason = ReasonMuted
		return res
	}
	if len(rec.Tokens) == 0 {
		res.Reason = ReasonNoDevices
		return res
	}

	for _, ev := range rec.Events {
		if ev.DueOn(target) {
			res.Events = append(res.Events, ev)
		}
	}
	if len(res.Events) == 0 {
		res.Reason = ReasonNoDueEvents
		return res
	}

	// an unknown zone falls back to the reference zone instead of failing the run
	loc, ok := r.zones.Resolve(rec.Timezone)
	if !ok {
		r.log.Warn("unknown recipient timezone, using default",
			zap.String("recipient_id", rec.ID),
			zap.String("timezone", rec.Timezone),
			zap.String("default", loc.String()),
		)
	}
	res.Location = loc

	// every candidate shares the target due date, so the first one decides
	res.SendDate = calendar.SendDate(res.Events[0].DueDate, loc)
	res.Today = calendar.Today(now, loc)

	if res.SendDate != res.Today {
		res.Reason = ReasonNotSendDay
		return res
	}
	res.Reason = ReasonEligible
	return res
}
