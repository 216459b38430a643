package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	RecipientsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminders_recipients_total",
			Help: "Recipients evaluated, by eligibility outcome",
		},
		[]string{"outcome"}, // eligible|muted|no_devices|no_due_events|not_send_day
	)

	DispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminders_dispatch_units_total",
			Help: "Per-recipient dispatch units by result",
		},
		[]string{"result"}, // sent|failed
	)

	DeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminders_device_deliveries_total",
			Help: "Device token deliveries reported by the push transport",
		},
		[]string{"result"}, // success|failure
	)

	LastRunDuration = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "reminders_last_run_duration_seconds",
		Help: "Wall time of the last run",
	})

	LastRunCompleted = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "reminders_last_run_completed_timestamp_seconds",
		Help: "Unix time the last run completed without a fatal error",
	})
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		RecipientsTotal,
		DispatchTotal,
		DeliveriesTotal,
		LastRunDuration,
		LastRunCompleted,
	)
}

// Push sends everything gathered by g to a Prometheus Pushgateway under job.
func Push(ctx context.Context, url, job string, g prometheus.Gatherer) error {
	return push.New(url, job).Gatherer(g).PushContext(ctx)
}
