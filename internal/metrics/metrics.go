package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/GeneralToucan/alkinson-newsletter/internal/domain"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	EmailsSent      prometheus.Counter
	EmailsFailed    *prometheus.CounterVec
	EmailsSkipped   *prometheus.CounterVec
	SendLatency     prometheus.Histogram
	QuotaRemaining  prometheus.Gauge
	EventsApplied   *prometheus.CounterVec
	EventsMalformed prometheus.Counter
	RunsCompleted   prometheus.Counter
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EmailsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newsletter_emails_sent_total",
			Help: "Total number of successfully delivered newsletter emails.",
		}),
		EmailsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsletter_emails_failed_total",
			Help: "Total number of failed sends by failure kind.",
		}, []string{"kind"}),
		EmailsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsletter_emails_skipped_total",
			Help: "Total number of skipped sends by reason.",
		}, []string{"reason"}),
		SendLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "newsletter_send_seconds",
			Help:    "Per-subscriber send latency including retries.",
			Buckets: prometheus.DefBuckets,
		}),
		QuotaRemaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "newsletter_quota_remaining",
			Help: "Send capacity remaining in the current daily quota window.",
		}),
		EventsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsletter_feedback_events_total",
			Help: "Total number of bounce/complaint notifications applied.",
		}, []string{"type"}),
		EventsMalformed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newsletter_feedback_malformed_total",
			Help: "Total number of unparseable notification payloads dropped.",
		}),
		RunsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newsletter_runs_total",
			Help: "Total number of completed distribution runs.",
		}),
	}

	reg.MustRegister(
		m.EmailsSent,
		m.EmailsFailed,
		m.EmailsSkipped,
		m.SendLatency,
		m.QuotaRemaining,
		m.EventsApplied,
		m.EventsMalformed,
		m.RunsCompleted,
	)

	return m
}

// DispatchHooks returns the metric callbacks expected by dispatch.Hooks.
// Centralises the prometheus observation calls so the engine stays
// import-free.
func (m *Metrics) DispatchHooks() (
	onSent func(latency time.Duration),
	onFailed func(kind domain.FailureKind),
	onSkipped func(reason domain.SkipReason),
) {
	onSent = func(latency time.Duration) {
		m.EmailsSent.Inc()
		m.SendLatency.Observe(latency.Seconds())
	}
	onFailed = func(kind domain.FailureKind) {
		m.EmailsFailed.WithLabelValues(string(kind)).Inc()
	}
	onSkipped = func(reason domain.SkipReason) {
		m.EmailsSkipped.WithLabelValues(string(reason)).Inc()
	}
	return
}

// ReconcilerHooks returns the metric callbacks expected by reconciler.Hooks.
func (m *Metrics) ReconcilerHooks() (
	onApplied func(eventType domain.EventType),
	onMalformed func(),
) {
	onApplied = func(t domain.EventType) {
		m.EventsApplied.WithLabelValues(string(t)).Inc()
	}
	onMalformed = func() {
		m.EventsMalformed.Inc()
	}
	return
}
