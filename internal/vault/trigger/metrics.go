package trigger

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Attempts      prometheus.Counter
	Successes     prometheus.Counter
	Failures      prometheus.Counter
	LeaseSkips    prometheus.Counter
	SweepDuration prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Attempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "satvault_transfer_attempts_total",
			Help: "Ledger transfer attempts started by the trigger",
		}),
		Successes: factory.NewCounter(prometheus.CounterOpts{
			Name: "satvault_transfer_successes_total",
			Help: "Transfers that completed and emptied the vault",
		}),
		Failures: factory.NewCounter(prometheus.CounterOpts{
			Name: "satvault_transfer_failures_total",
			Help: "Transfer attempts that failed and were scheduled for retry",
		}),
		LeaseSkips: factory.NewCounter(prometheus.CounterOpts{
			Name: "satvault_transfer_lease_skips_total",
			Help: "Due vaults skipped because another worker held the lease",
		}),
		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "satvault_trigger_sweep_duration_seconds",
			Help:    "Wall time of one eligibility sweep",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncrementAttempts() {
	m.Attempts.Inc()
}

func (m *Metrics) IncrementSuccesses() {
	m.Successes.Inc()
}

func (m *Metrics) IncrementFailures() {
	m.Failures.Inc()
}

func (m *Metrics) IncrementLeaseSkips() {
	m.LeaseSkips.Inc()
}

func (m *Metrics) ObserveSweep(d time.Duration) {
	m.SweepDuration.Observe(d.Seconds())
}
