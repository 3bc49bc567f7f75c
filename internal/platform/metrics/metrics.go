package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service-wide vault counters. Trigger-specific metrics live
// in internal/vault/trigger.
type Metrics struct {
	VaultsCreated       prometheus.Counter
	ActivitySignals     prometheus.Counter
	MessagesAdded       prometheus.Counter
	DepositedSats       prometheus.Counter
	MessageAccessDenied prometheus.Counter
}

// New creates the metrics and registers them with reg. Pass
// prometheus.DefaultRegisterer in main and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		VaultsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "satvault_vaults_created_total",
			Help: "Total number of vaults created",
		}),
		ActivitySignals: factory.NewCounter(prometheus.CounterOpts{
			Name: "satvault_activity_signals_total",
			Help: "Total number of owner activity signals accepted",
		}),
		MessagesAdded: factory.NewCounter(prometheus.CounterOpts{
			Name: "satvault_messages_added_total",
			Help: "Total number of encrypted heir messages stored",
		}),
		DepositedSats: factory.NewCounter(prometheus.CounterOpts{
			Name: "satvault_deposited_satoshis_total",
			Help: "Total satoshis credited to vaults",
		}),
		MessageAccessDenied: factory.NewCounter(prometheus.CounterOpts{
			Name: "satvault_message_access_denied_total",
			Help: "Message reads rejected by the access policy",
		}),
	}
}

func (m *Metrics) IncrementVaultsCreated() {
	m.VaultsCreated.Inc()
}

func (m *Metrics) IncrementActivitySignals() {
	m.ActivitySignals.Inc()
}

func (m *Metrics) IncrementMessagesAdded() {
	m.MessagesAdded.Inc()
}

func (m *Metrics) AddDeposited(amount uint64) {
	m.DepositedSats.Add(float64(amount))
}

func (m *Metrics) IncrementMessageAccessDenied() {
	m.MessageAccessDenied.Inc()
}
