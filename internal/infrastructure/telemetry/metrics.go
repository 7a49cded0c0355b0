package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes the ledger's prometheus instruments.
type Metrics struct {
	CommandsTotal    *prometheus.CounterVec
	LedgerAppends    prometheus.Counter
	QuarantinedTotal *prometheus.CounterVec
	CommandDuration  prometheus.Histogram
}

// NewMetrics registers the ledger instruments on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CommandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evidence_ledger",
			Name:      "commands_total",
			Help:      "Commands processed by the gateway, by type and outcome.",
		}, []string{"command_type", "outcome"}),
		LedgerAppends: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "evidence_ledger",
			Name:      "ledger_appends_total",
			Help:      "Ledger events appended.",
		}),
		QuarantinedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evidence_ledger",
			Name:      "quarantined_total",
			Help:      "Evidence rows quarantined by the sweeper, by reason.",
		}, []string{"reason"}),
		CommandDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "evidence_ledger",
			Name:      "command_duration_seconds",
			Help:      "Gateway command processing latency.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
