package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ProcessesCreated  prometheus.Counter
	IssuesCreated     prometheus.Counter
	RiskVersionsAdded prometheus.Counter
	RecordsPersisted  *prometheus.CounterVec
	PersistFailures   *prometheus.CounterVec
	OutboxRetries     prometheus.Counter
	OutboxDepth       prometheus.Gauge
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers metrics against a specific registerer; tests pass a fresh
// registry to avoid duplicate-registration panics.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ProcessesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "qualis_processes_created_total",
			Help: "Total number of processes created",
		}),
		IssuesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "qualis_issues_created_total",
			Help: "Total number of context issues created",
		}),
		RiskVersionsAdded: factory.NewCounter(prometheus.CounterOpts{
			Name: "qualis_risk_versions_added_total",
			Help: "Total number of risk versions appended to issues",
		}),
		RecordsPersisted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "qualis_records_persisted_total",
			Help: "Records successfully written to the backing store",
		}, []string{"type"}),
		PersistFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "qualis_records_persist_failures_total",
			Help: "Record writes that exhausted their outbox retries",
		}, []string{"type"}),
		OutboxRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "qualis_outbox_retries_total",
			Help: "Outbox write attempts that failed and were rescheduled",
		}),
		OutboxDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "qualis_outbox_depth",
			Help: "Entries currently waiting in the outbox",
		}),
	}
}
