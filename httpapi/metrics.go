package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Czernobog023/duolist/checklist"
)

// Metrics holds the Prometheus instruments for the API.
type Metrics struct {
	ops     *prometheus.CounterVec
	tasks   prometheus.Gauge
	pending prometheus.Gauge
}

// Operation outcomes used as label values.
const (
	outcomeOK       = "ok"
	outcomeInvalid  = "invalid"
	outcomeNotFound = "not_found"
	outcomeError    = "error"
)

// NewMetrics registers the API instruments with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ops: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "duolist",
			Name:      "operations_total",
			Help:      "Checklist operations by operation and outcome.",
		}, []string{"op", "outcome"}),
		tasks: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "duolist",
			Name:      "tasks",
			Help:      "Active and completed tasks currently held.",
		}),
		pending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "duolist",
			Name:      "pending_tasks",
			Help:      "Proposals awaiting approval.",
		}),
	}
}

// Count records the outcome of one operation.
func (m *Metrics) Count(op, outcome string) {
	m.ops.WithLabelValues(op, outcome).Inc()
}

// Observe updates the collection gauges from a snapshot.
func (m *Metrics) Observe(snap *checklist.Snapshot) {
	m.tasks.Set(float64(len(snap.Tasks)))
	m.pending.Set(float64(len(snap.PendingTasks)))
}
