// Package metrics exposes ledger and workflow instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors updated by the bank. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry     *prometheus.Registry
	stockUnits   *prometheus.GaugeVec
	transactions *prometheus.CounterVec
	workflow     *prometheus.CounterVec
	rejected     *prometheus.CounterVec
}

// New creates a registry with the bank collectors plus the Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		stockUnits: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "bloodbank",
			Name:      "stock_units",
			Help:      "Units currently in stock per blood group.",
		}, []string{"blood_group"}),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bloodbank",
			Name:      "transactions_total",
			Help:      "Recorded stock transactions by type.",
		}, []string{"type"}),
		workflow: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bloodbank",
			Name:      "workflow_events_total",
			Help:      "Completed workflow transitions.",
		}, []string{"workflow", "event"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bloodbank",
			Name:      "operation_failures_total",
			Help:      "Operations refused or failed, by error kind.",
		}, []string{"operation", "kind"}),
	}
	reg.MustRegister(
		m.stockUnits, m.transactions, m.workflow, m.rejected,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// SetStock records the current units of a blood group.
func (m *Metrics) SetStock(bloodGroup string, units int) {
	if m == nil {
		return
	}
	m.stockUnits.WithLabelValues(bloodGroup).Set(float64(units))
}

// Transaction counts a recorded transaction.
func (m *Metrics) Transaction(txType string) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues(txType).Inc()
}

// Event counts a completed workflow transition.
func (m *Metrics) Event(workflow, event string) {
	if m == nil {
		return
	}
	m.workflow.WithLabelValues(workflow, event).Inc()
}

// Failure counts a refused or failed operation.
func (m *Metrics) Failure(operation, kind string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(operation, kind).Inc()
}

// Gatherer returns the underlying registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
