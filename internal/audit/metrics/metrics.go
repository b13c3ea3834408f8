// Package metrics exposes Prometheus counters for the audit pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	written        prometheus.Counter
	writeFailures  prometheus.Counter
	dropped        prometheus.Counter
	vetoed         prometheus.Counter
	cleanupDeleted prometheus.Counter
	queueDepth     prometheus.Gauge
}

// New registers the audit metrics on reg. Tests pass a fresh
// prometheus.NewRegistry to avoid duplicate registration panics.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		written: factory.NewCounter(prometheus.CounterOpts{
			Name: "audit_records_written_total",
			Help: "Number of audit records persisted.",
		}),
		writeFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "audit_record_write_failures_total",
			Help: "Number of audit records that failed to persist.",
		}),
		dropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "audit_events_dropped_total",
			Help: "Number of audit events dropped because the queue was full.",
		}),
		vetoed: factory.NewCounter(prometheus.CounterOpts{
			Name: "audit_events_vetoed_total",
			Help: "Number of intercepted operations suppressed by classification rules.",
		}),
		cleanupDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "audit_cleanup_deleted_total",
			Help: "Number of audit records removed by retention cleanup.",
		}),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "audit_queue_depth",
			Help: "Current number of audit events waiting in the dispatch queue.",
		}),
	}
}

func (m *Metrics) IncWritten()       { m.written.Inc() }
func (m *Metrics) IncWriteFailures() { m.writeFailures.Inc() }
func (m *Metrics) IncDropped()       { m.dropped.Inc() }
func (m *Metrics) IncVetoed()        { m.vetoed.Inc() }

func (m *Metrics) AddCleanupDeleted(n int) { m.cleanupDeleted.Add(float64(n)) }

func (m *Metrics) SetQueueDepth(n int) { m.queueDepth.Set(float64(n)) }
