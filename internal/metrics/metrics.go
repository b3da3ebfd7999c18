package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "elim"

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeInvalid  = "invalid"
	OutcomeDenied   = "denied"
	OutcomeNoop     = "noop"
	OutcomeFailed   = "failed"
	OutcomeCacheHit = "cache_hit"
)

// Metrics groups the counters of the comment subsystem.
type Metrics struct {
	Registry   *prometheus.Registry
	operations *prometheus.CounterVec
	threadSize prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "comments",
			Name:      "operations_total",
			Help:      "Comment operations by kind and outcome.",
		}, []string{"op", "outcome"}),
		threadSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "comments",
			Name:      "thread_size",
			Help:      "Number of comments in built threads.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 6),
		}),
	}
	reg.MustRegister(m.operations, m.threadSize)
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	return m
}

// Observe counts one operation. A nil receiver is a no-op so services can
// run without metrics in tests.
func (m *Metrics) Observe(op, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) ObserveThread(size int) {
	if m == nil {
		return
	}
	m.threadSize.Observe(float64(size))
}

// Operation returns the counter behind one op/outcome pair.
func (m *Metrics) Operation(op, outcome string) prometheus.Counter {
	return m.operations.WithLabelValues(op, outcome)
}
