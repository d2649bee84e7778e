package operator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts operator executions and their latency. A nil *Metrics
// records nothing.
type Metrics struct {
	calls   *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sqlmap",
			Subsystem: "operator",
			Name:      "executions_total",
			Help:      "Operator executions by kind and outcome.",
		}, []string{"kind", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sqlmap",
			Subsystem: "operator",
			Name:      "execution_seconds",
			Help:      "Operator execution latency by kind.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"kind"}),
	}
	for _, c := range []prometheus.Collector{m.calls, m.latency} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(kind Kind, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(kind.String(), outcome).Inc()
	m.latency.WithLabelValues(kind.String()).Observe(elapsed.Seconds())
}
