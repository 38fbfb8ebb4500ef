package task

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// Metrics counts tracked tasks and their durations.
type Metrics struct {
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers task metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		total: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hostdash_tasks_total",
				Help: "Tracked tasks by name and outcome",
			},
			[]string{"name", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hostdash_task_duration_seconds",
				Help:    "Duration of tracked tasks",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"name"},
		),
	}
}

func (m *Metrics) observe(name string, seconds float64, success bool) {
	if m == nil {
		return
	}
	outcome := outcomeSuccess
	if !success {
		outcome = outcomeFailure
	}
	m.total.WithLabelValues(name, outcome).Inc()
	m.duration.WithLabelValues(name).Observe(seconds)
}
