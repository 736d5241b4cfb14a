package workers

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments for the worker pool.
type Metrics struct {
	tasksTotal   *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec
	queueDepth   prometheus.Gauge
}

// InitMetrics registers the pool metrics on the given registerer. A nil
// registerer uses the default one.
func InitMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		tasksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "worker_tasks_total",
				Help:      "Total number of worker tasks by status",
			},
			[]string{"status"},
		),
		taskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "worker_task_duration_seconds",
				Help:      "Duration of worker tasks",
				Buckets:   []float64{.05, .1, .5, 1, 5, 10, 30, 60},
			},
			[]string{"status"},
		),
		queueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "worker_queue_depth",
				Help:      "Number of tasks waiting in the worker queue",
			},
		),
	}

	reg.MustRegister(m.tasksTotal, m.taskDuration, m.queueDepth)
	return m
}

func (m *Metrics) taskSubmitted(depth int) {
	m.queueDepth.Set(float64(depth))
}

func (m *Metrics) taskDone(status string, d time.Duration, depth int) {
	m.tasksTotal.WithLabelValues(status).Inc()
	m.taskDuration.WithLabelValues(status).Observe(d.Seconds())
	m.queueDepth.Set(float64(depth))
}
