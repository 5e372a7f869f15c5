package recon

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the observability surface of section 6: pool sizes and
// per-read diagnostics are logged (cmn/nlog), but the node-level
// transmit-in-progress counter, task outcome counts, task duration, and
// corruption-report volume are exported as Prometheus series so the
// cluster controller's dashboards can track reconstruction health across
// restarts and across nodes.
type Metrics struct {
	TransmitsInProgress prometheus.Gauge
	TasksTotal          *prometheus.CounterVec
	TaskDuration        prometheus.Histogram
	CorruptionReports   prometheus.Counter
}

// NewMetrics registers the reconstruction engine's series with reg and
// returns the handle tasks update as they run.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TransmitsInProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stripedrecon",
			Name:      "transmits_in_progress",
			Help:      "Number of reconstruction tasks currently transmitting rebuilt blocks.",
		}),
		TasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stripedrecon",
			Name:      "tasks_total",
			Help:      "Reconstruction tasks completed, by outcome.",
		}, []string{"outcome"}),
		TaskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "stripedrecon",
			Name:      "task_duration_seconds",
			Help:      "Wall-clock duration of one reconstruction task.",
			Buckets:   prometheus.DefBuckets,
		}),
		CorruptionReports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stripedrecon",
			Name:      "corruption_reports_total",
			Help:      "Corrupt (block, peer) pairs flushed to the cluster controller.",
		}),
	}
	reg.MustRegister(m.TransmitsInProgress, m.TasksTotal, m.TaskDuration, m.CorruptionReports)
	return m
}

// NewTestMetrics returns a Metrics registered against a private registry,
// for use in tests that don't want to touch the global Prometheus
// registry.
func NewTestMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
