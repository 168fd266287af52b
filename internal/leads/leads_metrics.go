package leads

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the lead pipeline.
type Metrics struct {
	SubmitsTotal   *prometheus.CounterVec
	RunsTotal      *prometheus.CounterVec
	RunDuration    *prometheus.HistogramVec
	ClassifyMethod *prometheus.CounterVec
	SideEffectErrs *prometheus.CounterVec
}

// NewMetrics registers and returns lead pipeline metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SubmitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atlas_lead_submits_total",
			Help: "Total lead submissions by result.",
		}, []string{"result"}),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atlas_lead_runs_total",
			Help: "Total lead runs by final status.",
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "atlas_lead_run_duration_seconds",
			Help:    "Duration of lead runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 0.1s .. ~51s
		}, []string{"status"}),
		ClassifyMethod: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atlas_lead_classifications_total",
			Help: "Total classifications by waterfall method.",
		}, []string{"method"}),
		SideEffectErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atlas_lead_side_effect_errors_total",
			Help: "Total non-fatal side effect failures by sink.",
		}, []string{"sink"}),
	}

	reg.MustRegister(
		m.SubmitsTotal,
		m.RunsTotal,
		m.RunDuration,
		m.ClassifyMethod,
		m.SideEffectErrs,
	)

	return m
}
