package vertical

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the registry and its caches.
type Metrics struct {
	CacheReads      *prometheus.CounterVec
	RefreshesTotal  *prometheus.CounterVec
	StoreFetchTime  *prometheus.HistogramVec
	WritesTotal     *prometheus.CounterVec
	IndexCollisions prometheus.Counter
	IndexSize       *prometheus.GaugeVec
}

// NewMetrics registers and returns registry metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CacheReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atlas_vertical_cache_reads_total",
			Help: "Registry cache reads by cache and outcome (fresh/stale/expired/miss).",
		}, []string{"cache", "outcome"}),
		RefreshesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atlas_vertical_cache_refreshes_total",
			Help: "Cache refresh fetches by cache and result.",
		}, []string{"cache", "result"}),
		StoreFetchTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "atlas_vertical_store_fetch_seconds",
			Help:    "Duration of backing-store fetches by operation.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms .. ~2.5s
		}, []string{"op"}),
		WritesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atlas_vertical_writes_total",
			Help: "Registry write operations by op and result.",
		}, []string{"op", "result"}),
		IndexCollisions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "atlas_vertical_index_collisions_total",
			Help: "Detection index key collisions observed during rebuilds.",
		}),
		IndexSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "atlas_vertical_index_entries",
			Help: "Entries in the detection index by map.",
		}, []string{"map"}),
	}

	reg.MustRegister(
		m.CacheReads,
		m.RefreshesTotal,
		m.StoreFetchTime,
		m.WritesTotal,
		m.IndexCollisions,
		m.IndexSize,
	)

	return m
}
