package cache

import "github.com/prometheus/client_golang/prometheus"

var (
	cacheReads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "posd_cache_reads_total",
			Help: "Cache reads by result (hit, miss, error).",
		},
		[]string{"result"},
	)

	cacheWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "posd_cache_writes_total",
			Help: "Cache writes by result (ok, error).",
		},
		[]string{"result"},
	)

	cacheInvalidated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "posd_cache_invalidated_keys_total",
			Help: "Physical cache keys removed by invalidation or clear.",
		},
	)
)

func init() {
	prometheus.MustRegister(cacheReads, cacheWrites, cacheInvalidated)
}
