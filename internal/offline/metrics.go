package offline

import "github.com/prometheus/client_golang/prometheus"

var queueDepth = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "posd_offline_queue_depth",
		Help: "Transactions waiting in the offline queue after the last write.",
	},
)

func init() {
	prometheus.MustRegister(queueDepth)
}
