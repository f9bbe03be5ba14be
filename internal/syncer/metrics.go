package syncer

import "github.com/prometheus/client_golang/prometheus"

var (
	transactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "posd_sync_transactions_total",
			Help: "Queued transactions processed by drain passes, by outcome.",
		},
		[]string{"outcome"}, // synced|dropped|retried
	)
	drainsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "posd_sync_drains_total",
			Help: "Drain invocations, by result.",
		},
		[]string{"result"}, // ran|busy|offline|empty
	)
)

func init() {
	prometheus.MustRegister(transactionsTotal, drainsTotal)
}
