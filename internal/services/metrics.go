package services

import "github.com/prometheus/client_golang/prometheus"

var (
	loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "posd_swr_loads_total",
			Help: "Completed read-model loads, by domain and result.",
		},
		[]string{"domain", "result"}, // fresh|error|superseded
	)
	checkoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "posd_checkouts_total",
			Help: "Checkouts, by outcome.",
		},
		[]string{"outcome"}, // submitted|queued|rejected
	)
)

func init() {
	prometheus.MustRegister(loadsTotal, checkoutsTotal)
}
