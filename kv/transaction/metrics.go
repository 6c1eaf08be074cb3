package transaction

import "github.com/prometheus/client_golang/prometheus"

var (
	txCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tinydb",
			Subsystem: "txn",
			Name:      "events",
			Help:      "Counter of transaction events.",
		}, []string{"type", "lock", "event"})

	commitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tinydb",
			Subsystem: "txn",
			Name:      "commit_duration_seconds",
			Help:      "Bucketed histogram of transaction commit duration.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 16),
		}, []string{"lock"})
)

func init() {
	prometheus.MustRegister(txCounter)
	prometheus.MustRegister(commitDuration)
}
