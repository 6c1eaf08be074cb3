package datastore

import "github.com/prometheus/client_golang/prometheus"

var (
	nodeCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tinydb",
			Subsystem: "cluster",
			Name:      "node_events",
			Help:      "Counter of node membership events.",
		}, []string{"type"})

	changefeedGCCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tinydb",
			Subsystem: "changefeed",
			Name:      "gc_deleted",
			Help:      "Counter of keys deleted by change feed garbage collection.",
		}, []string{"type"})

	indexBuildCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tinydb",
			Subsystem: "index",
			Name:      "build_events",
			Help:      "Counter of index build events.",
		}, []string{"type"})
)

func init() {
	prometheus.MustRegister(nodeCounter)
	prometheus.MustRegister(changefeedGCCounter)
	prometheus.MustRegister(indexBuildCounter)
}
