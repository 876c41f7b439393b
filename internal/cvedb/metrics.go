package cvedb

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zhaoyaojing",
			Subsystem: "nvd",
			Name:      "requests_total",
			Help:      "Total number of requests issued to the NVD API by endpoint and status.",
		},
		[]string{"endpoint", "status"},
	)
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "zhaoyaojing",
			Subsystem: "nvd",
			Name:      "request_duration_seconds",
			Help:      "Duration of requests issued to the NVD API.",
		},
		[]string{"endpoint"},
	)
	mirrorQueryCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zhaoyaojing",
			Subsystem: "mirror",
			Name:      "queries_total",
			Help:      "Total number of lookups answered by the local sqlite mirror.",
		},
		[]string{"query"},
	)
)
