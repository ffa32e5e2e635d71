package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReferencesRegistered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "snapmatch",
		Name:      "references_registered_total",
		Help:      "Total number of reference faces registered",
	})

	FacesDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "snapmatch",
		Name:      "faces_detected_total",
		Help:      "Total number of faces detected",
	}, []string{"source"})

	MatchesRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "snapmatch",
		Name:      "matches_recorded_total",
		Help:      "Total number of match records appended to the ledger",
	}, []string{"source"})

	BatchCandidates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "snapmatch",
		Name:      "batch_candidates_total",
		Help:      "Batch candidate outcomes by final state",
	}, []string{"outcome"})

	InferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "snapmatch",
		Name:      "inference_duration_seconds",
		Help:      "Duration of face extraction stages",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"stage"})

	SearchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "snapmatch",
		Name:      "search_duration_seconds",
		Help:      "Duration of similarity searches",
		Buckets:   prometheus.DefBuckets,
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "snapmatch",
		Name:      "queue_depth",
		Help:      "Number of pending batch match jobs in queue",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "snapmatch",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "snapmatch",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
