package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	searchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_requests_total",
			Help: "Search requests by entity and outcome (hit, miss, empty, cached, error).",
		},
		[]string{"entity", "outcome"},
	)

	searchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_engine_duration_seconds",
			Help:    "Search engine query latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"entity"},
	)

	orphanedHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_orphaned_hits_total",
			Help: "Search hits dropped because their record no longer exists.",
		},
		[]string{"entity"},
	)

	documentsIndexed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_documents_indexed_total",
			Help: "Documents written to the search engine by entity and path (bootstrap, project).",
		},
		[]string{"entity", "path"},
	)
)
