package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ServicesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_services_created_total",
		Help: "Total number of services created",
	})

	ServicesUpdatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_services_updated_total",
		Help: "Total number of services updated",
	})

	ServicesDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_services_deleted_total",
		Help: "Total number of services soft-deleted",
	})

	ServicesClonedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_services_cloned_total",
		Help: "Total number of services cloned",
	})

	BulkActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_bulk_actions_total",
		Help: "Total number of bulk actions performed",
	}, []string{"action"})

	BulkItemErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_bulk_item_errors_total",
		Help: "Total number of per-item bulk action failures",
	}, []string{"action"})

	CloneRollbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_clone_rollbacks_total",
		Help: "Total number of compensating rollbacks after partial bulk clone failures",
	})

	ListFallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_list_fallback_total",
		Help: "Total number of list queries served by the degraded in-memory path",
	})

	CacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_cache_hits_total",
		Help: "Total number of cache hits",
	}, []string{"kind"})

	CacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_cache_misses_total",
		Help: "Total number of cache misses",
	}, []string{"kind"})

	StatsSubqueryTimeouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_stats_subquery_timeouts_total",
		Help: "Total number of analytics sub-queries that timed out or failed",
	}, []string{"subquery"})

	ListQueryLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_list_query_latency_seconds",
		Help:    "Latency of catalog list queries",
		Buckets: prometheus.DefBuckets,
	})

	StatsQueryLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_stats_query_latency_seconds",
		Help:    "Latency of catalog stats aggregation",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
