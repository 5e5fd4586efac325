// Package metrics объявляет счётчики Prometheus шлюза.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GuardDecisions решения защитника маршрутов.
	GuardDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fintrack_guard_decisions_total",
		Help: "Route guard decisions by outcome and reason.",
	}, []string{"outcome", "reason"})

	// CacheRequests обращения к кешу запросов: hit, miss, superseded, evicted.
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fintrack_query_cache_requests_total",
		Help: "Query cache lookups by scope and result.",
	}, []string{"scope", "result"})

	// AdminMutations административные изменения и их исход.
	AdminMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fintrack_admin_mutations_total",
		Help: "Admin mutations by entity, action and outcome.",
	}, []string{"entity", "action", "outcome"})

	// AuditEvents события администрирования, прочитанные из очереди аудита.
	AuditEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fintrack_audit_events_total",
		Help: "Admin events consumed from the audit queue by routing key.",
	}, []string{"routing_key"})

	// UpstreamDuration длительность запросов к внешнему API.
	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fintrack_upstream_request_duration_seconds",
		Help:    "Duration of backend API calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "status"})
)
