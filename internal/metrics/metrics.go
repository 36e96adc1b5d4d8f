// Package metrics holds the Prometheus collectors shared by the classifier,
// the services and the HTTP layer.
package metrics

import (
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Classifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hhh_classifications_total",
			Help: "Resolved classifications, by deciding tier and category.",
		},
		[]string{"tier", "category"},
	)

	SemanticAbstentions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hhh_semantic_abstentions_total",
			Help: "Semantic tier abstentions, by reason.",
		},
		[]string{"reason"},
	)

	PropagationUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hhh_propagation_updates_total",
			Help: "Videos updated or skipped by playlist propagation.",
		},
		[]string{"outcome"},
	)

	Feedback = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hhh_feedback_total",
			Help: "Feedback rows recorded, by type.",
		},
		[]string{"type"},
	)

	PatternsLearned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hhh_patterns_reinforced_total",
			Help: "Learned pattern reinforcements written.",
		},
	)

	EmbeddingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hhh_embedding_request_duration_seconds",
			Help:    "Latency of embedding backend requests.",
			Buckets: prometheus.DefBuckets,
		},
	)

	IntegrityIssues = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hhh_integrity_issues",
			Help: "Rows affected by each integrity check at the last run.",
		},
		[]string{"code"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hhh_api_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by endpoint and method.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hhh_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hhh_cache_hits_total",
			Help: "Redis cache hits, by cache.",
		},
		[]string{"cache"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hhh_cache_misses_total",
			Help: "Redis cache misses, by cache.",
		},
		[]string{"cache"},
	)
)

var registerOnce sync.Once

// Register adds every collector to the default registry, plus connection
// pool gauges when pool is non-nil. Safe to call more than once.
func Register(pool *pgxpool.Pool) {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			Classifications,
			SemanticAbstentions,
			PropagationUpdates,
			Feedback,
			PatternsLearned,
			EmbeddingDuration,
			IntegrityIssues,
			RequestDuration,
			RequestsInFlight,
			CacheHits,
			CacheMisses,
		)

		if pool == nil {
			return
		}
		prometheus.MustRegister(
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "hhh_db_connection_pool_active",
					Help: "Number of active database connections.",
				},
				func() float64 { return float64(pool.Stat().AcquiredConns()) },
			),
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "hhh_db_connection_pool_idle",
					Help: "Number of idle database connections.",
				},
				func() float64 { return float64(pool.Stat().IdleConns()) },
			),
		)
	})
}
