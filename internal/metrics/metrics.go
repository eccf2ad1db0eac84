// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scribe_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Queue metrics
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_jobs_total",
			Help: "Jobs by terminal or lifecycle event",
		},
		[]string{"event"},
	)

	JobsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scribe_jobs_in_flight",
			Help: "Jobs currently being processed by this process",
		},
	)

	JobsRecovered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scribe_jobs_recovered_total",
			Help: "PROCESSING jobs failed by the recovery sweep",
		},
	)

	// Pipeline metrics
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scribe_pipeline_stage_duration_seconds",
			Help:    "Duration of each generation stage",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 240, 480},
		},
		[]string{"stage"},
	)

	StageFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_pipeline_stage_fallbacks_total",
			Help: "Stages whose output was rejected in favour of an earlier version",
		},
		[]string{"stage", "reason"},
	)

	ArticleScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scribe_article_score",
			Help:    "SEO score of generated articles",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	ArticleWords = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scribe_article_words",
			Help:    "Word count of generated articles",
			Buckets: []float64{500, 1000, 1500, 2000, 3000, 4000, 5000, 6000},
		},
	)

	// LLM metrics
	LLMCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_llm_calls_total",
			Help: "Text generation calls by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_llm_tokens_total",
			Help: "Tokens consumed by provider and direction",
		},
		[]string{"provider", "direction"},
	)

	// Internal linking and cluster metrics
	InternalLinksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_internal_links_total",
			Help: "Internal link rewrites by outcome",
		},
		[]string{"outcome"},
	)

	ClusterRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_cluster_requests_total",
			Help: "Keyword cluster suggestion requests by outcome",
		},
		[]string{"outcome"},
	)

	// NATS metrics
	NatsMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_nats_messages_published_total",
			Help: "Total number of NATS messages published",
		},
		[]string{"subject", "status"},
	)

	// WebSocket metrics
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scribe_websocket_connections_active",
			Help: "Number of active progress stream connections",
		},
	)

	// Application health metrics
	ApplicationInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scribe_application_info",
			Help: "Application information",
		},
		[]string{"version", "environment"},
	)
)

// Init records static application info
func Init(version, environment string) {
	ApplicationInfo.WithLabelValues(version, environment).Set(1)
}
