package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchRequests tracks raw payload loads per chain, labelled by where they were served from
	FetchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chaintrace_fetch_requests_total",
			Help: "Total number of raw payload loads by source (cache or live)",
		},
		[]string{"chain", "source"},
	)

	// LiveCallErrors tracks failed live upstream calls
	LiveCallErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chaintrace_live_call_errors_total",
			Help: "Total number of failed live upstream calls",
		},
		[]string{"chain", "kind"},
	)

	// LiveCallLatency tracks upstream call latency
	LiveCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chaintrace_live_call_latency_seconds",
			Help:    "Live upstream call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"chain"},
	)

	// ParseErrors tracks upstream records skipped during normalization
	ParseErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chaintrace_parse_errors_total",
			Help: "Total number of malformed upstream records skipped",
		},
		[]string{"chain"},
	)

	// CacheErrors tracks unreadable cache entries treated as misses
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chaintrace_cache_errors_total",
			Help: "Total number of corrupt or unreadable cache entries",
		},
		[]string{"backend"},
	)

	// RateLimitWait tracks time spent waiting for the per-source limiter
	RateLimitWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chaintrace_rate_limit_wait_seconds",
			Help:    "Time spent waiting before a live call",
			Buckets: []float64{0, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"limiter"},
	)

	// GraphSize tracks nodes and edges of the latest built graph per chain
	GraphSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chaintrace_graph_size",
			Help: "Nodes and edges in the most recently built graph",
		},
		[]string{"chain", "kind"},
	)

	// TagsApplied tracks risk tags assigned to nodes
	TagsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chaintrace_tags_applied_total",
			Help: "Total number of risk tags assigned",
		},
		[]string{"tag"},
	)

	// AnalysesTotal tracks per-address pipeline runs by outcome
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chaintrace_analyses_total",
			Help: "Total number of per-address analyses",
		},
		[]string{"chain", "status"},
	)
)
