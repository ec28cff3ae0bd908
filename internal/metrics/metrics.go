package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Research request metrics
	ResearchRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "researchpro_research_requests_total",
			Help: "Total number of research requests received",
		},
	)

	ResearchCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "researchpro_research_completed_total",
			Help: "Total number of research requests finished, by outcome status",
		},
		[]string{"status"},
	)

	ResearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "researchpro_research_duration_seconds",
			Help:    "Wall-clock duration of research requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	SummarizationIterations = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "researchpro_summarization_iterations",
			Help:    "Iterations used by the quality-improvement loop",
			Buckets: []float64{1, 2, 3},
		},
	)

	SearchAngleFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "researchpro_search_angle_failures_total",
			Help: "Search angles that failed and contributed zero results",
		},
	)

	// Agent gateway metrics
	AgentCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "researchpro_agent_calls_total",
			Help: "Agent gateway invocations by capability and status",
		},
		[]string{"capability", "status"},
	)

	AgentCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "researchpro_agent_call_duration_seconds",
			Help:    "Agent gateway invocation duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"capability"},
	)

	// Session metrics
	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "researchpro_sessions_created_total",
			Help: "Total number of sessions created",
		},
	)

	SessionsPaused = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "researchpro_sessions_paused_total",
			Help: "Sessions paused at the approval gate",
		},
	)

	SessionsResumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "researchpro_sessions_resumed_total",
			Help: "Paused sessions resumed to completion",
		},
	)

	SessionCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "researchpro_session_cache_size",
			Help: "Number of sessions held in the local cache",
		},
	)

	// Memory store metrics
	MemoryWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "researchpro_memory_writes_total",
			Help: "Memory records appended",
		},
	)

	MemorySearches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "researchpro_memory_searches_total",
			Help: "Memory relevance searches executed",
		},
	)

	// Run archive metrics
	RunRecordWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "researchpro_run_record_writes_total",
			Help: "Research run archive writes by status",
		},
		[]string{"status"},
	)
)
