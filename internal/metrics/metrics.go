// Package metrics registers the Prometheus collectors for runs, stages, tools and the lookup cache.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "career_agent"

var (
	// StageAttempts counts worker invocations per stage.
	StageAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stage",
			Name:      "attempts_total",
			Help:      "Worker invocations per stage.",
		},
		[]string{"stage"},
	)

	// StageOutcomes counts how stages concluded (accepted, failed, truncated).
	StageOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stage",
			Name:      "outcomes_total",
			Help:      "Terminal stage states per stage.",
		},
		[]string{"stage", "status"},
	)

	// GateRejections counts quality-gate rejections by reason code.
	GateRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "rejections_total",
			Help:      "Quality gate rejection reasons.",
		},
		[]string{"stage", "code"},
	)

	// ToolCalls counts tool invocations made by workers.
	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "tool_calls_total",
			Help:      "Tool invocations by stage and tool.",
		},
		[]string{"stage", "tool"},
	)

	// CacheLookups counts cache reads by result (hit, miss).
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Lookup cache reads by result.",
		},
		[]string{"result"},
	)

	// CacheWrites counts cache upserts.
	CacheWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "writes_total",
			Help:      "Lookup cache upserts.",
		},
	)

	// CacheCorruptEntries counts entries discarded while loading the cache file.
	CacheCorruptEntries = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "corrupt_entries_total",
			Help:      "Persisted entries dropped as corrupt.",
		},
	)

	// RunOutcomes counts finished runs by status.
	RunOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "outcomes_total",
			Help:      "Finished runs by completion status.",
		},
		[]string{"status"},
	)

	// ModelRequests counts generation calls by provider, tier and result (ok, error).
	ModelRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "Model generation calls.",
		},
		[]string{"provider", "tier", "result"},
	)

	// ModelTokens counts tokens reported by the provider, by direction (input, output).
	ModelTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Model tokens consumed.",
		},
		[]string{"provider", "tier", "direction"},
	)

	// ModelLatency observes generation call duration.
	ModelLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "request_seconds",
			Help:      "Model generation latency.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"provider", "tier"},
	)

	// RunsInProgress tracks runs currently executing.
	RunsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "in_progress",
			Help:      "Runs currently executing.",
		},
	)
)

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
