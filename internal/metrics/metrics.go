package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline outcome labels.
const (
	OutcomeAnswered             = "answered"
	OutcomeFuzzyAnswered        = "fuzzy_answered"
	OutcomeClarificationPrimary = "clarification_primary"
	OutcomeClarificationFuzzy   = "clarification_fuzzy"
	OutcomeError                = "error"
)

var (
	pipelineOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_pipeline_outcomes_total",
			Help: "Total number of completed pipeline runs by outcome.",
		},
		[]string{"outcome"},
	)
	sqlExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_sql_executions_total",
			Help: "Total number of generated SQL executions by phase (primary, fuzzy) and status.",
		},
		[]string{"phase", "status"},
	)
	llmCallDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "askdb_llm_call_duration_seconds",
			Help:    "LLM call latency by purpose (sql, answer) and status.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		},
		[]string{"purpose", "status"},
	)
	schemaCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_schema_cache_total",
			Help: "Schema description cache lookups by result (hit, miss).",
		},
		[]string{"result"},
	)
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "askdb_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		pipelineOutcomesTotal,
		sqlExecutionsTotal,
		llmCallDurationSeconds,
		schemaCacheTotal,
		httpRequestsTotal,
		httpRequestDurationSeconds,
	)
}

func ObservePipelineOutcome(outcome string) {
	pipelineOutcomesTotal.WithLabelValues(outcome).Inc()
}

func ObserveSQLExecution(phase string, err error) {
	sqlExecutionsTotal.WithLabelValues(phase, status(err)).Inc()
}

func ObserveLLMCall(purpose string, elapsed time.Duration, err error) {
	llmCallDurationSeconds.WithLabelValues(purpose, status(err)).Observe(elapsed.Seconds())
}

func ObserveSchemaCache(hit bool) {
	if hit {
		schemaCacheTotal.WithLabelValues("hit").Inc()
		return
	}
	schemaCacheTotal.WithLabelValues("miss").Inc()
}

func ObserveHTTPRequest(method, path, status string, elapsed time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, path, status).Observe(elapsed.Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
