package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphgate_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "graphgate_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	modeRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphgate_mode_requests_total",
			Help: "Gateway requests by dispatch mode and outcome.",
		},
		[]string{"mode", "outcome"},
	)

	translationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "graphgate_translation_duration_seconds",
			Help:    "Natural-language to Cypher translation latency.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	summarizationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "graphgate_summarization_duration_seconds",
			Help:    "Grounded answer generation latency.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	toolCallDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "graphgate_tool_call_duration_seconds",
			Help:    "MCP tool invocation latency by tool name.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"tool"},
	)

	toolCallFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphgate_tool_call_failures_total",
			Help: "Failed MCP tool invocations by tool name.",
		},
		[]string{"tool"},
	)

	mcpReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "graphgate_mcp_reconnects_total",
			Help: "Total number of MCP session redials.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		modeRequestsTotal,
		translationDurationSeconds,
		summarizationDurationSeconds,
		toolCallDurationSeconds,
		toolCallFailuresTotal,
		mcpReconnectsTotal,
	)
}

func ObserveModeRequest(mode string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	modeRequestsTotal.WithLabelValues(mode, outcome).Inc()
}

func ObserveTranslation(elapsed time.Duration) {
	translationDurationSeconds.Observe(elapsed.Seconds())
}

func ObserveSummarization(elapsed time.Duration) {
	summarizationDurationSeconds.Observe(elapsed.Seconds())
}

func ObserveToolCall(tool string, elapsed time.Duration, err error) {
	toolCallDurationSeconds.WithLabelValues(tool).Observe(elapsed.Seconds())
	if err != nil {
		toolCallFailuresTotal.WithLabelValues(tool).Inc()
	}
}

func IncrementMCPReconnect() {
	mcpReconnectsTotal.Inc()
}
