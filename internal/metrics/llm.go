package metrics

import "github.com/prometheus/client_golang/prometheus"

// Language model and search execution metrics.
var (
	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nlsearch",
			Name:      "llm_requests_total",
			Help:      "Total number of language model requests",
		},
		[]string{"model", "status"},
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nlsearch",
			Name:      "llm_request_duration_seconds",
			Help:      "Language model request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"model"},
	)

	LLMTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nlsearch",
			Name:      "llm_tokens_total",
			Help:      "Total language model tokens consumed",
		},
		[]string{"model", "type"}, // "prompt" / "completion"
	)

	LLMErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nlsearch",
			Name:      "llm_errors_total",
			Help:      "Total language model errors",
		},
		[]string{"model", "error_type"},
	)

	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nlsearch",
			Name:      "searches_total",
			Help:      "Total searches by interpretation path and outcome",
		},
		[]string{"query_type", "status"},
	)

	SearchRepairsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nlsearch",
			Name:      "search_parse_repairs_total",
			Help:      "Model replies that parsed only after repair",
		},
	)

	LLMCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nlsearch",
			Name:      "llm_cache_total",
			Help:      "Reply cache lookups by result",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var llmMetricsRegistered bool

// RegisterLLMMetrics registers the metrics above. Must be called once from main.
func RegisterLLMMetrics() {
	if llmMetricsRegistered {
		return
	}
	prometheus.MustRegister(LLMRequestsTotal)
	prometheus.MustRegister(LLMRequestDuration)
	prometheus.MustRegister(LLMTokensTotal)
	prometheus.MustRegister(LLMErrorsTotal)
	prometheus.MustRegister(SearchesTotal)
	prometheus.MustRegister(SearchRepairsTotal)
	prometheus.MustRegister(LLMCacheTotal)
	llmMetricsRegistered = true
}
