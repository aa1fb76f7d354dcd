package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "quote_vault"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	apiCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alphavantage",
			Name:      "calls_total",
			Help:      "Outbound API calls by function and outcome.",
		},
		[]string{"function", "outcome"},
	)

	apiDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "alphavantage",
			Name:      "call_duration_seconds",
			Help:      "Duration of outbound API calls.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 8), // 50ms to ~6s
		},
		[]string{"function"},
	)

	quotaRemaining = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "quota",
			Name:      "remaining_calls",
			Help:      "Calls left in the current daily allowance.",
		},
	)

	pointsStored = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "points_stored_total",
			Help:      "Time series points committed to the store.",
		},
		[]string{"asset_type"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "History cache lookups by result.",
		},
		[]string{"result"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)
)

func init() {
	Registry.MustRegister(
		apiCalls,
		apiDuration,
		quotaRemaining,
		pointsStored,
		cacheLookups,
		httpRequests,
		httpDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordAPICall records one outbound call attempt
func RecordAPICall(function, outcome string, duration time.Duration) {
	if function == "" {
		function = "unknown"
	}
	apiCalls.WithLabelValues(function, outcome).Inc()
	if duration > 0 {
		apiDuration.WithLabelValues(function).Observe(duration.Seconds())
	}
}

// SetQuotaRemaining publishes the allowance left today
func SetQuotaRemaining(remaining int) {
	quotaRemaining.Set(float64(remaining))
}

// RecordPointsStored counts committed time series points
func RecordPointsStored(assetType string, n int) {
	if n <= 0 {
		return
	}
	pointsStored.WithLabelValues(assetType).Add(float64(n))
}

// RecordCacheLookup counts a cache hit or miss
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(result).Inc()
}

// RecordHTTPRequest records a handled HTTP request. route must be the matched
// route template, not the raw path, to keep label cardinality bounded.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	method = strings.ToUpper(method)
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
