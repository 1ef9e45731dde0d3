// Package metrics exposes Prometheus collectors for the toolbox server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// OutcomeOK labels a successful invocation.
const OutcomeOK = "ok"

var (
	// Request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toolbox_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "toolbox_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Invocation metrics
	invocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toolbox_invocations_total",
			Help: "Total number of tool invocations by outcome",
		},
		[]string{"tool", "transport", "outcome"},
	)

	invocationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "toolbox_invocation_duration_seconds",
			Help:    "Tool invocation duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"tool"},
	)

	invocationsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "toolbox_invocations_in_flight",
			Help: "Number of tool invocations currently executing",
		},
	)

	// Registry metrics
	toolsLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "toolbox_tools_loaded",
			Help: "Number of tools in the current snapshot",
		},
	)

	configLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toolbox_config_loads_total",
			Help: "Total number of tools file loads by result",
		},
		[]string{"result"},
	)

	sourceConnected = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "toolbox_source_connected",
			Help: "Whether a source currently holds an open connection handle",
		},
		[]string{"source", "kind"},
	)
)

// RecordHTTPRequest records one served HTTP request.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// InvocationStarted marks an invocation in flight and returns the func that
// records its completion.
func InvocationStarted() func(tool, transport, outcome string, duration time.Duration) {
	invocationsInFlight.Inc()
	return func(tool, transport, outcome string, duration time.Duration) {
		invocationsInFlight.Dec()
		invocationsTotal.WithLabelValues(tool, transport, outcome).Inc()
		invocationDuration.WithLabelValues(tool).Observe(duration.Seconds())
	}
}

// RecordLoad records a tools file load and, on success, the loaded tool count.
func RecordLoad(tools int, err error) {
	if err != nil {
		configLoadsTotal.WithLabelValues("error").Inc()
		return
	}
	configLoadsTotal.WithLabelValues("ok").Inc()
	toolsLoaded.Set(float64(tools))
}

// SetSourceConnected records whether a source has an open handle.
func SetSourceConnected(source, kind string, connected bool) {
	v := 0.0
	if connected {
		v = 1
	}
	sourceConnected.WithLabelValues(source, kind).Set(v)
}

// ResetSources drops the per-source gauges, used when a reload replaces the
// source set.
func ResetSources() {
	sourceConnected.Reset()
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
