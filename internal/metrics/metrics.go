// Package metrics provides Prometheus instrumentation for the matchmaker
// services. It exposes counters for match, suggestion and connection traffic
// and histograms for assembly latency and result sizes.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MatchRequestsTotal counts matching passes, labeled by mode and outcome:
	// "matched", "empty", "invalid" or "error".
	MatchRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "matchmaker_match_requests_total",
		Help: "Total number of match requests processed",
	}, []string{"mode", "outcome"})

	// AssemblyDuration records how long one Assemble call takes.
	AssemblyDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "matchmaker_assembly_duration_seconds",
		Help:    "Time spent assembling match previews",
		Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"mode"})

	// CandidatesScored counts candidates that survived filtering and were scored.
	CandidatesScored = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "matchmaker_candidates_scored_total",
		Help: "Total number of candidates scored",
	}, []string{"mode"})

	// PreviewsReturned records how many previews each request returned.
	PreviewsReturned = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "matchmaker_previews_returned",
		Help:    "Number of previews returned per match request",
		Buckets: []float64{0, 1, 3, 5, 10, 25, 50, 100},
	})

	// SuggestionRequestsTotal counts suggestion requests by kind
	// ("activity", "hangout") and source ("model", "fallback", "cache").
	SuggestionRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "matchmaker_suggestion_requests_total",
		Help: "Total number of suggestion requests served",
	}, []string{"kind", "source"})

	// ConnectionEventsTotal counts connection transitions by type.
	ConnectionEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "matchmaker_connection_events_total",
		Help: "Total number of connection lifecycle events",
	}, []string{"type"}) // type = "requested", "accepted", "declined", "removed"

	// HTTPRequestsTotal counts HTTP responses by route pattern and status code.
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "matchmaker_http_requests_total",
		Help: "Total number of HTTP requests handled",
	}, []string{"route", "status"})
)

// GeneratorBreakerState reports the text-generation circuit breaker state:
// 0 closed, 1 half-open, 2 open.
var GeneratorBreakerState = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "matchmaker_generator_breaker_state",
	Help: "Circuit breaker state of the text-generation client",
})

func init() {
	prometheus.MustRegister(
		MatchRequestsTotal,
		AssemblyDuration,
		CandidatesScored,
		PreviewsReturned,
		SuggestionRequestsTotal,
		ConnectionEventsTotal,
		HTTPRequestsTotal,
		GeneratorBreakerState,
	)
}

// ObserveHTTP records one HTTP response.
func ObserveHTTP(route string, status int) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
