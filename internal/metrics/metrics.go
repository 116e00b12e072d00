// Package metrics exposes Prometheus collectors for the vedictime service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Read outcomes reported by ObserveRead.
const (
	ReadCached = "cached"
	ReadFresh  = "fresh"
	ReadFailed = "failed"
)

var (
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	snapshotReadsTotal         *prometheus.CounterVec
	pageReloadsTotal           *prometheus.CounterVec
	sessionLaunchesTotal       *prometheus.CounterVec
	extractionFailuresTotal    prometheus.Counter
	rateLimitedTotal           prometheus.Counter
	snapshotAgeSeconds         prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
			},
			[]string{"method", "route"},
		)

		snapshotReadsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vedictime_snapshot_reads_total",
				Help: "Total number of snapshot reads, labeled by outcome (cached, fresh, failed).",
			},
			[]string{"outcome"},
		)

		pageReloadsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vedictime_page_reloads_total",
				Help: "Total number of full page reload attempts, labeled by site and result.",
			},
			[]string{"site", "result"},
		)

		sessionLaunchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vedictime_session_launches_total",
				Help: "Total number of headless browser session launches, labeled by result.",
			},
			[]string{"result"},
		)

		extractionFailuresTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "vedictime_extraction_failures_total",
				Help: "Total number of extractions that found no clock text on the page.",
			},
		)

		rateLimitedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "vedictime_rate_limited_total",
				Help: "Total number of API requests rejected by the rate limiter.",
			},
		)

		snapshotAgeSeconds = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "vedictime_snapshot_age_seconds",
				Help: "Age of the snapshot most recently served.",
			},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRead records a snapshot read and the age of the snapshot handed out.
func ObserveRead(outcome string, age time.Duration) {
	snapshotReadsTotal.WithLabelValues(outcome).Inc()
	if outcome != ReadFailed {
		snapshotAgeSeconds.Set(age.Seconds())
	}
}

// ObserveReload records a full page reload attempt against the given URL.
func ObserveReload(rawURL string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	pageReloadsTotal.WithLabelValues(SanitizeSite(rawURL), result).Inc()
}

// ObserveSessionLaunch records a browser session launch attempt.
func ObserveSessionLaunch(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	sessionLaunchesTotal.WithLabelValues(result).Inc()
}

// ObserveExtractionFailure increments the extraction failure counter.
func ObserveExtractionFailure() {
	extractionFailuresTotal.Inc()
}

// ObserveRateLimited increments the rate limited request counter.
func ObserveRateLimited() {
	rateLimitedTotal.Inc()
}
