// Package metrics exposes Prometheus collectors for the harvester.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pageFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_page_fetches_total",
			Help: "Listing page fetches, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	detailFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_detail_fetches_total",
			Help: "Listing detail fetches, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	windowDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "harvester_window_duration_seconds",
			Help:    "Wall time of one detail window, excluding the pause that follows it.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	recordsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "harvester_records_total",
			Help: "Records collected across all runs.",
		},
	)

	rateLimitDelaysSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "harvester_rate_limit_delays_seconds",
			Help:    "Histogram of rate limit wait durations.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"domain"},
	)

	loaderRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_loader_rows_total",
			Help: "Rows seen by the loader, labeled by result.",
		},
		[]string{"result"},
	)

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
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)
)

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

// ObservePageFetch counts one listing page fetch.
func ObservePageFetch(outcome string) {
	pageFetchesTotal.WithLabelValues(outcome).Inc()
}

// ObserveDetail counts one detail fetch.
func ObserveDetail(outcome string) {
	detailFetchesTotal.WithLabelValues(outcome).Inc()
}

// ObserveWindow records how long a window took.
func ObserveWindow(d time.Duration) {
	windowDurationSeconds.Observe(d.Seconds())
}

// ObserveRecords adds n collected records.
func ObserveRecords(n int) {
	if n > 0 {
		recordsTotal.Add(float64(n))
	}
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	rateLimitDelaysSeconds.WithLabelValues(domain).Observe(duration.Seconds())
}

// ObserveLoaderRows adds n rows under result (inserted, skipped, invalid).
func ObserveLoaderRows(result string, n int) {
	if n > 0 {
		loaderRowsTotal.WithLabelValues(result).Add(float64(n))
	}
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
