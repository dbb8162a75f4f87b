// Package metrics exposes Prometheus collectors for the scraper and the
// lookup service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scraperPagesTotal          *prometheus.CounterVec
	lookupRequestsTotal        *prometheus.CounterVec
	lookupCacheRefreshTotal    *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		scraperPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_pages_total",
				Help: "Total number of product pages handled, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		lookupRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lookup_requests_total",
				Help: "Total lookup queries, labeled by kind and result.",
			},
			[]string{"kind", "result"},
		)

		lookupCacheRefreshTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lookup_cache_refresh_total",
				Help: "Record-set cache refreshes, labeled by outcome.",
			},
			[]string{"outcome"},
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
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// PageScraped counts a successfully extracted and persisted product page.
func PageScraped() { observePage("scraped") }

// PageSkipped counts a page skipped by the resume logic.
func PageSkipped() { observePage("skipped") }

// PageFailed counts a page whose fetch or extraction failed.
func PageFailed() { observePage("failed") }

func observePage(outcome string) {
	Init()
	scraperPagesTotal.WithLabelValues(outcome).Inc()
}

// ObserveLookup counts a lookup query by kind (asin, isbn, series, search,
// provider) and result (exact, fuzzy, miss).
func ObserveLookup(kind, result string) {
	Init()
	lookupRequestsTotal.WithLabelValues(kind, result).Inc()
}

// ObserveCacheRefresh counts a record-set refresh attempt.
func ObserveCacheRefresh(outcome string) {
	Init()
	lookupCacheRefreshTotal.WithLabelValues(outcome).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
