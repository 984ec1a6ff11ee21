// Package metrics exposes Prometheus collectors for the summaries service.
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

// Task outcome labels for summaries_tasks_total.
const (
	TaskCompleted = "completed"
	TaskFailed    = "failed"
	TaskRetried   = "retried"
	TaskDiscarded = "discarded"
)

var (
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	tasksTotal                 *prometheus.CounterVec
	taskDurationSeconds        prometheus.Histogram
	activeWorkers              prometheus.Gauge
	fetchBytesTotal            *prometheus.CounterVec
	headlessFallbacksTotal     prometheus.Counter
	robotsFallbacksTotal       prometheus.Counter
	rateLimitDelaySeconds      *prometheus.HistogramVec

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
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		tasksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "summaries_tasks_total",
				Help: "Total number of summarization attempts, labeled by outcome.",
			},
			[]string{"status"},
		)

		taskDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "summaries_task_duration_seconds",
				Help:    "Time spent fetching and summarizing one article.",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "summaries_active_workers",
				Help: "Number of workers currently processing a task.",
			},
		)

		fetchBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "summaries_fetch_bytes_total",
				Help: "Total number of article bytes fetched, labeled by site.",
			},
			[]string{"site"},
		)

		headlessFallbacksTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "summaries_headless_fallbacks_total",
				Help: "Articles re-fetched with headless Chrome because too little text was found.",
			},
		)

		robotsFallbacksTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "summaries_robots_fallbacks_total",
				Help: "robots.txt probes that timed out and were treated as allow-all.",
			},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "summaries_rate_limit_delay_seconds",
				Help:    "Time a fetch waited for its host's rate limiter.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"site"},
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
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveTask records the outcome of one summarization attempt.
func ObserveTask(status string, duration time.Duration) {
	if tasksTotal == nil {
		return
	}
	tasksTotal.WithLabelValues(status).Inc()
	if duration > 0 {
		taskDurationSeconds.Observe(duration.Seconds())
	}
}

// ObserveFetch adds fetched bytes for the article's site.
func ObserveFetch(site string, bytesFetched int) {
	if fetchBytesTotal == nil || bytesFetched <= 0 {
		return
	}
	fetchBytesTotal.WithLabelValues(SanitizeSite(site)).Add(float64(bytesFetched))
}

// ObserveHeadlessFallback counts a headless re-fetch.
func ObserveHeadlessFallback() {
	if headlessFallbacksTotal != nil {
		headlessFallbacksTotal.Inc()
	}
}

// ObserveRobotsFallback counts a robots.txt probe answered with allow-all.
func ObserveRobotsFallback() {
	if robotsFallbacksTotal != nil {
		robotsFallbacksTotal.Inc()
	}
}

// ObserveRateLimitDelay records how long a fetch waited on the per-host limiter.
func ObserveRateLimitDelay(site string, delay time.Duration) {
	if rateLimitDelaySeconds != nil {
		rateLimitDelaySeconds.WithLabelValues(SanitizeSite(site)).Observe(delay.Seconds())
	}
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	if activeWorkers != nil {
		activeWorkers.Inc()
	}
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	if activeWorkers != nil {
		activeWorkers.Dec()
	}
}
