// Package metrics exposes Prometheus collectors for the webhook service.
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

var (
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	webhookPostsTotal          *prometheus.CounterVec
	upstreamRequestsTotal      *prometheus.CounterVec
	certificatesRenderedTotal  *prometheus.CounterVec
	certificateTriggerTotal    *prometheus.CounterVec
	linkPreviewsTotal          *prometheus.CounterVec

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
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15},
			},
			[]string{"method", "route"},
		)

		webhookPostsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhook_posts_total",
				Help: "Total number of messages posted to the chat webhook, labeled by status.",
			},
			[]string{"status"},
		)

		upstreamRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upstream_requests_total",
				Help: "Total number of outbound requests, labeled by target host and status.",
			},
			[]string{"target", "status"},
		)

		certificatesRenderedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "certificates_rendered_total",
				Help: "Total number of certificate images rendered, labeled by status.",
			},
			[]string{"status"},
		)

		certificateTriggerTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "certificate_trigger_total",
				Help: "Certificate trigger evaluations, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		linkPreviewsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "link_previews_total",
				Help: "Link preview candidates, labeled by outcome.",
			},
			[]string{"outcome"},
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
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveWebhookPost records one webhook delivery attempt.
func ObserveWebhookPost(err error) {
	Init()
	webhookPostsTotal.WithLabelValues(outcome(err)).Inc()
}

// LinkPreviewTarget labels scrapes of caller-supplied links. Their hosts are
// unbounded, so they share one series.
const LinkPreviewTarget = "link_preview"

// ObserveUpstream records one outbound request to rawURL, labeled by host.
// Only use it for configured endpoints. code is zero when no response was
// received.
func ObserveUpstream(rawURL string, code int) {
	ObserveUpstreamTarget(SanitizeSite(rawURL), code)
}

// ObserveUpstreamTarget records one outbound request under a fixed target label.
func ObserveUpstreamTarget(target string, code int) {
	Init()
	status := "error"
	if code > 0 {
		status = strconv.Itoa(code)
	}
	upstreamRequestsTotal.WithLabelValues(target, status).Inc()
}

// ObserveCertificate records one certificate render.
func ObserveCertificate(err error) {
	Init()
	certificatesRenderedTotal.WithLabelValues(outcome(err)).Inc()
}

// ObserveCertificateTrigger records a trigger evaluation outcome such as
// "idle", "fired", "latched", "empty" or "error".
func ObserveCertificateTrigger(result string) {
	Init()
	certificateTriggerTotal.WithLabelValues(result).Inc()
}

// ObserveLinkPreview records a preview candidate outcome such as "rendered",
// "duplicate", "excluded_title", "excluded_domain" or "fetch_failed".
func ObserveLinkPreview(result string) {
	Init()
	linkPreviewsTotal.WithLabelValues(result).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
