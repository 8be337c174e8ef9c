// Package metrics provides Prometheus metrics for the server.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Default histogram buckets for request latency.
var defaultBuckets = []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1}

// Drop reasons recorded by DroppedTotal.
const (
	DropEmpty       = "empty"
	DropMalformed   = "malformed"
	DropMissing     = "missing_resource"
	DropRateLimited = "rate_limited"
	DropError       = "error"
)

// Metrics holds all Prometheus metric collectors for the server.
type Metrics struct {
	Registry *prometheus.Registry

	ConnectionsTotal  prometheus.Counter
	ConnectionsActive prometheus.Gauge
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	DroppedTotal      *prometheus.CounterVec

	AdminRequestsTotal   *prometheus.CounterVec
	AdminRequestDuration *prometheus.HistogramVec
}

// New creates a Metrics instance with a custom registry and all collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authsrv_connections_total",
			Help: "Total accepted TCP connections.",
		}),

		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "authsrv_connections_active",
			Help: "Number of connections currently being served.",
		}),

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authsrv_requests_total",
			Help: "Total answered requests.",
		}, []string{"method", "status_code", "target"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "authsrv_request_duration_seconds",
			Help:    "Time from receiving a buffer to building its response, in seconds.",
			Buckets: defaultBuckets,
		}, []string{"method", "target"}),

		DroppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authsrv_dropped_total",
			Help: "Connections closed without a response, by reason.",
		}, []string{"reason"}),

		AdminRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authsrv_admin_http_requests_total",
			Help: "Total admin HTTP requests.",
		}, []string{"method", "status_code", "path_prefix"}),

		AdminRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "authsrv_admin_http_request_duration_seconds",
			Help:    "Admin HTTP request latency in seconds.",
			Buckets: defaultBuckets,
		}, []string{"method", "status_code", "path_prefix"}),
	}

	reg.MustRegister(
		m.ConnectionsTotal,
		m.ConnectionsActive,
		m.RequestsTotal,
		m.RequestDuration,
		m.DroppedTotal,
		m.AdminRequestsTotal,
		m.AdminRequestDuration,
	)

	return m
}

// knownMethods lists the allowed method label values (bounded cardinality).
var knownMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true,
}

// NormalizeMethod returns a bounded method label for Prometheus metrics.
// Clients send arbitrary method tokens; unknown ones are mapped to "other".
func NormalizeMethod(method string) string {
	if knownMethods[method] {
		return method
	}
	return "other"
}

// knownPrefixes lists the allowed admin path label values.
var knownPrefixes = []string{"/healthz", "/status", "/metrics"}

// NormalizePath returns a bounded admin path label for Prometheus metrics.
func NormalizePath(path string) string {
	for _, prefix := range knownPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") || strings.HasPrefix(path, prefix+"?") {
			return prefix
		}
	}
	return "other"
}
