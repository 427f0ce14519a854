// Package metrics exposes the H.I.V.E control plane's Prometheus
// instrumentation, following the teacher's metrics+Timer pattern
// relabeled to this domain.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RuntimeInvocationsTotal counts every podman invocation by command and outcome.
	RuntimeInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hive_runtime_invocations_total",
			Help: "Total number of container runtime invocations by command and status",
		},
		[]string{"command", "status"},
	)

	// ContainerLifecycleDuration times create/start/stop/restart/delete calls.
	ContainerLifecycleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hive_container_lifecycle_duration_seconds",
			Help:    "Time taken for a container lifecycle operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	// HoneypotsTotal tracks live honeypots by type and rendered status.
	HoneypotsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hive_honeypots_total",
			Help: "Total number of honeypot containers by type and status",
		},
		[]string{"type", "status"},
	)

	// InfraContainersUp reports 1/0 for each of the three infra containers plus the dashboard.
	InfraContainersUp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hive_infra_containers_up",
			Help: "Whether an infrastructure container is running (1) or not (0)",
		},
		[]string{"name"},
	)

	// HTTPRequestsTotal counts HTTP requests by route and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hive_http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"route", "status"},
	)

	// HTTPRequestDuration times HTTP handler execution.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hive_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// CollectorMessagesTotal counts bus messages processed by outcome (indexed, decode_error, index_error).
	CollectorMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hive_collector_messages_total",
			Help: "Total number of bus messages processed by outcome",
		},
		[]string{"outcome"},
	)

	// CollectorIndexDuration times the enrich+index path per message.
	CollectorIndexDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hive_collector_index_duration_seconds",
			Help:    "Time taken to enrich and index one honeypot event",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		RuntimeInvocationsTotal,
		ContainerLifecycleDuration,
		HoneypotsTotal,
		InfraContainersUp,
		HTTPRequestsTotal,
		HTTPRequestDuration,
		CollectorMessagesTotal,
		CollectorIndexDuration,
	)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures elapsed time for histogram observations.
type Timer struct {
	start time.Time
}

// NewTimer starts a new Timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records elapsed time to histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records elapsed time to a labeled histogram.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}
