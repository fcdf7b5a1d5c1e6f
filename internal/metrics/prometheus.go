// Package metrics exposes wanctl's Prometheus metrics.
package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once     sync.Once
	registry *Registry
)

// Registry holds all wanctl metrics.
type Registry struct {
	// Router API
	RouterRequests *prometheus.CounterVec
	RouterLatency  *prometheus.HistogramVec

	// Reconnect jobs
	JobsStarted  prometheus.Counter
	JobsFinished *prometheus.CounterVec
	JobsPending  prometheus.Gauge
	JobDuration  prometheus.Histogram

	// HTTP surface
	APIRequests *prometheus.CounterVec
	APILatency  *prometheus.HistogramVec
}

// Get returns the global metrics registry, creating it if necessary.
func Get() *Registry {
	once.Do(func() {
		registry = newRegistry(prometheus.DefaultRegisterer)
	})
	return registry
}

// NewRegistry builds a Registry registered against reg. Tests pass a fresh
// prometheus.NewRegistry() so counts start at zero.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return newRegistry(reg)
}

func newRegistry(reg prometheus.Registerer) *Registry {
	f := promauto.With(reg)
	r := &Registry{}

	r.RouterRequests = f.NewCounterVec(prometheus.CounterOpts{
		Name: "wanctl_router_requests_total",
		Help: "Requests made against the router API by operation and outcome",
	}, []string{"op", "outcome"})

	r.RouterLatency = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wanctl_router_request_duration_seconds",
		Help:    "Router API request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	r.JobsStarted = f.NewCounter(prometheus.CounterOpts{
		Name: "wanctl_jobs_started_total",
		Help: "Reconnect jobs started",
	})

	r.JobsFinished = f.NewCounterVec(prometheus.CounterOpts{
		Name: "wanctl_jobs_finished_total",
		Help: "Reconnect jobs finished, by result (done or error)",
	}, []string{"result"})

	r.JobsPending = f.NewGauge(prometheus.GaugeOpts{
		Name: "wanctl_jobs_pending",
		Help: "Job registry entries not yet consumed by a poller",
	})

	r.JobDuration = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "wanctl_job_duration_seconds",
		Help:    "Wall time of a reconnect job including settle and outage delays",
		Buckets: []float64{1, 2, 5, 7, 10, 20, 30, 60},
	})

	r.APIRequests = f.NewCounterVec(prometheus.CounterOpts{
		Name: "wanctl_http_requests_total",
		Help: "HTTP requests served by route and status",
	}, []string{"method", "route", "status"})

	r.APILatency = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wanctl_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	return r
}

// RecordRouterRequest records one router API call. outcome is "ok" or the
// error kind ("transport", "status", "decode").
func (r *Registry) RecordRouterRequest(op, outcome string, seconds float64) {
	r.RouterRequests.WithLabelValues(op, outcome).Inc()
	r.RouterLatency.WithLabelValues(op).Observe(seconds)
}

// RecordJobFinished records a job's terminal message.
func (r *Registry) RecordJobFinished(success bool, seconds float64) {
	result := "error"
	if success {
		result = "done"
	}
	r.JobsFinished.WithLabelValues(result).Inc()
	r.JobDuration.Observe(seconds)
}

// RecordAPIRequest records an API request.
func (r *Registry) RecordAPIRequest(method, route string, status int, seconds float64) {
	r.APIRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.APILatency.WithLabelValues(method, route).Observe(seconds)
}
