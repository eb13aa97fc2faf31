// Package metrics provides Prometheus metrics for the deduction engine
// and its HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/warp/crewtax/generic"
)

// Recorder owns a registry and the collectors registered on it.
// A nil *Recorder records nothing, which is how metrics are disabled.
type Recorder struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	engineRuns     *prometheus.CounterVec
	engineWarnings *prometheus.CounterVec
	engineDuration prometheus.Histogram

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Option applies a configuration option to the Recorder.
type Option func(*Recorder)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(r *Recorder) {
		if namespace != "" {
			r.namespace = namespace
		}
	}
}

// WithHistogramBuckets sets custom buckets for the duration histograms.
func WithHistogramBuckets(buckets []float64) Option {
	return func(r *Recorder) {
		if len(buckets) > 0 {
			r.histogramBuckets = buckets
		}
	}
}

// WithProcessCollectors adds the Go runtime and process collectors.
func WithProcessCollectors() Option {
	return func(r *Recorder) {
		r.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
}

// New creates a Recorder on its own registry.
func New(opts ...Option) *Recorder {
	r := &Recorder{
		namespace:        "crewtax",
		histogramBuckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		registry:         prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.engineRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "engine",
		Name:      "runs_total",
		Help:      "Engine runs by caller.",
	}, []string{"source"})
	r.engineWarnings = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "engine",
		Name:      "warnings_total",
		Help:      "Data-quality warnings produced by engine runs, by code.",
	}, []string{"code"})
	r.engineDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Subsystem: "engine",
		Name:      "run_duration_seconds",
		Help:      "Wall time of one engine run.",
		Buckets:   r.histogramBuckets,
	})
	r.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})
	r.httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})

	r.registry.MustRegister(r.engineRuns, r.engineWarnings, r.engineDuration, r.httpRequests, r.httpRequestDuration)
	return r
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveRun records one engine run.
func (r *Recorder) ObserveRun(source string, d time.Duration, warnings []generic.Warning) {
	if r == nil {
		return
	}
	r.engineRuns.WithLabelValues(source).Inc()
	r.engineDuration.Observe(d.Seconds())
	for _, w := range warnings {
		r.engineWarnings.WithLabelValues(string(w.Code)).Inc()
	}
}

// ObserveHTTP records one served request. route is the matched pattern,
// not the raw path, to keep label cardinality bounded.
func (r *Recorder) ObserveHTTP(method, route string, status int, d time.Duration) {
	if r == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpRequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
