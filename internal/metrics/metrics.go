// Package metrics exposes Prometheus instrumentation for clean runs and the
// HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/creditclean/internal/core"
)

const namespace = "creditclean"

// Recorder holds the collectors on its own registry so tests and multiple
// servers in one process do not collide on the global one.
//
// All methods are safe on a nil *Recorder, which records nothing.
type Recorder struct {
	registry *prometheus.Registry

	runs         *prometheus.CounterVec
	rows         *prometheus.CounterVec
	blanked      *prometheus.CounterVec
	runDuration  prometheus.Histogram
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates a Recorder with Go runtime and process collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Clean runs by outcome. code is the user-facing error code, empty on success.",
		}, []string{"status", "code"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Rows seen by clean runs, by pipeline stage.",
		}, []string{"stage"}),
		blanked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cells_blanked_total",
			Help:      "Cells turned missing because they could not be parsed.",
		}, []string{"column"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of successful clean runs.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.runs, r.rows, r.blanked, r.runDuration, r.httpRequests, r.httpDuration,
	)
	return r
}

// Registry returns the registry backing the Recorder.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveRun records the outcome of a clean run. report may be nil when err
// is set.
func (r *Recorder) ObserveRun(report *core.Report, err error) {
	if r == nil {
		return
	}
	if err != nil {
		r.runs.WithLabelValues("failure", core.MapError(err).Code).Inc()
		return
	}
	r.runs.WithLabelValues("success", "").Inc()
	if report == nil {
		return
	}

	r.rows.WithLabelValues("loaded").Add(float64(report.RowsLoaded))
	r.rows.WithLabelValues("dropped_missing").Add(float64(report.DroppedMissing))
	r.rows.WithLabelValues("dropped_duplicates").Add(float64(report.DroppedDuplicates))
	r.rows.WithLabelValues("out").Add(float64(report.RowsOut))
	for col, n := range report.Blanked {
		r.blanked.WithLabelValues(col).Add(float64(n))
	}
	r.runDuration.Observe(report.Duration.Seconds())
}

// ObserveHTTP records one served request. route should be the matched route
// pattern, not the raw path, to keep label cardinality bounded.
func (r *Recorder) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RegisterLimiter exposes the run limiter's slot usage as gauges.
func (r *Recorder) RegisterLimiter(l *core.RunLimiter) {
	if r == nil || l == nil {
		return
	}
	r.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_active",
			Help:      "Clean runs currently holding a slot.",
		}, func() float64 { return float64(l.ActiveCount()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_max_concurrent",
			Help:      "Configured clean run slots.",
		}, func() float64 { return float64(l.MaxConcurrent()) }),
	)
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
