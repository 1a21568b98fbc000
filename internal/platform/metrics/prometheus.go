// Package metrics records pipeline and HTTP metrics with Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements the pipeline's Metrics port using Prometheus.
type Recorder struct {
	runsTotal     *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	stageErrors   *prometheus.CounterVec
	rowsTotal     *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New registers the collectors on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		runsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ngx_pipeline_runs_total",
				Help: "Total number of pipeline runs by final status",
			},
			[]string{"status"},
		),
		stageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ngx_pipeline_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"stage"},
		),
		stageErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ngx_pipeline_stage_errors_total",
				Help: "Total number of errors recorded by pipeline stages",
			},
			[]string{"stage"},
		),
		rowsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ngx_pipeline_rows_total",
				Help: "Rows processed by pipeline stages",
			},
			[]string{"stage", "kind"},
		),
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ngx_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ngx_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"route", "method"},
		),
	}
}

// RecordRun counts a finished run.
func (r *Recorder) RecordRun(status string) {
	r.runsTotal.WithLabelValues(status).Inc()
}

// RecordStage observes a stage duration and adds its error count.
func (r *Recorder) RecordStage(stage string, d time.Duration, errs int) {
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	if errs > 0 {
		r.stageErrors.WithLabelValues(stage).Add(float64(errs))
	}
}

// RecordRows adds n rows of kind (loaded, skipped, rejected...) for stage.
func (r *Recorder) RecordRows(stage, kind string, n int) {
	if n <= 0 {
		return
	}
	r.rowsTotal.WithLabelValues(stage, kind).Add(float64(n))
}

// GinMiddleware records request count and latency labelled by the route template.
func (r *Recorder) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		r.httpRequests.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		r.httpDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}
