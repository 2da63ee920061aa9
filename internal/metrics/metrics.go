// Package metrics registers and exposes the Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "boundary_requests_total",
		Help: "Total number of HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "boundary_request_duration_ms",
		Help:    "Request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"route"})
	SelectsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "boundary_selects_total",
		Help: "Total selection queries answered by dataset, level and shape",
	}, []string{"dataset", "level", "shape"})
	RegionsLoaded = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "boundary_regions_loaded",
		Help: "Regions currently served by dataset and level",
	}, []string{"dataset", "level"})
	ClipFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "boundary_clip_failures_total",
		Help: "Clipping failures survived while resolving overlaps",
	}, []string{"dataset", "level"})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(SelectsTotal)
	prometheus.MustRegister(RegionsLoaded)
	prometheus.MustRegister(ClipFailuresTotal)
}

// Handler returns the scrape endpoint for the registered metrics.
func Handler() http.Handler { return promhttp.Handler() }
