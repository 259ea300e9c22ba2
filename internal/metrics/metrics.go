// Package metrics exposes Prometheus collectors for the prerender engine.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	routesRendered *prometheus.CounterVec
	retriesTotal   prometheus.Counter
	bytesWritten   prometheus.Counter
	rendersActive  prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		routesRendered = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snapsite_routes_rendered_total",
				Help: "Total routes that reached a terminal outcome, labeled by outcome.",
			},
			[]string{"outcome"},
		)
		retriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "snapsite_render_retries_total",
				Help: "Total render retry attempts.",
			},
		)
		bytesWritten = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "snapsite_output_bytes_total",
				Help: "Total bytes written to the output directory.",
			},
		)
		rendersActive = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "snapsite_renders_active",
				Help: "Number of routes currently rendering.",
			},
		)
	})
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RouteRendered counts one terminal route outcome ("success" or "failure").
func RouteRendered(outcome string) {
	if routesRendered != nil {
		routesRendered.WithLabelValues(outcome).Inc()
	}
}

// RetryAttempted counts one render retry.
func RetryAttempted() {
	if retriesTotal != nil {
		retriesTotal.Inc()
	}
}

// AddBytesWritten accumulates output file sizes.
func AddBytesWritten(n int) {
	if bytesWritten != nil {
		bytesWritten.Add(float64(n))
	}
}

// RenderStarted marks a route render as in flight.
func RenderStarted() {
	if rendersActive != nil {
		rendersActive.Inc()
	}
}

// RenderFinished marks a route render as done.
func RenderFinished() {
	if rendersActive != nil {
		rendersActive.Dec()
	}
}
