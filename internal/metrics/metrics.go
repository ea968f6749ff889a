// Package metrics exposes Prometheus collectors for the page endpoints.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ssrshim"

// Endpoint records page request outcomes. A nil *Endpoint records nothing.
type Endpoint struct {
	requests *prometheus.CounterVec
	render   *prometheus.HistogramVec
}

// NewEndpoint creates the endpoint collectors and registers them on reg.
func NewEndpoint(reg prometheus.Registerer) *Endpoint {
	m := &Endpoint{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "endpoint",
			Name:      "requests_total",
			Help:      "Page requests by page and status code.",
		}, []string{"page", "code"}),
		render: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "endpoint",
			Name:      "render_seconds",
			Help:      "Time spent rendering a page component.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"page"}),
	}
	reg.MustRegister(m.requests, m.render)
	return m
}

// Request counts one response for page with the given status code.
func (m *Endpoint) Request(page string, code int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(page, strconv.Itoa(code)).Inc()
}

// Render records how long page took to render.
func (m *Endpoint) Render(page string, d time.Duration) {
	if m == nil {
		return
	}
	m.render.WithLabelValues(page).Observe(d.Seconds())
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
