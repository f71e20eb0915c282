// Copyright 2025 Certen Protocol
//
// Prometheus metrics for the gateway (C9, spec.md §4.7 get_metrics): the
// chain-time gauge C4 observes, the C3 pending-message backlog, and the
// standard HTTP in-flight/latency instrumentation for the public surface.

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns every collector the gateway exports.
type Registry struct {
	registry *prometheus.Registry

	genUtimeGauge     prometheus.Gauge
	pendingGauge      prometheus.Gauge
	inFlightGauge     prometheus.Gauge
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
}

// New constructs and registers the gateway's metric collectors.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		genUtimeGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_chain_gen_utime",
			Help: "Latest masterchain block gen_utime observed by the chain subscriber",
		}),
		pendingGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_pending_messages",
			Help: "Number of broadcast messages awaiting on-chain confirmation or expiry",
		}),
		inFlightGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_http_in_flight_requests",
			Help: "Number of HTTP requests currently being served",
		}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_http_requests_total",
			Help: "Total HTTP requests by method and status class",
		}, []string{"method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_http_request_duration_seconds",
			Help:    "HTTP request latency by method",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}

	reg.MustRegister(r.genUtimeGauge, r.pendingGauge, r.inFlightGauge, r.requestsTotal, r.requestDuration)
	return r
}

// Handler exposes the registry in the Prometheus text exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// SetGenUtime updates the chain-time gauge.
func (r *Registry) SetGenUtime(utime int64) {
	r.genUtimeGauge.Set(float64(utime))
}

// SetPendingMessages updates the C3 backlog gauge.
func (r *Registry) SetPendingMessages(n int) {
	r.pendingGauge.Set(float64(n))
}

// InFlightInc/Dec track concurrently-served HTTP requests.
func (r *Registry) InFlightInc() { r.inFlightGauge.Inc() }
func (r *Registry) InFlightDec() { r.inFlightGauge.Dec() }

// ObserveRequest records one completed HTTP request's method, status class,
// and latency.
func (r *Registry) ObserveRequest(method, statusClass string, elapsed time.Duration) {
	r.requestsTotal.WithLabelValues(method, statusClass).Inc()
	r.requestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}
