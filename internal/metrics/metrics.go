// Package metrics holds the Prometheus collectors exported by feed-server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "votefeed"

// Metrics groups the server collectors.
type Metrics struct {
	Requests *prometheus.CounterVec   // method, code
	Latency  *prometheus.HistogramVec // method
	Votes    *prometheus.CounterVec   // outcome: up, down, flip, repeat
	Limited  prometheus.Counter       // calls rejected by the per-peer limiter

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them on a private registry
// together with the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_requests_total",
			Help:      "Unary gRPC calls by method and status code.",
		}, []string{"method", "code"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grpc_request_duration_seconds",
			Help:      "Unary gRPC handler latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		Votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_total",
			Help:      "Committed votes by outcome.",
		}, []string{"outcome"}),
		Limited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Calls rejected by the per-peer rate limiter.",
		}),
		gatherer: reg,
	}
	reg.MustRegister(
		m.Requests, m.Latency, m.Votes, m.Limited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveVote counts a committed vote by how it moved the score.
func (m *Metrics) ObserveVote(delta int) {
	var outcome string
	switch delta {
	case 0:
		outcome = "repeat"
	case 1:
		outcome = "up"
	case -1:
		outcome = "down"
	default:
		outcome = "flip"
	}
	m.Votes.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
