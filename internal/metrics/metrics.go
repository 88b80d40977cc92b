// Package metrics holds the Prometheus collectors shared by the transport,
// the paginator and the workflow runner. Every method is safe to call on a
// nil *Recorder, which records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns a private registry so that several recorders (one per test,
// for instance) never collide on the global one.
type Recorder struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	steps    *prometheus.CounterVec
	pages    *prometheus.CounterVec
}

// New returns a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rscctl_requests_total",
				Help: "Number of requests sent to the RSC API, by endpoint and outcome.",
			},
			[]string{"endpoint", "outcome"},
		),
		steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rscctl_workflow_steps_total",
				Help: "Number of workflow steps executed, by workflow and resulting status.",
			},
			[]string{"workflow", "status"},
		),
		pages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rscctl_pages_total",
				Help: "Number of result pages fetched by the paginator.",
			},
			[]string{"collection"},
		),
	}
	r.registry.MustRegister(r.requests, r.steps, r.pages)
	return r
}

// ObserveRequest counts one request against endpoint ("graphql", "token",
// "session") with outcome ("ok", "http_error", "network_error", "query_error").
func (r *Recorder) ObserveRequest(endpoint, outcome string) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(endpoint, outcome).Inc()
}

// ObserveStep counts one finished step.
func (r *Recorder) ObserveStep(workflow, status string) {
	if r == nil {
		return
	}
	r.steps.WithLabelValues(workflow, status).Inc()
}

// ObservePage counts one fetched page of collection.
func (r *Recorder) ObservePage(collection string) {
	if r == nil {
		return
	}
	r.pages.WithLabelValues(collection).Inc()
}

// Gatherer exposes the registry, mainly for tests.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.Gatherer(), promhttp.HandlerOpts{})
}
