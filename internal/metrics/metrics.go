// Package metrics defines the Prometheus collectors for optimizations, caching and HTTP traffic.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values
const (
	OutcomeOptimal    = "optimal"
	OutcomeInfeasible = "infeasible"
	OutcomeError      = "error"
	OutcomeCached     = "cached"
)

// Cache result label values
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Metrics holds the service collectors
type Metrics struct {
	Optimizations        *prometheus.CounterVec
	OptimizationDuration *prometheus.HistogramVec
	CacheRequests        *prometheus.CounterVec
	HTTPRequests         *prometheus.CounterVec
}

// New registers the collectors on reg. Passing a fresh registry keeps tests isolated.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Optimizations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "benefit_optimizations_total",
				Help: "Total number of optimization calls by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		OptimizationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "benefit_optimization_duration_seconds",
				Help:    "Duration of optimization calls in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"mode"},
		),
		CacheRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "benefit_cache_requests_total",
				Help: "Result cache lookups by result",
			},
			[]string{"result"},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "benefit_http_requests_total",
				Help: "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
	}
}

// ObserveOptimization records one optimization call. A nil receiver is a no-op.
func (m *Metrics) ObserveOptimization(mode, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Optimizations.WithLabelValues(mode, outcome).Inc()
	m.OptimizationDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// ObserveCache records one result cache lookup
func (m *Metrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.CacheRequests.WithLabelValues(result).Inc()
}

// ObserveHTTP records one served request
func (m *Metrics) ObserveHTTP(method, route, status string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
}
